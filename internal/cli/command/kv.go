package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/redwire-go/pkg/resp"
)

// CmdCommand sends an arbitrary command verbatim.
func CmdCommand() *cli.Command {
	return &cli.Command{
		Name:      "cmd",
		Usage:     "Send an arbitrary Redis command",
		ArgsUsage: "COMMAND [ARG...]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("cmd requires a command name")
			}
			return runOne(c, c.Args().Slice())
		},
	}
}

// GetCommand reads a key.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get the value of a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("get requires exactly one key")
			}
			return runOne(c, []string{"GET", c.Args().First()})
		},
	}
}

// SetCommand writes a key, optionally with a TTL.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set a key to a value",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Expire the key after this duration",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("set requires a key and a value")
			}
			args := []string{"SET", c.Args().Get(0), c.Args().Get(1)}
			if ttl := c.Duration("ttl"); ttl > 0 {
				args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
			}
			return runOne(c, args)
		},
	}
}

// DelCommand deletes one or more keys.
func DelCommand() *cli.Command {
	return &cli.Command{
		Name:      "del",
		Usage:     "Delete keys",
		ArgsUsage: "KEY [KEY...]",
		Action:    delAction,
	}
}

func delAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("del requires at least one key")
	}
	t, cfg, err := connect(c)
	if err != nil {
		return err
	}
	defer t.close()

	ctx, cancel := opCtx(c)
	defer cancel()

	keys := c.Args().Slice()
	if t.sharded == nil {
		v, err := t.do(ctx, append([]string{"DEL"}, keys...))
		if err != nil {
			return err
		}
		return printReply(c, cfg, v)
	}

	// Keys may live on different nodes; delete one at a time.
	var removed int64
	for _, key := range keys {
		v, err := t.do(ctx, []string{"DEL", key})
		if err != nil {
			return err
		}
		removed += v.Int
	}
	return printReply(c, cfg, resp.Integer(removed))
}

// runOne connects, runs a single command vector and prints the reply.
func runOne(c *cli.Context, args []string) error {
	t, cfg, err := connect(c)
	if err != nil {
		return err
	}
	defer t.close()

	ctx, cancel := opCtx(c)
	defer cancel()

	v, err := t.do(ctx, args)
	if err != nil {
		return err
	}
	return printReply(c, cfg, v)
}
