package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

// PingCommand checks connectivity and reports the round-trip time.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Check connectivity to the server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "count",
				Usage: "Number of pings to send",
				Value: 1,
			},
		},
		Action: pingAction,
	}
}

func pingAction(c *cli.Context) error {
	t, _, err := connect(c)
	if err != nil {
		return err
	}
	defer t.close()

	ctx, cancel := opCtx(c)
	defer cancel()

	for i := 0; i < c.Int("count"); i++ {
		start := time.Now()
		v, err := t.do(ctx, []string{"PING"})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s %.2fms\n", v.Text(), float64(time.Since(start).Microseconds())/1000)
	}
	return nil
}

// InfoCommand dumps server information.
func InfoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show server information",
		ArgsUsage: "[SECTION...]",
		Action: func(c *cli.Context) error {
			t, _, err := connect(c)
			if err != nil {
				return err
			}
			defer t.close()

			ctx, cancel := opCtx(c)
			defer cancel()

			v, err := t.do(ctx, append([]string{"INFO"}, c.Args().Slice()...))
			if err != nil {
				return err
			}
			fmt.Fprint(c.App.Writer, v.Text())
			return nil
		},
	}
}
