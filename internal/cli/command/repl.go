package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/redwire-go/internal/cli/output"
	"github.com/yndnr/redwire-go/internal/cli/repl"
	"github.com/yndnr/redwire-go/pkg/resp"
)

// ReplCommand starts the interactive shell.
func ReplCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Start an interactive shell",
		Action: func(c *cli.Context) error {
			t, cfg, err := connect(c)
			if err != nil {
				return err
			}
			defer t.close()
			defer watchConfig(c)()

			exec := func(ctx context.Context, args []string) (resp.Value, error) {
				ctx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
				defer cancel()
				return t.do(ctx, args)
			}

			fmt.Fprintf(c.App.Writer, "Connected to %s. Type help for help, exit to leave.\n", describeTarget(cfg))
			r := repl.New(exec,
				output.NewFormatter(output.Format(cfg.Output)),
				repl.WithHistoryFile(cfg.History),
				repl.WithOutput(c.App.Writer),
			)
			return r.Run(c.Context)
		},
	}
}
