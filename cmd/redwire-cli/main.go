// Package main provides the entry point for redwire-cli.
//
// redwire-cli is a Redis command-line client built on the redwire
// client library, supporting single-command mode, a benchmark mode and
// an interactive shell.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/redwire-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
