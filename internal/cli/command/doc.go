// Package command defines the redwire-cli commands.
//
// It uses urfave/cli/v2 for command parsing. Connection settings are
// resolved from the config file, REDWIRE_* environment variables and
// the global flags, in that order. Every command funnels through a
// target that wraps either a single pooled client or the sharded
// client, so the same surface serves both modes.
package command
