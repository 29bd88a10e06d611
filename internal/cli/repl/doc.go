// Package repl provides the interactive mode for redwire-cli.
//
// It wraps peterh/liner for line editing, command completion and
// persistent history, splits input lines redis-cli style (double and
// single quotes) and hands each command vector to an executor.
package repl
