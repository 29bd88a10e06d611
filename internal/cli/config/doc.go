// Package config provides CLI configuration for redwire-cli.
//
// Configuration is resolved in three layers, later layers winning:
//
//   - built-in defaults
//   - YAML config file (~/.redwire/cli.yaml by default)
//   - REDWIRE_* environment variables
//
// Command-line flags are applied on top by the command package.
package config
