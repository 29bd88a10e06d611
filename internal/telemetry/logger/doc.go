// Package logger provides structured logging for RedWire.
//
// It wraps log/slog with JSON output, runtime level adjustment and
// automatic redaction of credentials: attribute keys that suggest
// secrets are masked, and endpoint URIs carrying a userinfo password
// are stripped before they reach the log stream.
package logger
