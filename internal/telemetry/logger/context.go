package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const loggerKey contextKey = "redwire.logger"

// WithLogger stores l in the context for downstream handlers.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or the process
// default when none is set.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return Default()
}
