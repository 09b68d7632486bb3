package logger

import (
	"context"
	"log/slog"
)

// loggerContextKey is the private type used for storing the logger in a
// context. Using a private type prevents collisions with other packages.
type loggerContextKey struct{}

// WithLogger returns a new context carrying the given logger. Middleware
// uses this to attach a request-scoped logger (with trace ID and other
// request attributes) that downstream code retrieves with FromContext.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, log)
}

// FromContext retrieves the logger from the context. If no logger is
// attached it falls back to slog.Default, so callers can always log without
// nil checks.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// FromContextOrDefault retrieves the logger from the context, falling back
// to the provided default instead of the global one. Components with their
// own component-tagged logger prefer this so untagged requests still carry
// their component attribute.
func FromContextOrDefault(ctx context.Context, def *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	if def != nil {
		return def
	}
	return slog.Default()
}
