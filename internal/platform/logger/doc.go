// Package logger configures the application's structured logging on top of
// log/slog and carries request-scoped loggers through contexts so every log
// line in a request's path shares its trace ID.
package logger
