package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/config"
)

// Setup builds the application logger from the server configuration and
// installs it as the slog default. Logs are structured JSON on stdout.
//
// An unrecognized log level falls back to info with a warning rather than
// failing startup; a misconfigured level should not take the service down.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo

		// The configured logger does not exist yet, so warn through a
		// throwaway text handler
		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", "info")
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}
