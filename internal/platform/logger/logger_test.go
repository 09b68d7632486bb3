// Package logger_test contains tests for the logger package
package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/config"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/platform/logger"
)

func TestSetupReturnsLogger(t *testing.T) {
	cfg := config.ServerConfig{Port: 8000, LogLevel: "info"}

	log, err := logger.Setup(cfg)
	if err != nil {
		t.Fatalf("Setup returned an unexpected error: %v", err)
	}
	if log == nil {
		t.Fatal("Setup returned a nil logger")
	}

	// Setup installs the logger as the process default
	if slog.Default() != log {
		t.Error("Setup should set the returned logger as the default")
	}
}

func TestSetupLogLevels(t *testing.T) {
	tests := []struct {
		name         string
		logLevel     string
		debugEnabled bool
		infoEnabled  bool
		warnEnabled  bool
		errorEnabled bool
	}{
		{
			name:         "debug level enables everything",
			logLevel:     "debug",
			debugEnabled: true,
			infoEnabled:  true,
			warnEnabled:  true,
			errorEnabled: true,
		},
		{
			name:         "info level disables debug",
			logLevel:     "info",
			debugEnabled: false,
			infoEnabled:  true,
			warnEnabled:  true,
			errorEnabled: true,
		},
		{
			name:         "warn level disables info",
			logLevel:     "warn",
			debugEnabled: false,
			infoEnabled:  false,
			warnEnabled:  true,
			errorEnabled: true,
		},
		{
			name:         "error level disables warn",
			logLevel:     "error",
			debugEnabled: false,
			infoEnabled:  false,
			warnEnabled:  false,
			errorEnabled: true,
		},
		{
			name:         "uppercase levels are accepted",
			logLevel:     "DEBUG",
			debugEnabled: true,
			infoEnabled:  true,
			warnEnabled:  true,
			errorEnabled: true,
		},
		{
			name:         "unknown level falls back to info",
			logLevel:     "verbose",
			debugEnabled: false,
			infoEnabled:  true,
			warnEnabled:  true,
			errorEnabled: true,
		},
	}

	ctx := context.Background()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log, err := logger.Setup(config.ServerConfig{Port: 8000, LogLevel: tc.logLevel})
			if err != nil {
				t.Fatalf("Setup returned an unexpected error: %v", err)
			}
			if log == nil {
				t.Fatal("Setup returned a nil logger")
			}

			if got := log.Enabled(ctx, slog.LevelDebug); got != tc.debugEnabled {
				t.Errorf("debug enabled = %v, expected %v", got, tc.debugEnabled)
			}
			if got := log.Enabled(ctx, slog.LevelInfo); got != tc.infoEnabled {
				t.Errorf("info enabled = %v, expected %v", got, tc.infoEnabled)
			}
			if got := log.Enabled(ctx, slog.LevelWarn); got != tc.warnEnabled {
				t.Errorf("warn enabled = %v, expected %v", got, tc.warnEnabled)
			}
			if got := log.Enabled(ctx, slog.LevelError); got != tc.errorEnabled {
				t.Errorf("error enabled = %v, expected %v", got, tc.errorEnabled)
			}
		})
	}
}
