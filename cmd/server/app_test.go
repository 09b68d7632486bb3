package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestConfig returns a single-process configuration: memory backends with
// an embedded worker pool, sized for fast tests.
func newTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8099, LogLevel: "debug"},
		Broker: config.BrokerConfig{Kind: "memory", Queue: "test-queue", QueueSize: 16},
		Store:  config.StoreConfig{Kind: "memory", ResultTTL: time.Hour},
		Worker: config.WorkerConfig{
			Count:               2,
			ExecutionTimeout:    30 * time.Second,
			RecordRetryAttempts: 3,
			RecordRetryBackoff:  10 * time.Millisecond,
		},
	}
}

// newTestApplication builds a fully wired single-process application.
func newTestApplication(t *testing.T) *application {
	t.Helper()

	app, err := newApplication(context.Background(), newTestConfig(), newTestLogger())
	require.NoError(t, err)
	t.Cleanup(app.cleanup)
	return app
}

func TestNewApplicationWithMemoryBackends(t *testing.T) {
	app := newTestApplication(t)

	assert.NotNil(t, app.taskStore)
	assert.NotNil(t, app.msgBroker)
	assert.NotNil(t, app.registry)
	assert.NotNil(t, app.taskService)
	assert.NotNil(t, app.broadcaster)

	// Memory broker mode embeds the worker pool
	assert.NotNil(t, app.workerPool)

	// Reaper is off by default
	assert.Nil(t, app.taskReaper)

	// No external backends were opened
	assert.Nil(t, app.db)
	assert.Nil(t, app.redisClient)

	// The built-in simulated task is always registered
	assert.Contains(t, app.registry.Types(), "test_task")
}

func TestNewApplicationStartsReaperWhenEnabled(t *testing.T) {
	cfg := newTestConfig()
	cfg.Reaper = config.ReaperConfig{
		Enabled:         true,
		StalenessWindow: time.Minute,
		Interval:        time.Minute,
	}

	app, err := newApplication(context.Background(), cfg, newTestLogger())
	require.NoError(t, err)
	t.Cleanup(app.cleanup)

	assert.NotNil(t, app.taskReaper)
}

func TestNewApplicationRejectsMemoryStoreWithRedisBroker(t *testing.T) {
	cfg := newTestConfig()
	cfg.Broker.Kind = "redis"

	_, err := newApplication(context.Background(), cfg, newTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires broker kind")
}

func TestNewApplicationRejectsUnknownStoreKind(t *testing.T) {
	cfg := newTestConfig()
	cfg.Store.Kind = "etcd"
	cfg.Broker.Kind = "memory"

	_, err := newApplication(context.Background(), cfg, newTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store kind")
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApplication(t)
	server := httptest.NewServer(app.setupRouter())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}
