// Package main implements the standalone worker binary. It consumes task
// messages from the shared Redis queue, executes them through the registered
// task executors, and records outcomes in the shared task store, so task
// processing can scale independently of the API server.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/automation"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/config"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/platform/logger"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/platform/postgres"
	platformredis "github.com/RajendraPrasadR/AI-Agent-Backend/internal/platform/redis"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/reaper"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/registry"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/store"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/worker"
)

// drainTimeout bounds how long shutdown waits for in-flight tasks. Longer
// than the server's timeout because tasks are the whole point of this process.
const drainTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	workerLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	// A process-local broker or store cannot be shared with the API server,
	// so the standalone worker only runs against external backends.
	if cfg.Broker.Kind != "redis" {
		return fmt.Errorf("standalone worker requires broker kind %q, got %q", "redis", cfg.Broker.Kind)
	}
	if cfg.Store.Kind == "memory" {
		return fmt.Errorf("standalone worker cannot use the in-memory store")
	}

	ctx := context.Background()

	redisClient, err := platformredis.NewClient(ctx, cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			workerLogger.Error("Error closing redis connection", "error", err)
		}
	}()
	workerLogger.Info("Redis connection established")

	var taskStore store.TaskStore
	switch cfg.Store.Kind {
	case "redis":
		taskStore = platformredis.NewRedisTaskStore(redisClient, cfg.Store.ResultTTL, workerLogger)
	case "postgres":
		db, err := connectDatabase(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				workerLogger.Error("Error closing database connection", "error", err)
			}
		}()
		workerLogger.Info("Database connection established")
		taskStore = postgres.NewPostgresTaskStore(db, workerLogger)
	default:
		return fmt.Errorf("unknown store kind: %q", cfg.Store.Kind)
	}

	msgBroker := platformredis.NewRedisBroker(redisClient, cfg.Broker.Queue, workerLogger)
	defer func() {
		if err := msgBroker.Close(); err != nil {
			workerLogger.Error("Error closing broker", "error", err)
		}
	}()

	reg := registry.NewRegistry()
	if err := automation.RegisterDefaults(reg, cfg.Automation.ServiceURL, nil, workerLogger); err != nil {
		return fmt.Errorf("failed to register task executors: %w", err)
	}
	workerLogger.Info("Task executors registered", "task_types", reg.Types())

	pool := worker.NewPool(msgBroker, taskStore, reg, worker.Config{
		Count:               cfg.Worker.Count,
		ExecutionTimeout:    cfg.Worker.ExecutionTimeout,
		RecordRetryAttempts: cfg.Worker.RecordRetryAttempts,
		RecordRetryBackoff:  cfg.Worker.RecordRetryBackoff,
	}, workerLogger)
	pool.Start()

	var taskReaper *reaper.Reaper
	if cfg.Reaper.Enabled {
		taskReaper = reaper.NewReaper(taskStore, msgBroker, reaper.Config{
			StalenessWindow: cfg.Reaper.StalenessWindow,
			Interval:        cfg.Reaper.Interval,
		}, workerLogger)
		taskReaper.Start()
	}

	workerLogger.Info("Worker started",
		"queue", cfg.Broker.Queue,
		"worker_count", cfg.Worker.Count,
		"reaper_enabled", cfg.Reaper.Enabled)

	// Block until a shutdown signal arrives
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdownCh
	workerLogger.Info("Shutting down worker...", "signal", sig.String())

	if taskReaper != nil {
		taskReaper.Stop()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := pool.Stop(stopCtx); err != nil {
		workerLogger.Error("Worker pool did not drain in time", "error", err)
	}

	workerLogger.Info("Worker shutdown completed")
	return nil
}

// connectDatabase opens and verifies the task store database connection.
func connectDatabase(cfg *config.Config) (*sql.DB, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database URL is required when store kind is %q", cfg.Store.Kind)
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			slog.Warn("Error closing database connection after failed ping", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
