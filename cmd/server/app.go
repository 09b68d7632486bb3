package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/automation"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/broker"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/config"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/events"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/platform/postgres"
	platformredis "github.com/RajendraPrasadR/AI-Agent-Backend/internal/platform/redis"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/reaper"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/registry"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/service"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/store"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/worker"
)

// shutdownTimeout bounds how long cleanup waits for in-flight work to drain.
const shutdownTimeout = 10 * time.Second

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger

	// Backing connections; nil unless the configuration selects them
	db          *sql.DB
	redisClient *redis.Client

	// Task orchestration components
	taskStore   store.TaskStore
	msgBroker   broker.Broker
	registry    *registry.Registry
	taskService service.TaskService
	broadcaster *events.Broadcaster

	// Background processing. The pool is only embedded in memory-broker
	// mode; with a redis broker the worker binary consumes the queue.
	workerPool *worker.Pool
	taskReaper *reaper.Reaper
}

// newApplication creates a new application instance with all dependencies
// initialized and background processing started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	// A memory store is process-local, so a broker that hands work to other
	// processes could never see the records those workers need.
	if cfg.Store.Kind == "memory" && cfg.Broker.Kind != "memory" {
		return nil, fmt.Errorf(
			"store kind %q requires broker kind %q, got %q",
			cfg.Store.Kind, "memory", cfg.Broker.Kind,
		)
	}

	if err := app.setupTaskStore(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	if err := app.setupBroker(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	if err := app.setupServices(); err != nil {
		app.cleanup()
		return nil, err
	}

	app.setupBackgroundProcessing()

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupTaskStore constructs the task record store selected by configuration,
// opening the backing connection it needs.
func (app *application) setupTaskStore(ctx context.Context) error {
	switch app.config.Store.Kind {
	case "memory":
		app.taskStore = store.NewMemoryTaskStore()
		app.logger.Info("Using in-memory task store")

	case "redis":
		client, err := app.ensureRedisClient(ctx)
		if err != nil {
			return err
		}
		app.taskStore = platformredis.NewRedisTaskStore(client, app.config.Store.ResultTTL, app.logger)
		app.logger.Info("Using redis task store", "result_ttl", app.config.Store.ResultTTL)

	case "postgres":
		db, err := setupAppDatabase(app.config, app.logger)
		if err != nil {
			return fmt.Errorf("failed to set up database: %w", err)
		}
		app.db = db

		if err := applyMigrations(db); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}

		app.taskStore = postgres.NewPostgresTaskStore(db, app.logger)
		app.logger.Info("Using postgres task store")

	default:
		return fmt.Errorf("unknown store kind: %q", app.config.Store.Kind)
	}

	return nil
}

// setupBroker constructs the message broker selected by configuration.
func (app *application) setupBroker(ctx context.Context) error {
	switch app.config.Broker.Kind {
	case "memory":
		app.msgBroker = broker.NewMemoryBroker(app.config.Broker.QueueSize, app.logger)
		app.logger.Info("Using in-memory broker", "queue_size", app.config.Broker.QueueSize)

	case "redis":
		client, err := app.ensureRedisClient(ctx)
		if err != nil {
			return err
		}
		app.msgBroker = platformredis.NewRedisBroker(client, app.config.Broker.Queue, app.logger)
		app.logger.Info("Using redis broker", "queue", app.config.Broker.Queue)

	default:
		return fmt.Errorf("unknown broker kind: %q", app.config.Broker.Kind)
	}

	return nil
}

// setupServices builds the task registry, the task service, and the event
// broadcaster on top of the store and broker.
func (app *application) setupServices() error {
	app.registry = registry.NewRegistry()
	if err := automation.RegisterDefaults(
		app.registry,
		app.config.Automation.ServiceURL,
		nil,
		app.logger,
	); err != nil {
		return fmt.Errorf("failed to register task executors: %w", err)
	}
	app.logger.Info("Task executors registered", "task_types", app.registry.Types())

	taskService, err := service.NewTaskService(app.taskStore, app.msgBroker, app.registry, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create task service: %w", err)
	}
	app.taskService = taskService

	app.broadcaster = events.NewBroadcaster(app.msgBroker, app.taskStore, app.logger)

	return nil
}

// setupBackgroundProcessing starts the embedded worker pool and the reaper
// where the configuration calls for them. A memory broker has no external
// consumers, so the pool always runs in-process in that mode; the reaper
// rides along because no separate worker process exists to host it.
func (app *application) setupBackgroundProcessing() {
	if app.config.Broker.Kind != "memory" {
		app.logger.Info("Worker pool not embedded, queue consumed by worker processes")
		return
	}

	app.workerPool = worker.NewPool(
		app.msgBroker,
		app.taskStore,
		app.registry,
		worker.Config{
			Count:               app.config.Worker.Count,
			ExecutionTimeout:    app.config.Worker.ExecutionTimeout,
			RecordRetryAttempts: app.config.Worker.RecordRetryAttempts,
			RecordRetryBackoff:  app.config.Worker.RecordRetryBackoff,
		},
		app.logger,
	)
	app.workerPool.Start()

	if app.config.Reaper.Enabled {
		app.taskReaper = reaper.NewReaper(
			app.taskStore,
			app.msgBroker,
			reaper.Config{
				StalenessWindow: app.config.Reaper.StalenessWindow,
				Interval:        app.config.Reaper.Interval,
			},
			app.logger,
		)
		app.taskReaper.Start()
	}
}

// ensureRedisClient opens the shared Redis connection on first use.
func (app *application) ensureRedisClient(ctx context.Context) (*redis.Client, error) {
	if app.redisClient != nil {
		return app.redisClient, nil
	}

	client, err := platformredis.NewClient(ctx, app.config.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.redisClient = client
	app.logger.Info("Redis connection established")

	return client, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	err := app.startHTTPServer(ctx, router)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources. The reaper and
// pool stop before the broker closes so in-flight work can still publish.
func (app *application) cleanup() {
	if app.taskReaper != nil {
		app.taskReaper.Stop()
	}

	if app.workerPool != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := app.workerPool.Stop(stopCtx); err != nil {
			app.logger.Error("Worker pool did not drain in time", "error", err)
		}
		cancel()
	}

	if app.msgBroker != nil {
		if err := app.msgBroker.Close(); err != nil {
			app.logger.Error("Error closing broker", "error", err)
		}
	}

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("Error closing redis connection", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
