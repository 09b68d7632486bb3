// Package reaper recovers tasks abandoned by crashed workers. A record stuck
// in running past the staleness window is marked failed so callers are not
// left polling a task nobody is processing. Recovery means an honest failure
// outcome; the reaper never re-runs work on its own.
package reaper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/broker"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/store"
)

// Config holds configuration for the reaper
type Config struct {
	// StalenessWindow is how long a record may sit in running before it is
	// considered abandoned. Keep it comfortably above the worker execution
	// timeout, or slow but live tasks get declared lost.
	StalenessWindow time.Duration

	// Interval is how often the reaper sweeps for abandoned tasks
	Interval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		StalenessWindow: 30 * time.Minute,
		Interval:        5 * time.Minute,
	}
}

// Reaper periodically sweeps the task store for abandoned running records
// and finalizes them as failed.
type Reaper struct {
	store      store.TaskStore
	broker     broker.Broker
	config     Config
	logger     *slog.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewReaper creates a new reaper. Zero config fields fall back to the
// defaults from DefaultConfig.
func NewReaper(taskStore store.TaskStore, msgBroker broker.Broker, config Config, logger *slog.Logger) *Reaper {
	defaults := DefaultConfig()
	if config.StalenessWindow <= 0 {
		config.StalenessWindow = defaults.StalenessWindow
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Reaper{
		store:      taskStore,
		broker:     msgBroker,
		config:     config,
		logger:     logger.With("component", "reaper"),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the background sweep loop.
func (r *Reaper) Start() {
	r.logger.Info("starting reaper",
		"staleness_window", r.config.StalenessWindow,
		"interval", r.config.Interval)

	r.wg.Add(1)
	go r.run()
}

// Stop halts the sweep loop and waits for an in-progress sweep to finish.
func (r *Reaper) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.logger.Info("reaper stopped")
}

func (r *Reaper) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.sweep(r.ctx)
		}
	}
}

// sweep finalizes every running record older than the staleness window.
func (r *Reaper) sweep(ctx context.Context) {
	records, err := r.store.ListByStatus(ctx, domain.TaskStatusRunning, r.config.StalenessWindow)
	if err != nil {
		r.logger.Error("failed to list stale running tasks", "error", err)
		return
	}

	if len(records) == 0 {
		return
	}

	r.logger.Warn("found abandoned tasks", "count", len(records))

	for _, record := range records {
		taskErr := domain.NewTaskError(domain.ErrorKindWorkerLost,
			"worker lost before reporting an outcome")

		updated, err := r.store.MarkFailed(ctx, record.ID, taskErr)
		if err != nil {
			// The worker turned out to be alive and finished first; its
			// outcome stands.
			if errors.Is(err, store.ErrTaskFinalized) {
				r.logger.Debug("task finalized before the reaper reached it",
					"task_id", record.ID)
				continue
			}
			r.logger.Error("failed to finalize abandoned task",
				"task_id", record.ID,
				"error", err)
			continue
		}

		r.logger.Warn("marked abandoned task as failed",
			"task_id", updated.ID,
			"task_type", updated.TaskType,
			"stale_for", time.Since(record.UpdatedAt))

		if err := r.broker.Publish(ctx, domain.NewTaskEvent(updated)); err != nil {
			r.logger.Warn("failed to publish task event",
				"task_id", updated.ID,
				"error", err)
		}
	}
}
