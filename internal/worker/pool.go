// Package worker implements the pool that consumes task messages from the
// broker and drives each task through its lifecycle: mark running, execute,
// record the outcome, publish events. Redelivered messages are tolerated by
// design; the task store's compare-and-set transitions make duplicate
// processing converge on a single recorded outcome.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/broker"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/registry"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/store"
)

// dequeueRetryDelay is how long a worker waits after a failed dequeue before
// trying again, so a broker outage does not turn into a hot loop.
const dequeueRetryDelay = time.Second

// Config holds configuration for the worker pool
type Config struct {
	// Count determines how many concurrent workers consume tasks
	Count int

	// ExecutionTimeout bounds a single task execution.
	// Zero lets tasks run unbounded.
	ExecutionTimeout time.Duration

	// RecordRetryAttempts is how many times a worker looks for the task
	// record of a freshly dequeued message before dropping the message.
	RecordRetryAttempts int

	// RecordRetryBackoff is the wait between record lookups
	RecordRetryBackoff time.Duration
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		Count:               2,
		ExecutionTimeout:    30 * time.Minute,
		RecordRetryAttempts: 3,
		RecordRetryBackoff:  50 * time.Millisecond,
	}
}

// Pool manages background task processing
type Pool struct {
	broker     broker.Broker
	store      store.TaskStore
	registry   *registry.Registry
	config     Config
	logger     *slog.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewPool creates a new worker pool. Zero config fields fall back to the
// defaults from DefaultConfig.
func NewPool(
	msgBroker broker.Broker,
	taskStore store.TaskStore,
	reg *registry.Registry,
	config Config,
	logger *slog.Logger,
) *Pool {
	defaults := DefaultConfig()
	if config.Count <= 0 {
		config.Count = defaults.Count
	}
	if config.RecordRetryAttempts <= 0 {
		config.RecordRetryAttempts = defaults.RecordRetryAttempts
	}
	if config.RecordRetryBackoff <= 0 {
		config.RecordRetryBackoff = defaults.RecordRetryBackoff
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		broker:     msgBroker,
		store:      taskStore,
		registry:   reg,
		config:     config,
		logger:     logger.With("component", "worker_pool"),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	p.logger.Info("starting worker pool",
		"worker_count", p.config.Count,
		"execution_timeout", p.config.ExecutionTimeout)

	for i := 0; i < p.config.Count; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop shuts the pool down: no new messages are dequeued and in-flight tasks
// run to completion. It returns early with the context's error if the
// drain outlives the context.
func (p *Pool) Stop(ctx context.Context) error {
	p.cancelFunc()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool stop timed out with tasks still in flight")
		return ctx.Err()
	}
}

// worker consumes messages until the pool shuts down
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		msg, err := p.broker.Dequeue(p.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, broker.ErrBrokerClosed) {
				p.logger.Debug("stopping worker", "worker_id", id)
				return
			}

			p.logger.Error("failed to dequeue task message",
				"worker_id", id,
				"error", err)
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(dequeueRetryDelay):
			}
			continue
		}

		p.processMessage(msg, id)
	}
}

// processMessage drives a single dequeued message through the task
// lifecycle. Store operations use a background context so that in-flight
// work survives pool shutdown.
func (p *Pool) processMessage(msg domain.TaskMessage, workerID int) {
	ctx := context.Background()
	logger := p.logger.With(
		"task_id", msg.TaskID,
		"task_type", msg.TaskType,
		"worker_id", workerID,
	)

	record, err := p.loadRecord(ctx, msg.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			// A message must never exist without its record; drop it rather
			// than execute work nobody can observe.
			logger.Error("dropping task message with no matching record")
		} else {
			logger.Error("dropping task message, record unavailable", "error", err)
		}
		return
	}

	// Redelivery of an already finished task is a no-op
	if record.Status.Terminal() {
		logger.Info("skipping redelivered task, record already terminal",
			"status", record.Status)
		return
	}

	record, err = p.store.MarkRunning(ctx, msg.TaskID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTaskFinalized):
			logger.Info("skipping redelivered task, finalized since dequeue")
		case errors.Is(err, store.ErrTaskNotFound):
			logger.Error("task record disappeared before execution")
		default:
			logger.Error("failed to mark task running", "error", err)
		}
		return
	}

	p.publishEvent(ctx, logger, record)

	logger.Info("processing task")

	result, execErr := p.executeTask(msg)

	if execErr != nil {
		logger.Error("task execution failed", "error", execErr)

		// An executor that returns a TaskError has already classified its
		// failure; everything else is wrapped here.
		var taskErr *domain.TaskError
		if !errors.As(execErr, &taskErr) {
			kind := domain.ErrorKindExecutorFailure
			if errors.Is(execErr, context.DeadlineExceeded) {
				kind = domain.ErrorKindTimeout
			}
			taskErr = domain.NewTaskError(kind, execErr.Error())
		}

		record, err = p.store.MarkFailed(ctx, msg.TaskID, taskErr)
	} else {
		logger.Info("task completed successfully")
		record, err = p.store.MarkCompleted(ctx, msg.TaskID, result)
	}

	if err != nil {
		if errors.Is(err, store.ErrTaskFinalized) {
			// A duplicate execution lost the race; the first outcome stands.
			logger.Info("task already finalized, discarding duplicate outcome")
		} else {
			logger.Error("failed to record task outcome", "error", err)
		}
		return
	}

	p.publishEvent(ctx, logger, record)
}

// loadRecord fetches the task record for a dequeued message, retrying a few
// times to ride out transient store hiccups before giving up.
func (p *Pool) loadRecord(ctx context.Context, taskID uuid.UUID) (*domain.TaskRecord, error) {
	var lastErr error
	for attempt := 0; attempt < p.config.RecordRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.config.RecordRetryBackoff):
			case <-p.ctx.Done():
				return nil, lastErr
			}
		}

		record, err := p.store.GetTask(ctx, taskID)
		if err == nil {
			return record, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// executeTask resolves the executor and runs it under the configured
// deadline, converting panics into ordinary errors so one bad task cannot
// take down a worker.
func (p *Pool) executeTask(msg domain.TaskMessage) (result json.RawMessage, err error) {
	executor, err := p.registry.Resolve(msg.TaskType)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if p.config.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ExecutionTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("task executor panicked: %v", r)
		}
	}()

	value, err := executor.Execute(ctx, msg.Params)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task result: %w", err)
	}

	return data, nil
}

// publishEvent announces a status transition. Event delivery is best-effort:
// a publish failure is logged, never allowed to fail the task.
func (p *Pool) publishEvent(ctx context.Context, logger *slog.Logger, record *domain.TaskRecord) {
	if err := p.broker.Publish(ctx, domain.NewTaskEvent(record)); err != nil {
		logger.Warn("failed to publish task event",
			"status", record.Status,
			"error", err)
	}
}
