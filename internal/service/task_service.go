package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/broker"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/registry"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/store"
)

// TaskService provides task submission and status retrieval operations
type TaskService interface {
	// Submit validates the task type, records the task as pending and
	// enqueues it for execution. The returned record carries the ID callers
	// use for all later status queries.
	Submit(ctx context.Context, taskType string, params map[string]any) (*domain.TaskRecord, error)

	// GetResult retrieves the current record for a task.
	GetResult(ctx context.Context, taskID uuid.UUID) (*domain.TaskRecord, error)

	// TaskTypes returns the names of all task types this deployment accepts.
	TaskTypes() []string
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	taskStore store.TaskStore
	broker    broker.Broker
	registry  *registry.Registry
	logger    *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	msgBroker broker.Broker,
	reg *registry.Registry,
	logger *slog.Logger,
) (TaskService, error) {
	// Validate dependencies
	if taskStore == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "taskStore cannot be nil",
			Err:       nil,
		}
	}
	if msgBroker == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "broker cannot be nil",
			Err:       nil,
		}
	}
	if reg == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "registry cannot be nil",
			Err:       nil,
		}
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		taskStore: taskStore,
		broker:    msgBroker,
		registry:  reg,
		logger:    logger.With("component", "task_service"),
	}, nil
}

// Submit records a new pending task and enqueues it for execution.
// The task type is validated against the registry before any side effect, and
// the record is persisted before the message is enqueued so a worker can
// never observe a message without its record.
func (s *taskServiceImpl) Submit(
	ctx context.Context,
	taskType string,
	params map[string]any,
) (*domain.TaskRecord, error) {
	// 1. Reject unknown task types before any side effect
	if !s.registry.Contains(taskType) {
		s.logger.Warn("rejected submission for unknown task type",
			"task_type", taskType)
		return nil, ErrUnknownTaskType
	}

	// 2. Create a new record with pending status
	record, err := domain.NewTaskRecord(taskType)
	if err != nil {
		s.logger.Error("failed to create task record",
			"error", err,
			"task_type", taskType)
		return nil, NewTaskServiceError("submit_task", "failed to create task record", err)
	}

	// 3. Persist the record before anything hits the queue
	if err := s.taskStore.CreateTask(ctx, record); err != nil {
		s.logger.Error("failed to save task record",
			"error", err,
			"task_id", record.ID,
			"task_type", taskType)
		return nil, NewTaskServiceError("submit_task", "failed to save task record", err)
	}

	s.logger.Info("task record created with pending status",
		"task_id", record.ID,
		"task_type", taskType)

	// 4. Build the queue message
	msg, err := domain.NewTaskMessage(record.ID, taskType, params)
	if err != nil {
		s.rollbackSubmit(ctx, record.ID)
		s.logger.Error("failed to build task message",
			"error", err,
			"task_id", record.ID,
			"task_type", taskType)
		return nil, NewTaskServiceError("submit_task", "failed to build task message", err)
	}

	// 5. Enqueue; on failure roll the record back so no orphaned pending
	// record survives a broker outage. The ID has not been returned to the
	// caller yet, so nothing observable is lost.
	if err := s.broker.Enqueue(ctx, msg); err != nil {
		s.rollbackSubmit(ctx, record.ID)
		s.logger.Error("failed to enqueue task message",
			"error", err,
			"task_id", record.ID,
			"task_type", taskType)
		return nil, NewTaskServiceError("submit_task", "failed to enqueue task", err)
	}

	s.logger.Info("task enqueued successfully",
		"task_id", record.ID,
		"task_type", taskType)

	return record, nil
}

// rollbackSubmit removes a record whose submission could not complete.
func (s *taskServiceImpl) rollbackSubmit(ctx context.Context, taskID uuid.UUID) {
	if err := s.taskStore.DeleteTask(ctx, taskID); err != nil {
		s.logger.Error("failed to roll back task record after enqueue failure",
			"error", err,
			"task_id", taskID)
	}
}

// GetResult retrieves the current record for a task.
func (s *taskServiceImpl) GetResult(ctx context.Context, taskID uuid.UUID) (*domain.TaskRecord, error) {
	record, err := s.taskStore.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			s.logger.Debug("task not found", "task_id", taskID)
			return nil, ErrTaskNotFound
		}

		s.logger.Error("failed to retrieve task record",
			"error", err,
			"task_id", taskID)
		return nil, NewTaskServiceError("get_result", "failed to retrieve task record", err)
	}

	s.logger.Debug("retrieved task record successfully",
		"task_id", taskID,
		"task_type", record.TaskType,
		"status", record.Status)

	return record, nil
}

// TaskTypes returns the names of all registered task types.
func (s *taskServiceImpl) TaskTypes() []string {
	return s.registry.Types()
}
