package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"

	// TaskStatusNotFound is reported to callers that look up an unknown task
	// ID. It is never stored on a record and is not part of the lifecycle.
	TaskStatusNotFound TaskStatus = "not_found"
)

// Common validation errors for TaskRecord
var (
	ErrEmptyTaskID             = errors.New("task ID cannot be empty")
	ErrEmptyTaskType           = errors.New("task type cannot be empty")
	ErrInvalidTaskStatus       = errors.New("invalid task status")
	ErrResultOnNonCompleted    = errors.New("result is only valid on a completed task")
	ErrErrorOnNonFailed        = errors.New("error detail is only valid on a failed task")
	ErrInvalidStatusTransition = errors.New("invalid task status transition")
)

// Terminal reports whether the status is a final lifecycle state.
// Terminal records never change again.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Rank orders lifecycle statuses by progress: pending < running < terminal.
// Both terminal statuses share the highest rank. Consumers use it to detect
// and suppress regressions when observations arrive out of order.
func (s TaskStatus) Rank() int {
	switch s {
	case TaskStatusPending:
		return 0
	case TaskStatusRunning:
		return 1
	case TaskStatusCompleted, TaskStatusFailed:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// transition. The only legal moves are pending->running, running->completed
// and running->failed.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusRunning
	case TaskStatusRunning:
		return next == TaskStatusCompleted || next == TaskStatusFailed
	default:
		return false
	}
}

// isValidTaskStatus checks if the given status is a storable lifecycle status.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// ErrorKind classifies why a task failed
type ErrorKind string

// Possible error kinds recorded on failed tasks
const (
	// ErrorKindExecutorFailure covers errors and panics raised by the task
	// handler itself.
	ErrorKindExecutorFailure ErrorKind = "executor_failure"

	// ErrorKindWorkerLost marks tasks whose worker died mid-execution and
	// were finalized by the stale-task reaper.
	ErrorKindWorkerLost ErrorKind = "worker_lost"

	// ErrorKindTimeout marks tasks that exceeded the execution deadline.
	ErrorKindTimeout ErrorKind = "timeout"
)

// TaskError captures the failure recorded on a failed task.
type TaskError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewTaskError creates a TaskError with the given kind and message.
func NewTaskError(kind ErrorKind, message string) *TaskError {
	return &TaskError{Kind: kind, Message: message}
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// TaskRecord is the authoritative record of a submitted task. It tracks the
// task through its lifecycle and, once terminal, carries either the result
// (completed) or the failure detail (failed), never both.
type TaskRecord struct {
	ID        uuid.UUID       `json:"id"`
	TaskType  string          `json:"task_type"`
	Status    TaskStatus      `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *TaskError      `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewTaskRecord creates a pending TaskRecord for the given task type.
// It generates a new UUID for the record and sets the creation/update
// timestamps. Returns an error if validation fails.
func NewTaskRecord(taskType string) (*TaskRecord, error) {
	now := time.Now().UTC()
	record := &TaskRecord{
		ID:        uuid.New(),
		TaskType:  taskType,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}

// Validate checks if the TaskRecord has valid data.
// Returns an error if any field fails validation.
func (t *TaskRecord) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.TaskType == "" {
		return ErrEmptyTaskType
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	if t.Result != nil && t.Status != TaskStatusCompleted {
		return ErrResultOnNonCompleted
	}

	if t.Error != nil && t.Status != TaskStatusFailed {
		return ErrErrorOnNonFailed
	}

	return nil
}

// Start transitions the record from pending to running and updates the
// UpdatedAt timestamp. Returns ErrInvalidStatusTransition if the record is
// not pending.
func (t *TaskRecord) Start() error {
	if !t.Status.CanTransitionTo(TaskStatusRunning) {
		return ErrInvalidStatusTransition
	}

	t.Status = TaskStatusRunning
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete transitions the record from running to completed, storing the
// result payload. Returns ErrInvalidStatusTransition if the record is not
// running.
func (t *TaskRecord) Complete(result json.RawMessage) error {
	if !t.Status.CanTransitionTo(TaskStatusCompleted) {
		return ErrInvalidStatusTransition
	}

	t.Status = TaskStatusCompleted
	t.Result = result
	t.Error = nil
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail transitions the record from running to failed, storing the failure
// detail. Returns ErrInvalidStatusTransition if the record is not running.
func (t *TaskRecord) Fail(taskErr *TaskError) error {
	if !t.Status.CanTransitionTo(TaskStatusFailed) {
		return ErrInvalidStatusTransition
	}

	t.Status = TaskStatusFailed
	t.Error = taskErr
	t.Result = nil
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Clone returns a deep copy of the record. Stores hand out clones so callers
// cannot mutate shared state.
func (t *TaskRecord) Clone() *TaskRecord {
	clone := *t
	if t.Result != nil {
		clone.Result = make(json.RawMessage, len(t.Result))
		copy(clone.Result, t.Result)
	}
	if t.Error != nil {
		errCopy := *t.Error
		clone.Error = &errCopy
	}
	return &clone
}
