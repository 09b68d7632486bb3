package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for TaskMessage
var (
	ErrEmptyMessageTaskID   = errors.New("message task ID cannot be empty")
	ErrEmptyMessageTaskType = errors.New("message task type cannot be empty")
)

// TaskMessage is the unit of work placed on the broker queue. It carries
// everything a worker needs to execute the task; the authoritative state
// lives in the result store, keyed by TaskID.
type TaskMessage struct {
	TaskID     uuid.UUID      `json:"task_id"`
	TaskType   string         `json:"task_type"`
	Params     map[string]any `json:"params,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// NewTaskMessage creates a TaskMessage for the given task, stamping the
// enqueue time. Returns an error if validation fails.
func NewTaskMessage(taskID uuid.UUID, taskType string, params map[string]any) (TaskMessage, error) {
	msg := TaskMessage{
		TaskID:     taskID,
		TaskType:   taskType,
		Params:     params,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := msg.Validate(); err != nil {
		return TaskMessage{}, err
	}

	return msg, nil
}

// Validate checks if the TaskMessage has valid data.
func (m TaskMessage) Validate() error {
	if m.TaskID == uuid.Nil {
		return ErrEmptyMessageTaskID
	}

	if m.TaskType == "" {
		return ErrEmptyMessageTaskType
	}

	return nil
}

// TaskEvent is a status-transition notification published for live
// subscribers. Events mirror the record at the moment of transition: the
// result rides along only on completed events and the error detail only on
// failed events.
type TaskEvent struct {
	TaskID    uuid.UUID       `json:"task_id"`
	Status    TaskStatus      `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *TaskError      `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewTaskEvent builds the event describing the record's current state.
func NewTaskEvent(record *TaskRecord) TaskEvent {
	event := TaskEvent{
		TaskID:    record.ID,
		Status:    record.Status,
		Timestamp: time.Now().UTC(),
	}

	switch record.Status {
	case TaskStatusCompleted:
		event.Result = record.Result
	case TaskStatusFailed:
		event.Error = record.Error
	}

	return event
}

// Terminal reports whether the event announces a final lifecycle state.
func (e TaskEvent) Terminal() bool {
	return e.Status.Terminal()
}
