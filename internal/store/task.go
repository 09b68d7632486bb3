package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
)

// TaskStore defines the interface for task record persistence. It is the
// single authority on task lifecycle state: every transition goes through a
// compare-and-set so that concurrent writers (workers racing on redelivered
// messages, the stale-task reaper) cannot regress a status or touch a
// terminal record.
// Version: 1.0
type TaskStore interface {
	// CreateTask saves a new pending task record.
	// Returns ErrTaskExists if a record with the same ID already exists.
	// Returns validation errors from the domain TaskRecord if data is invalid.
	CreateTask(ctx context.Context, record *domain.TaskRecord) error

	// GetTask retrieves a task record by its unique ID.
	// Returns ErrTaskNotFound if the record does not exist.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error)

	// MarkRunning transitions a pending record to running and returns the
	// updated record. Calling it on a record that is already running is a
	// no-op returning the current record, so redelivered work can proceed.
	// Returns ErrTaskFinalized if the record is terminal and ErrTaskNotFound
	// if it does not exist.
	MarkRunning(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error)

	// MarkCompleted transitions a running record to completed, storing the
	// result payload, and returns the updated record.
	// Returns ErrTaskFinalized if the record is already terminal,
	// ErrInvalidTransition if it never started running, and ErrTaskNotFound
	// if it does not exist.
	MarkCompleted(ctx context.Context, id uuid.UUID, result json.RawMessage) (*domain.TaskRecord, error)

	// MarkFailed transitions a running record to failed, storing the failure
	// detail, and returns the updated record. Error semantics match
	// MarkCompleted.
	MarkFailed(ctx context.Context, id uuid.UUID, taskErr *domain.TaskError) (*domain.TaskRecord, error)

	// DeleteTask removes a task record. It exists for submission rollback
	// (a record whose enqueue failed must not linger) and for external
	// retention sweeps; the core never deletes records on its own schedule.
	// Returns ErrTaskNotFound if the record does not exist.
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// ListByStatus retrieves records with the given status. If olderThan is
	// non-zero, only records whose last update is older than the duration
	// are returned. Used by the stale-task reaper to find abandoned work.
	// Returns an empty slice if no records match.
	ListByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.TaskRecord, error)
}
