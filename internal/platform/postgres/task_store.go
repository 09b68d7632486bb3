package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/platform/logger"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using a
// PostgreSQL database as the storage backend. Every lifecycle transition is
// a conditional UPDATE keyed on the current status, so concurrent writers
// are serialized by the database and a terminal record can never be
// overwritten.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With("component", "task_store"),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// CreateTask implements store.TaskStore.CreateTask
// It saves a new task record, handling domain validation.
// Returns store.ErrTaskExists if a record with the same ID already exists.
func (s *PostgresTaskStore) CreateTask(ctx context.Context, record *domain.TaskRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("task record validation failed during create",
			"task_id", record.ID,
			"error", err)
		return err
	}

	query := `
		INSERT INTO tasks (id, task_type, status, result, error_kind, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	errorKind, errorMessage := errorColumns(record.Error)

	_, err := s.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.TaskType,
		record.Status,
		resultColumn(record.Result),
		errorKind,
		errorMessage,
		record.CreatedAt,
		record.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate task ID during create", "task_id", record.ID)
			return store.ErrTaskExists
		}

		log.Error("failed to create task record",
			"task_id", record.ID,
			"task_type", record.TaskType,
			"error", err)
		return fmt.Errorf("failed to create task record: %w", err)
	}

	log.Debug("task record created",
		"task_id", record.ID,
		"task_type", record.TaskType)
	return nil
}

// GetTask implements store.TaskStore.GetTask
// Returns store.ErrTaskNotFound if the record does not exist.
func (s *PostgresTaskStore) GetTask(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, task_type, status, result, error_kind, error_message, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	record, err := scanTaskRow(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task record",
			"task_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to get task record: %w", err)
	}

	return record, nil
}

// MarkRunning implements store.TaskStore.MarkRunning
// The transition is a conditional UPDATE from pending; when the update hits
// nothing, the current row decides whether that is a benign redelivery, a
// finalized record, or a missing one.
func (s *PostgresTaskStore) MarkRunning(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING id, task_type, status, result, error_kind, error_message, created_at, updated_at
	`

	record, err := scanTaskRow(s.db.QueryRowContext(
		ctx,
		query,
		domain.TaskStatusRunning,
		time.Now().UTC(),
		id,
		domain.TaskStatusPending,
	))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to mark task running",
			"task_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to mark task running: %w", err)
	}

	current, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case current.Status == domain.TaskStatusRunning:
		return current, nil
	case current.Status.Terminal():
		return nil, store.ErrTaskFinalized
	default:
		return nil, store.ErrInvalidTransition
	}
}

// MarkCompleted implements store.TaskStore.MarkCompleted
// Only a running record can complete; a missed conditional UPDATE is
// classified by reading the current row.
func (s *PostgresTaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, result json.RawMessage) (*domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, result = $2, error_kind = NULL, error_message = NULL, updated_at = $3
		WHERE id = $4 AND status = $5
		RETURNING id, task_type, status, result, error_kind, error_message, created_at, updated_at
	`

	record, err := scanTaskRow(s.db.QueryRowContext(
		ctx,
		query,
		domain.TaskStatusCompleted,
		resultColumn(result),
		time.Now().UTC(),
		id,
		domain.TaskStatusRunning,
	))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to mark task completed",
			"task_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to mark task completed: %w", err)
	}

	return nil, s.classifyMissedFinalize(ctx, id)
}

// MarkFailed implements store.TaskStore.MarkFailed
func (s *PostgresTaskStore) MarkFailed(ctx context.Context, id uuid.UUID, taskErr *domain.TaskError) (*domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	errorKind, errorMessage := errorColumns(taskErr)

	query := `
		UPDATE tasks
		SET status = $1, result = NULL, error_kind = $2, error_message = $3, updated_at = $4
		WHERE id = $5 AND status = $6
		RETURNING id, task_type, status, result, error_kind, error_message, created_at, updated_at
	`

	record, err := scanTaskRow(s.db.QueryRowContext(
		ctx,
		query,
		domain.TaskStatusFailed,
		errorKind,
		errorMessage,
		time.Now().UTC(),
		id,
		domain.TaskStatusRunning,
	))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to mark task failed",
			"task_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to mark task failed: %w", err)
	}

	return nil, s.classifyMissedFinalize(ctx, id)
}

// classifyMissedFinalize turns a missed terminal UPDATE into the right
// sentinel by reading the current row state.
func (s *PostgresTaskStore) classifyMissedFinalize(ctx context.Context, id uuid.UUID) error {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if current.Status.Terminal() {
		return store.ErrTaskFinalized
	}
	return store.ErrInvalidTransition
}

// DeleteTask implements store.TaskStore.DeleteTask
// Returns store.ErrTaskNotFound if the record does not exist.
func (s *PostgresTaskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM tasks WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete task record",
			"task_id", id,
			"error", err)
		return fmt.Errorf("failed to delete task record: %w", err)
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			log.Error("failed to get rows affected",
				"task_id", id,
				"error", err)
		}
		return err
	}

	log.Debug("task record deleted", "task_id", id)
	return nil
}

// ListByStatus implements store.TaskStore.ListByStatus
// Returns an empty slice if no records match.
func (s *PostgresTaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var query string
	var args []any

	if olderThan > 0 {
		query = `
			SELECT id, task_type, status, result, error_kind, error_message, created_at, updated_at
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = []any{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = `
			SELECT id, task_type, status, result, error_kind, error_message, created_at, updated_at
			FROM tasks
			WHERE status = $1
			ORDER BY created_at ASC
		`
		args = []any{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("failed to query tasks by status: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", "error", err)
		}
	}()

	records := make([]*domain.TaskRecord, 0)
	for rows.Next() {
		record, err := scanTaskRow(rows)
		if err != nil {
			log.Error("failed to scan task row",
				"status", status,
				"error", err)
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return records, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTaskRow reads one tasks row into a domain record.
func scanTaskRow(row rowScanner) (*domain.TaskRecord, error) {
	var record domain.TaskRecord
	var status string
	var result []byte
	var errorKind, errorMessage sql.NullString

	err := row.Scan(
		&record.ID,
		&record.TaskType,
		&status,
		&result,
		&errorKind,
		&errorMessage,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Status = domain.TaskStatus(status)
	if len(result) > 0 {
		record.Result = json.RawMessage(result)
	}
	if errorKind.Valid {
		record.Error = &domain.TaskError{
			Kind:    domain.ErrorKind(errorKind.String),
			Message: errorMessage.String,
		}
	}

	return &record, nil
}

// resultColumn converts a result payload into its column value, keeping the
// column NULL when there is no result.
func resultColumn(result json.RawMessage) any {
	if len(result) == 0 {
		return nil
	}
	return []byte(result)
}

// errorColumns splits a task error into its two nullable columns.
func errorColumns(taskErr *domain.TaskError) (kind, message sql.NullString) {
	if taskErr == nil {
		return sql.NullString{}, sql.NullString{}
	}

	return sql.NullString{String: string(taskErr.Kind), Valid: true},
		sql.NullString{String: taskErr.Message, Valid: true}
}
