package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
)

// MemoryTaskStore is an in-memory TaskStore backed by a mutex-guarded map.
// It is the default store for single-process deployments and tests. Records
// are cloned on the way in and out so callers never share mutable state with
// the store.
type MemoryTaskStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*domain.TaskRecord
}

// Ensure MemoryTaskStore implements the TaskStore interface.
var _ TaskStore = (*MemoryTaskStore)(nil)

// NewMemoryTaskStore creates an empty in-memory task store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		records: make(map[uuid.UUID]*domain.TaskRecord),
	}
}

// CreateTask saves a new pending task record.
// Returns ErrTaskExists if a record with the same ID already exists.
func (s *MemoryTaskStore) CreateTask(ctx context.Context, record *domain.TaskRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; ok {
		return ErrTaskExists
	}

	s.records[record.ID] = record.Clone()
	return nil
}

// GetTask retrieves a task record by its unique ID.
// Returns ErrTaskNotFound if the record does not exist.
func (s *MemoryTaskStore) GetTask(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrTaskNotFound
	}

	return record.Clone(), nil
}

// MarkRunning transitions a pending record to running. A record that is
// already running is returned unchanged so redelivered work can proceed.
func (s *MemoryTaskStore) MarkRunning(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrTaskNotFound
	}

	if record.Status.Terminal() {
		return nil, ErrTaskFinalized
	}

	if record.Status == domain.TaskStatusRunning {
		return record.Clone(), nil
	}

	if err := record.Start(); err != nil {
		return nil, ErrInvalidTransition
	}

	return record.Clone(), nil
}

// MarkCompleted transitions a running record to completed, storing the result.
func (s *MemoryTaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, result json.RawMessage) (*domain.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrTaskNotFound
	}

	if record.Status.Terminal() {
		return nil, ErrTaskFinalized
	}

	if err := record.Complete(result); err != nil {
		return nil, ErrInvalidTransition
	}

	return record.Clone(), nil
}

// MarkFailed transitions a running record to failed, storing the failure detail.
func (s *MemoryTaskStore) MarkFailed(ctx context.Context, id uuid.UUID, taskErr *domain.TaskError) (*domain.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrTaskNotFound
	}

	if record.Status.Terminal() {
		return nil, ErrTaskFinalized
	}

	if err := record.Fail(taskErr); err != nil {
		return nil, ErrInvalidTransition
	}

	return record.Clone(), nil
}

// DeleteTask removes a task record.
// Returns ErrTaskNotFound if the record does not exist.
func (s *MemoryTaskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return ErrTaskNotFound
	}

	delete(s.records, id)
	return nil
}

// ListByStatus retrieves records with the given status, optionally filtered
// to those whose last update is older than olderThan.
func (s *MemoryTaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-olderThan)

	matches := make([]*domain.TaskRecord, 0)
	for _, record := range s.records {
		if record.Status != status {
			continue
		}
		if olderThan > 0 && !record.UpdatedAt.Before(cutoff) {
			continue
		}
		matches = append(matches, record.Clone())
	}

	return matches, nil
}
