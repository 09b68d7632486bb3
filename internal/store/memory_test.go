package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
)

// newPendingRecord creates a valid pending record for store tests.
func newPendingRecord(t *testing.T) *domain.TaskRecord {
	t.Helper()
	record, err := domain.NewTaskRecord("test_task")
	require.NoError(t, err)
	return record
}

func TestMemoryTaskStoreCreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryTaskStore()
	record := newPendingRecord(t)

	require.NoError(t, s.CreateTask(ctx, record))

	got, err := s.GetTask(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.TaskType, got.TaskType)
	assert.Equal(t, domain.TaskStatusPending, got.Status)

	// The store hands out clones; mutating them must not affect stored state
	got.Status = domain.TaskStatusFailed
	again, err := s.GetTask(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, again.Status)
}

func TestMemoryTaskStoreCreateDuplicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryTaskStore()
	record := newPendingRecord(t)

	require.NoError(t, s.CreateTask(ctx, record))

	err := s.CreateTask(ctx, record)
	assert.ErrorIs(t, err, ErrTaskExists)
}

func TestMemoryTaskStoreCreateInvalid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryTaskStore()

	invalid := &domain.TaskRecord{ID: uuid.New(), TaskType: "", Status: domain.TaskStatusPending}
	err := s.CreateTask(ctx, invalid)
	assert.ErrorIs(t, err, domain.ErrEmptyTaskType)
}

func TestMemoryTaskStoreGetMissing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryTaskStore()

	_, err := s.GetTask(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestMemoryTaskStoreMarkRunning(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryTaskStore()
	record := newPendingRecord(t)
	require.NoError(t, s.CreateTask(ctx, record))

	got, err := s.MarkRunning(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusRunning, got.Status)

	// Marking a running record again is a no-op, not an error; redelivered
	// messages rely on this.
	again, err := s.MarkRunning(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusRunning, again.Status)

	// Unknown IDs surface ErrTaskNotFound
	_, err = s.MarkRunning(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestMemoryTaskStoreMarkCompleted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryTaskStore()
	record := newPendingRecord(t)
	require.NoError(t, s.CreateTask(ctx, record))

	// Completing a task that never started running is a protocol violation
	_, err := s.MarkCompleted(ctx, record.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.MarkRunning(ctx, record.ID)
	require.NoError(t, err)

	result := json.RawMessage(`{"approved_count":7}`)
	got, err := s.MarkCompleted(ctx, record.ID, result)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.JSONEq(t, string(result), string(got.Result))

	// Terminal records are immutable
	_, err = s.MarkCompleted(ctx, record.ID, result)
	assert.ErrorIs(t, err, ErrTaskFinalized)
	_, err = s.MarkFailed(ctx, record.ID, domain.NewTaskError(domain.ErrorKindExecutorFailure, "late"))
	assert.ErrorIs(t, err, ErrTaskFinalized)
	_, err = s.MarkRunning(ctx, record.ID)
	assert.ErrorIs(t, err, ErrTaskFinalized)
}

func TestMemoryTaskStoreMarkFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryTaskStore()
	record := newPendingRecord(t)
	require.NoError(t, s.CreateTask(ctx, record))

	_, err := s.MarkRunning(ctx, record.ID)
	require.NoError(t, err)

	taskErr := domain.NewTaskError(domain.ErrorKindExecutorFailure, "element not found")
	got, err := s.MarkFailed(ctx, record.ID, taskErr)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, domain.ErrorKindExecutorFailure, got.Error.Kind)
	assert.Nil(t, got.Result)
}

func TestMemoryTaskStoreTerminalRace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryTaskStore()
	record := newPendingRecord(t)
	require.NoError(t, s.CreateTask(ctx, record))
	_, err := s.MarkRunning(ctx, record.ID)
	require.NoError(t, err)

	// Two writers race to finalize the same record; exactly one must win.
	const writers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = s.MarkCompleted(ctx, record.ID, json.RawMessage(`{"ok":true}`))
			} else {
				_, err = s.MarkFailed(ctx, record.ID, domain.NewTaskError(domain.ErrorKindWorkerLost, "gone"))
			}
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrTaskFinalized)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one finalizer should win")

	got, err := s.GetTask(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, got.Status.Terminal())
}

func TestMemoryTaskStoreDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryTaskStore()
	record := newPendingRecord(t)
	require.NoError(t, s.CreateTask(ctx, record))

	require.NoError(t, s.DeleteTask(ctx, record.ID))

	_, err := s.GetTask(ctx, record.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	err = s.DeleteTask(ctx, record.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestMemoryTaskStoreListByStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryTaskStore()

	// A running record last touched an hour ago
	stale := newPendingRecord(t)
	require.NoError(t, stale.Start())
	stale.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.CreateTask(ctx, stale))

	// A running record touched just now
	fresh := newPendingRecord(t)
	require.NoError(t, fresh.Start())
	require.NoError(t, s.CreateTask(ctx, fresh))

	// A pending record that must never show up in running queries
	pending := newPendingRecord(t)
	require.NoError(t, s.CreateTask(ctx, pending))

	all, err := s.ListByStatus(ctx, domain.TaskStatusRunning, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	staleOnly, err := s.ListByStatus(ctx, domain.TaskStatusRunning, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, staleOnly, 1)
	assert.Equal(t, stale.ID, staleOnly[0].ID)

	none, err := s.ListByStatus(ctx, domain.TaskStatusRunning, 2*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, none)
}
