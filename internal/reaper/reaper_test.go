package reaper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/broker"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/store"
)

const testTimeout = 2 * time.Second

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// seedTask stores a record in the given status with its last update pushed
// back by age, simulating work a crashed worker left behind.
func seedTask(t *testing.T, taskStore store.TaskStore, status domain.TaskStatus, age time.Duration) *domain.TaskRecord {
	t.Helper()

	record, err := domain.NewTaskRecord("approve_batches")
	require.NoError(t, err)
	record.Status = status
	record.UpdatedAt = time.Now().UTC().Add(-age)
	require.NoError(t, taskStore.CreateTask(context.Background(), record))

	return record
}

func TestReaper_SweepFinalizesStaleRunningTask(t *testing.T) {
	t.Parallel()

	taskStore := store.NewMemoryTaskStore()
	msgBroker := broker.NewMemoryBroker(16, newTestLogger())
	defer msgBroker.Close()

	stale := seedTask(t, taskStore, domain.TaskStatusRunning, 2*time.Hour)

	r := NewReaper(taskStore, msgBroker, Config{StalenessWindow: 30 * time.Minute}, newTestLogger())
	r.sweep(context.Background())

	stored, err := taskStore.GetTask(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Equal(t, domain.ErrorKindWorkerLost, stored.Error.Kind)
	assert.Contains(t, stored.Error.Message, "worker lost")
}

func TestReaper_SweepLeavesHealthyTasksAlone(t *testing.T) {
	t.Parallel()

	taskStore := store.NewMemoryTaskStore()
	msgBroker := broker.NewMemoryBroker(16, newTestLogger())
	defer msgBroker.Close()

	// Freshly updated running work is in progress, not abandoned; pending
	// records are waiting on the queue however old they are.
	fresh := seedTask(t, taskStore, domain.TaskStatusRunning, 0)
	pending := seedTask(t, taskStore, domain.TaskStatusPending, 2*time.Hour)

	r := NewReaper(taskStore, msgBroker, Config{StalenessWindow: 30 * time.Minute}, newTestLogger())
	r.sweep(context.Background())

	stored, err := taskStore.GetTask(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusRunning, stored.Status)

	stored, err = taskStore.GetTask(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
}

func TestReaper_SweepPublishesWorkerLostEvent(t *testing.T) {
	t.Parallel()

	taskStore := store.NewMemoryTaskStore()
	msgBroker := broker.NewMemoryBroker(16, newTestLogger())
	defer msgBroker.Close()

	stale := seedTask(t, taskStore, domain.TaskStatusRunning, 2*time.Hour)

	sub, err := msgBroker.Subscribe(context.Background(), stale.ID)
	require.NoError(t, err)
	defer sub.Close()

	r := NewReaper(taskStore, msgBroker, Config{StalenessWindow: 30 * time.Minute}, newTestLogger())
	r.sweep(context.Background())

	select {
	case event := <-sub.Events():
		assert.Equal(t, stale.ID, event.TaskID)
		assert.Equal(t, domain.TaskStatusFailed, event.Status)
		require.NotNil(t, event.Error)
		assert.Equal(t, domain.ErrorKindWorkerLost, event.Error.Kind)
	case <-time.After(testTimeout):
		t.Fatal("Timed out waiting for the worker lost event")
	}
}

func TestReaper_StartSweepsPeriodically(t *testing.T) {
	t.Parallel()

	taskStore := store.NewMemoryTaskStore()
	msgBroker := broker.NewMemoryBroker(16, newTestLogger())
	defer msgBroker.Close()

	stale := seedTask(t, taskStore, domain.TaskStatusRunning, 2*time.Hour)

	sub, err := msgBroker.Subscribe(context.Background(), stale.ID)
	require.NoError(t, err)
	defer sub.Close()

	config := Config{
		StalenessWindow: 30 * time.Minute,
		Interval:        20 * time.Millisecond,
	}
	r := NewReaper(taskStore, msgBroker, config, newTestLogger())
	r.Start()
	defer r.Stop()

	select {
	case event := <-sub.Events():
		assert.Equal(t, domain.TaskStatusFailed, event.Status)
	case <-time.After(testTimeout):
		t.Fatal("Timed out waiting for the reaper to finalize the stale task")
	}
}

func TestNewReaper_AppliesConfigDefaults(t *testing.T) {
	t.Parallel()

	taskStore := store.NewMemoryTaskStore()
	msgBroker := broker.NewMemoryBroker(16, newTestLogger())
	defer msgBroker.Close()

	r := NewReaper(taskStore, msgBroker, Config{}, newTestLogger())

	defaults := DefaultConfig()
	assert.Equal(t, defaults.StalenessWindow, r.config.StalenessWindow)
	assert.Equal(t, defaults.Interval, r.config.Interval)
}
