package redis

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/broker"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
)

// testTimeout bounds waits on broker deliveries. Dequeue polls Redis in two
// second intervals, so waits that must outlive a poll get extra headroom.
const testTimeout = 5 * time.Second

// isIntegrationTestEnvironment returns true when a Redis instance is
// available for integration testing.
func isIntegrationTestEnvironment() bool {
	return os.Getenv("REDIS_URL") != ""
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// newTestClient connects to the Redis instance named by REDIS_URL.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	client, err := NewClient(ctx, os.Getenv("REDIS_URL"))
	require.NoError(t, err, "Failed to connect to Redis")
	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

// uniqueQueue returns a queue name no other test shares, so tests running
// against a shared Redis instance cannot steal each other's messages.
func uniqueQueue() string {
	return "test-" + uuid.NewString()
}

func newTestBroker(t *testing.T) *RedisBroker {
	t.Helper()

	b := NewRedisBroker(newTestClient(t), uniqueQueue(), newTestLogger())
	t.Cleanup(func() {
		_ = b.Close()
	})

	return b
}

func newTestMessage(t *testing.T, taskType string) domain.TaskMessage {
	t.Helper()

	msg, err := domain.NewTaskMessage(uuid.New(), taskType, map[string]any{"source": "integration"})
	require.NoError(t, err, "Failed to build task message")
	return msg
}

// receiveEvent waits for the next event on the subscription or fails the test.
func receiveEvent(t *testing.T, sub broker.Subscription) domain.TaskEvent {
	t.Helper()

	select {
	case event, ok := <-sub.Events():
		require.True(t, ok, "Subscription closed before the expected event arrived")
		return event
	case <-time.After(testTimeout):
		t.Fatal("Timed out waiting for task event")
		return domain.TaskEvent{}
	}
}

func TestRedisBroker_Integration(t *testing.T) {
	if !isIntegrationTestEnvironment() {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}
	t.Parallel()

	ctx := context.Background()

	t.Run("EnqueueDequeueRoundTrip", func(t *testing.T) {
		b := newTestBroker(t)
		msg := newTestMessage(t, "transcribe_audio")

		require.NoError(t, b.Enqueue(ctx, msg), "Failed to enqueue message")

		dequeueCtx, cancel := context.WithTimeout(ctx, testTimeout)
		defer cancel()
		got, err := b.Dequeue(dequeueCtx)
		require.NoError(t, err, "Failed to dequeue message")

		assert.Equal(t, msg.TaskID, got.TaskID, "Task ID should survive the round trip")
		assert.Equal(t, msg.TaskType, got.TaskType, "Task type should survive the round trip")
		assert.Equal(t, "integration", got.Params["source"], "Params should survive the round trip")
		assert.WithinDuration(t, msg.EnqueuedAt, got.EnqueuedAt, time.Second,
			"Enqueue timestamp should survive the round trip")
	})

	t.Run("QueueIsFIFOAndDrainsToEmpty", func(t *testing.T) {
		b := newTestBroker(t)

		sent := make([]domain.TaskMessage, 0, 3)
		for i := 0; i < 3; i++ {
			msg := newTestMessage(t, "generate_report")
			require.NoError(t, b.Enqueue(ctx, msg), "Failed to enqueue message")
			sent = append(sent, msg)
		}

		dequeueCtx, cancel := context.WithTimeout(ctx, testTimeout)
		defer cancel()
		for i, want := range sent {
			got, err := b.Dequeue(dequeueCtx)
			require.NoError(t, err, "Failed to dequeue message %d", i)
			assert.Equal(t, want.TaskID, got.TaskID, "Messages should arrive in enqueue order")
		}

		// The queue is now empty, so a short deadline expires without a message
		emptyCtx, cancelEmpty := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancelEmpty()
		_, err := b.Dequeue(emptyCtx)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "Dequeue on an empty queue should honor the context deadline")
	})

	t.Run("CompetingConsumersEachReceiveOnce", func(t *testing.T) {
		client := newTestClient(t)
		queue := uniqueQueue()
		first := NewRedisBroker(client, queue, newTestLogger())
		second := NewRedisBroker(client, queue, newTestLogger())
		t.Cleanup(func() {
			_ = first.Close()
			_ = second.Close()
		})

		sent := make(map[uuid.UUID]bool)
		for i := 0; i < 4; i++ {
			msg := newTestMessage(t, "scrape_website")
			require.NoError(t, first.Enqueue(ctx, msg), "Failed to enqueue message")
			sent[msg.TaskID] = false
		}

		dequeueCtx, cancel := context.WithTimeout(ctx, testTimeout)
		defer cancel()
		consumers := []*RedisBroker{first, second, first, second}
		for i, consumer := range consumers {
			got, err := consumer.Dequeue(dequeueCtx)
			require.NoError(t, err, "Failed to dequeue message %d", i)

			delivered, known := sent[got.TaskID]
			require.True(t, known, "Dequeued a message that was never enqueued")
			require.False(t, delivered, "Message was delivered to more than one consumer")
			sent[got.TaskID] = true
		}

		for id, delivered := range sent {
			assert.True(t, delivered, "Message %s was never delivered", id)
		}
	})

	t.Run("SubscribeThenPublishDelivers", func(t *testing.T) {
		b := newTestBroker(t)
		taskID := uuid.New()

		// Subscribe returns only after Redis confirms the subscription, so
		// events published from this point on must reach the feed.
		sub, err := b.Subscribe(ctx, taskID)
		require.NoError(t, err, "Failed to subscribe")
		t.Cleanup(func() {
			_ = sub.Close()
		})

		running := domain.TaskEvent{
			TaskID:    taskID,
			Status:    domain.TaskStatusRunning,
			Timestamp: time.Now().UTC(),
		}
		require.NoError(t, b.Publish(ctx, running), "Failed to publish running event")

		completed := domain.TaskEvent{
			TaskID:    taskID,
			Status:    domain.TaskStatusCompleted,
			Result:    json.RawMessage(`{"pages": 3}`),
			Timestamp: time.Now().UTC(),
		}
		require.NoError(t, b.Publish(ctx, completed), "Failed to publish completed event")

		got := receiveEvent(t, sub)
		assert.Equal(t, taskID, got.TaskID, "Event should carry the task ID")
		assert.Equal(t, domain.TaskStatusRunning, got.Status, "First event should be the running transition")

		got = receiveEvent(t, sub)
		assert.Equal(t, domain.TaskStatusCompleted, got.Status, "Second event should be the completed transition")
		assert.JSONEq(t, `{"pages": 3}`, string(got.Result), "Completed event should carry the result")
	})

	t.Run("SubscriptionsAreIsolatedByTask", func(t *testing.T) {
		b := newTestBroker(t)
		watchedID := uuid.New()
		otherID := uuid.New()

		sub, err := b.Subscribe(ctx, watchedID)
		require.NoError(t, err, "Failed to subscribe")
		t.Cleanup(func() {
			_ = sub.Close()
		})

		// The other task's event is published first; if isolation leaked it
		// would arrive ahead of the watched task's event.
		other := domain.TaskEvent{TaskID: otherID, Status: domain.TaskStatusRunning, Timestamp: time.Now().UTC()}
		require.NoError(t, b.Publish(ctx, other), "Failed to publish other task's event")

		watched := domain.TaskEvent{TaskID: watchedID, Status: domain.TaskStatusRunning, Timestamp: time.Now().UTC()}
		require.NoError(t, b.Publish(ctx, watched), "Failed to publish watched task's event")

		got := receiveEvent(t, sub)
		assert.Equal(t, watchedID, got.TaskID, "Feed should only carry the watched task's events")
	})

	t.Run("SubscriptionCloseStopsTheFeed", func(t *testing.T) {
		b := newTestBroker(t)

		sub, err := b.Subscribe(ctx, uuid.New())
		require.NoError(t, err, "Failed to subscribe")

		require.NoError(t, sub.Close(), "Failed to close subscription")
		require.NoError(t, sub.Close(), "Closing a subscription twice should be safe")

		select {
		case _, ok := <-sub.Events():
			assert.False(t, ok, "Events channel should be closed after Close")
		case <-time.After(testTimeout):
			t.Fatal("Timed out waiting for the events channel to close")
		}
	})

	t.Run("CloseShutsDownTheBroker", func(t *testing.T) {
		b := newTestBroker(t)

		sub, err := b.Subscribe(ctx, uuid.New())
		require.NoError(t, err, "Failed to subscribe")

		// A consumer blocked on an empty queue must observe the shutdown
		dequeueResult := make(chan error, 1)
		go func() {
			_, dequeueErr := b.Dequeue(context.Background())
			dequeueResult <- dequeueErr
		}()
		time.Sleep(50 * time.Millisecond)

		require.NoError(t, b.Close(), "Failed to close broker")
		require.NoError(t, b.Close(), "Closing the broker twice should be safe")

		select {
		case err := <-dequeueResult:
			assert.ErrorIs(t, err, broker.ErrBrokerClosed, "Blocked Dequeue should return ErrBrokerClosed")
		case <-time.After(testTimeout):
			t.Fatal("Timed out waiting for the blocked Dequeue to return")
		}

		select {
		case _, ok := <-sub.Events():
			assert.False(t, ok, "Subscriptions should close when the broker closes")
		case <-time.After(testTimeout):
			t.Fatal("Timed out waiting for the subscription to close")
		}

		msg := newTestMessage(t, "transcribe_audio")
		assert.ErrorIs(t, b.Enqueue(ctx, msg), broker.ErrBrokerClosed, "Enqueue after Close should fail")
		_, err = b.Dequeue(ctx)
		assert.ErrorIs(t, err, broker.ErrBrokerClosed, "Dequeue after Close should fail")
		assert.ErrorIs(t, b.Publish(ctx, domain.TaskEvent{TaskID: uuid.New()}), broker.ErrBrokerClosed,
			"Publish after Close should fail")
		_, err = b.Subscribe(ctx, uuid.New())
		assert.ErrorIs(t, err, broker.ErrBrokerClosed, "Subscribe after Close should fail")
	})

	t.Run("MalformedQueuePayloadIsSkipped", func(t *testing.T) {
		client := newTestClient(t)
		queue := uniqueQueue()
		b := NewRedisBroker(client, queue, newTestLogger())
		t.Cleanup(func() {
			_ = b.Close()
		})

		// Inject garbage ahead of a valid message; the consumer must skip it
		require.NoError(t, client.LPush(ctx, queueKeyPrefix+queue, "not json").Err(),
			"Failed to inject malformed payload")
		msg := newTestMessage(t, "generate_report")
		require.NoError(t, b.Enqueue(ctx, msg), "Failed to enqueue message")

		dequeueCtx, cancel := context.WithTimeout(ctx, testTimeout)
		defer cancel()
		got, err := b.Dequeue(dequeueCtx)
		require.NoError(t, err, "Dequeue should survive a malformed payload")
		assert.Equal(t, msg.TaskID, got.TaskID, "The valid message should still be delivered")
	})
}
