package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/broker"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
)

const (
	// dequeuePollTimeout bounds a single BRPOP so consumers notice a closed
	// broker without waiting on Redis forever.
	dequeuePollTimeout = 2 * time.Second

	// subscriberBuffer is the per-subscription event buffer. A subscriber
	// that falls this far behind is evicted rather than allowed to stall
	// the feed.
	subscriberBuffer = 16
)

// RedisBroker implements the broker.Broker interface on a Redis list (work
// queue) and Redis pub/sub channels (status events). Messages survive in the
// list until a consumer pops them, so separate worker processes can share
// one queue; delivery is at-least-once and consumers must tolerate
// redelivered messages.
type RedisBroker struct {
	client   *redis.Client
	queueKey string
	logger   *slog.Logger

	mu     sync.Mutex
	subs   map[*redisSubscription]struct{}
	closed bool
}

// Ensure RedisBroker implements the broker.Broker interface.
var _ broker.Broker = (*RedisBroker)(nil)

// NewRedisBroker creates a broker on the given queue name. The queue name
// maps to a single Redis list, so brokers built with the same name compete
// for the same messages.
func NewRedisBroker(client *redis.Client, queue string, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{
		client:   client,
		queueKey: queueKeyPrefix + queue,
		logger:   logger.With("component", "redis_broker"),
		subs:     make(map[*redisSubscription]struct{}),
	}
}

// Enqueue pushes a task message onto the queue list. Redis lists are
// unbounded, so ErrQueueFull is never returned by this implementation.
func (b *RedisBroker) Enqueue(ctx context.Context, msg domain.TaskMessage) error {
	if b.isClosed() {
		return broker.ErrBrokerClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode task message: %w", err)
	}

	if err := b.client.LPush(ctx, b.queueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task message: %w", err)
	}

	b.logger.Debug("enqueued task message",
		"task_id", msg.TaskID,
		"task_type", msg.TaskType)
	return nil
}

// Dequeue blocks until a message is available, the context is done, or the
// broker closes. BRPOP gives each message to exactly one consumer across
// every connected worker process.
func (b *RedisBroker) Dequeue(ctx context.Context) (domain.TaskMessage, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.TaskMessage{}, err
		}
		if b.isClosed() {
			return domain.TaskMessage{}, broker.ErrBrokerClosed
		}

		values, err := b.client.BRPop(ctx, dequeuePollTimeout, b.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return domain.TaskMessage{}, ctx.Err()
			}
			return domain.TaskMessage{}, fmt.Errorf("failed to dequeue task message: %w", err)
		}

		// BRPOP returns the list key and the popped payload
		if len(values) != 2 {
			b.logger.Error("unexpected BRPOP reply shape", "values", len(values))
			continue
		}

		var msg domain.TaskMessage
		if err := json.Unmarshal([]byte(values[1]), &msg); err != nil {
			b.logger.Error("dropping malformed task message", "error", err)
			continue
		}

		return msg, nil
	}
}

// Publish sends a status event to the task's pub/sub channel. Events reach
// only the subscribers connected at publish time; nobody listening is fine.
func (b *RedisBroker) Publish(ctx context.Context, event domain.TaskEvent) error {
	if b.isClosed() {
		return broker.ErrBrokerClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode task event: %w", err)
	}

	channel := eventChannelPrefix + event.TaskID.String()
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish task event: %w", err)
	}

	return nil
}

// Subscribe opens a live feed of status events for one task. The SUBSCRIBE
// confirmation is awaited before returning, so events published after this
// call are guaranteed to reach the feed.
func (b *RedisBroker) Subscribe(ctx context.Context, taskID uuid.UUID) (broker.Subscription, error) {
	if b.isClosed() {
		return nil, broker.ErrBrokerClosed
	}

	pubsub := b.client.Subscribe(ctx, eventChannelPrefix+taskID.String())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to task events: %w", err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan domain.TaskEvent, subscriberBuffer),
		logger: b.logger,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = pubsub.Close()
		return nil, broker.ErrBrokerClosed
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go sub.decodeLoop(func() { b.removeSubscription(sub) })

	b.logger.Debug("subscribed to task events", "task_id", taskID)
	return sub, nil
}

// Close shuts the broker down and tears down all subscriptions. Consumers
// blocked in Dequeue return ErrBrokerClosed within one poll interval.
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*redisSubscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[*redisSubscription]struct{})
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}

	b.logger.Info("redis broker closed")
	return nil
}

func (b *RedisBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *RedisBroker) removeSubscription(sub *redisSubscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// redisSubscription bridges a Redis pub/sub channel to a typed event channel.
type redisSubscription struct {
	pubsub    *redis.PubSub
	events    chan domain.TaskEvent
	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// Events returns the channel events arrive on. The channel is closed when
// the subscription is closed or the broker shuts down.
func (s *redisSubscription) Events() <-chan domain.TaskEvent {
	return s.events
}

// Close tears down the subscription. It is safe to call more than once.
func (s *redisSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.pubsub.Close()
	})
	return s.closeErr
}

// decodeLoop turns raw pub/sub payloads into task events until the
// underlying subscription closes. A subscriber that stops draining its
// buffer is evicted so one stalled reader cannot pile up events forever.
func (s *redisSubscription) decodeLoop(onExit func()) {
	defer func() {
		onExit()
		close(s.events)
	}()

	for msg := range s.pubsub.Channel() {
		var event domain.TaskEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			s.logger.Warn("dropping malformed task event", "error", err)
			continue
		}

		select {
		case s.events <- event:
		default:
			s.logger.Warn("evicting slow task event subscriber",
				"task_id", event.TaskID)
			_ = s.Close()
			return
		}
	}
}
