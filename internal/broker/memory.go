package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
)

// subscriberBuffer is the per-subscription event buffer. A subscriber that
// falls this far behind is evicted rather than allowed to stall publishers.
const subscriberBuffer = 16

// MemoryBroker is an in-process Broker backed by a buffered channel and a
// per-task subscriber registry. It serves single-process deployments where
// the API server and the workers share an address space.
type MemoryBroker struct {
	queue  chan domain.TaskMessage
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*memorySubscription]struct{}
	closed bool
}

// Ensure MemoryBroker implements the Broker interface.
var _ Broker = (*MemoryBroker)(nil)

// NewMemoryBroker creates an in-process broker whose work queue holds up to
// size messages.
func NewMemoryBroker(size int, logger *slog.Logger) *MemoryBroker {
	return &MemoryBroker{
		queue:  make(chan domain.TaskMessage, size),
		logger: logger.With("component", "memory_broker"),
		subs:   make(map[uuid.UUID]map[*memorySubscription]struct{}),
	}
}

// Enqueue places a task message on the work queue.
// Returns ErrQueueFull if the queue is at capacity and ErrBrokerClosed after Close.
func (b *MemoryBroker) Enqueue(ctx context.Context, msg domain.TaskMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	select {
	case b.queue <- msg:
		b.logger.Debug("task message enqueued",
			"task_id", msg.TaskID,
			"task_type", msg.TaskType,
			"queue_len", len(b.queue),
			"queue_cap", cap(b.queue))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(b.queue))
	}
}

// Dequeue blocks until a message is available, the context is done, or the
// broker closes.
func (b *MemoryBroker) Dequeue(ctx context.Context) (domain.TaskMessage, error) {
	select {
	case msg, ok := <-b.queue:
		if !ok {
			return domain.TaskMessage{}, ErrBrokerClosed
		}
		return msg, nil
	case <-ctx.Done():
		return domain.TaskMessage{}, ctx.Err()
	}
}

// Publish sends the event to every current subscriber of the event's task.
// Subscribers that cannot keep up are evicted so publishers never block.
// The sends happen under the read lock: subscription channels are only
// closed under the write lock, so a send can never race a close.
func (b *MemoryBroker) Publish(ctx context.Context, event domain.TaskEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	subscribers := b.subs[event.TaskID]

	b.logger.Debug("publishing task event",
		"task_id", event.TaskID,
		"status", event.Status,
		"subscriber_count", len(subscribers))

	for sub := range subscribers {
		select {
		case sub.events <- event:
		default:
			b.logger.Warn("evicting slow event subscriber",
				"task_id", event.TaskID,
				"buffer_cap", cap(sub.events))
			go func(s *memorySubscription) {
				_ = s.Close()
			}(sub)
		}
	}

	return nil
}

// Subscribe opens a live feed of status events for the given task.
func (b *MemoryBroker) Subscribe(ctx context.Context, taskID uuid.UUID) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &memorySubscription{
		broker: b,
		taskID: taskID,
		events: make(chan domain.TaskEvent, subscriberBuffer),
	}

	if b.subs[taskID] == nil {
		b.subs[taskID] = make(map[*memorySubscription]struct{})
	}
	b.subs[taskID][sub] = struct{}{}

	b.logger.Debug("event subscriber added",
		"task_id", taskID,
		"subscriber_count", len(b.subs[taskID]))

	return sub, nil
}

// Close shuts the broker down, waking blocked consumers and closing all
// subscriptions.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	close(b.queue)
	for taskID, subscribers := range b.subs {
		for sub := range subscribers {
			sub.closeLocked()
		}
		delete(b.subs, taskID)
	}

	b.logger.Info("memory broker closed")
	return nil
}

// removeSubscription detaches a subscription from the registry. Called by
// memorySubscription.Close.
func (b *MemoryBroker) removeSubscription(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, ok := b.subs[sub.taskID]
	if !ok {
		return
	}
	if _, ok := subscribers[sub]; !ok {
		return
	}

	delete(subscribers, sub)
	if len(subscribers) == 0 {
		delete(b.subs, sub.taskID)
	}
	sub.closeLocked()
}

// memorySubscription is a single subscriber's buffered event feed.
type memorySubscription struct {
	broker *MemoryBroker
	taskID uuid.UUID
	events chan domain.TaskEvent

	once sync.Once
}

// Events returns the channel events arrive on.
func (s *memorySubscription) Events() <-chan domain.TaskEvent {
	return s.events
}

// Close detaches the subscription from the broker and closes its channel.
func (s *memorySubscription) Close() error {
	s.broker.removeSubscription(s)
	return nil
}

// closeLocked closes the event channel exactly once. The caller must hold
// the broker mutex, which serializes closing against in-flight publishes.
func (s *memorySubscription) closeLocked() {
	s.once.Do(func() {
		close(s.events)
	})
}
