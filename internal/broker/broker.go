// Package broker defines the messaging boundary between the dispatcher and
// the workers: a work queue with competing consumers and a per-task pub/sub
// channel for live status events.
package broker

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
)

// Common errors returned by broker implementations
var (
	ErrBrokerClosed = errors.New("broker is closed")
	ErrQueueFull    = errors.New("task queue is full")
)

// Broker moves task messages from the dispatcher to workers and fans status
// events out to live subscribers.
//
// The queue side delivers each message to exactly one consumer, but delivery
// is at-least-once: after a consumer crash a message may surface again, so
// consumers must tolerate duplicates. The pub/sub side is fire-and-forget:
// events reach only the subscribers connected at publish time, and a publish
// never blocks on a slow subscriber.
// Version: 1.0
type Broker interface {
	// Enqueue places a task message on the work queue.
	// Returns ErrQueueFull if the queue cannot accept the message and
	// ErrBrokerClosed after Close.
	Enqueue(ctx context.Context, msg domain.TaskMessage) error

	// Dequeue blocks until a message is available, the context is done, or
	// the broker closes. Exactly one consumer receives each message.
	Dequeue(ctx context.Context) (domain.TaskMessage, error)

	// Publish sends a status event to all current subscribers of the
	// event's task. Publishing to a task nobody watches is not an error.
	Publish(ctx context.Context, event domain.TaskEvent) error

	// Subscribe opens a live feed of status events for one task. The feed
	// only carries events published after the subscription is established;
	// callers that need the current state read it from the task store.
	Subscribe(ctx context.Context, taskID uuid.UUID) (Subscription, error)

	// Close shuts the broker down, waking blocked consumers and closing
	// all subscriptions.
	Close() error
}

// Subscription is a live feed of status events for a single task.
type Subscription interface {
	// Events returns the channel events arrive on. The channel is closed
	// when the subscription is closed or the broker shuts down.
	Events() <-chan domain.TaskEvent

	// Close tears down the subscription and releases its resources.
	// It is safe to call more than once.
	Close() error
}
