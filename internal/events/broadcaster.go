// Package events bridges the broker's raw status feed into ordered per-task
// streams for API subscribers. A stream opens with a snapshot of the task's
// current state, forwards only transitions that advance the lifecycle, and
// closes itself once the task reaches a terminal state.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/broker"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/store"
)

// ErrTaskNotFound indicates that no record exists for the requested task.
var ErrTaskNotFound = errors.New("task not found")

// streamBuffer comfortably holds a full lifecycle: snapshot, running,
// terminal. Ranks only move forward, so a stream never carries more.
const streamBuffer = 4

// Broadcaster opens live status streams for individual tasks.
type Broadcaster struct {
	broker broker.Broker
	store  store.TaskStore
	logger *slog.Logger
}

// NewBroadcaster creates a Broadcaster backed by the given broker and store.
func NewBroadcaster(msgBroker broker.Broker, taskStore store.TaskStore, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		broker: msgBroker,
		store:  taskStore,
		logger: logger.With("component", "event_broadcaster"),
	}
}

// Subscribe opens a live status stream for one task. The first event is a
// snapshot of the task's current state; if the task is already terminal the
// snapshot is the only event and the stream closes right after it.
// Returns ErrTaskNotFound if no record exists for the task.
//
// The broker subscription is established before the snapshot is read, so a
// transition landing between the two arrives on the stream instead of
// falling into a gap. The rank filter then discards whatever the snapshot
// already covered.
func (b *Broadcaster) Subscribe(ctx context.Context, taskID uuid.UUID) (broker.Subscription, error) {
	sub, err := b.broker.Subscribe(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to task events: %w", err)
	}

	record, err := b.store.GetTask(ctx, taskID)
	if err != nil {
		if closeErr := sub.Close(); closeErr != nil {
			b.logger.Warn("failed to release subscription after lookup failure",
				"task_id", taskID,
				"error", closeErr)
		}
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to load task record: %w", err)
	}

	stream := &taskStream{
		events: make(chan domain.TaskEvent, streamBuffer),
		done:   make(chan struct{}),
		sub:    sub,
	}

	go stream.run(domain.NewTaskEvent(record))

	b.logger.Debug("opened task event stream",
		"task_id", taskID,
		"status", record.Status)

	return stream, nil
}

// taskStream adapts a raw broker subscription into an ordered stream.
type taskStream struct {
	events    chan domain.TaskEvent
	done      chan struct{}
	sub       broker.Subscription
	closeOnce sync.Once
}

// Events returns the channel stream events arrive on. The channel closes
// after a terminal event or once the stream is closed.
func (s *taskStream) Events() <-chan domain.TaskEvent {
	return s.events
}

// Close tears the stream down and releases the underlying subscription.
// It is safe to call more than once.
func (s *taskStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return s.sub.Close()
}

// run forwards events until the task finishes or the stream closes.
func (s *taskStream) run(snapshot domain.TaskEvent) {
	defer close(s.events)
	defer s.sub.Close()

	if !s.send(snapshot) || snapshot.Terminal() {
		return
	}

	lastRank := snapshot.Status.Rank()
	for {
		select {
		case event, ok := <-s.sub.Events():
			if !ok {
				return
			}

			// Duplicate executions republish transitions the stream has
			// already delivered; only a rank advance goes through.
			if event.Status.Rank() <= lastRank {
				continue
			}
			lastRank = event.Status.Rank()

			if !s.send(event) || event.Terminal() {
				return
			}
		case <-s.done:
			return
		}
	}
}

// send delivers one event unless the stream has been closed.
func (s *taskStream) send(event domain.TaskEvent) bool {
	select {
	case s.events <- event:
		return true
	case <-s.done:
		return false
	}
}
