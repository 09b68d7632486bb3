package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/store"
)

const (
	// casRetryAttempts bounds the optimistic transaction retries when
	// concurrent writers touch the same record.
	casRetryAttempts = 5

	// scanBatchSize is the SCAN page size used when listing records.
	scanBatchSize = 100
)

// RedisTaskStore implements the store.TaskStore interface on Redis keys, one
// JSON-encoded record per key. Lifecycle transitions run inside WATCH/MULTI
// transactions, so concurrent writers are serialized optimistically and a
// terminal record can never be overwritten. Terminal records expire after
// the configured result TTL; pending and running records never expire.
type RedisTaskStore struct {
	client    *redis.Client
	resultTTL time.Duration
	logger    *slog.Logger
}

// Ensure RedisTaskStore implements the store.TaskStore interface.
var _ store.TaskStore = (*RedisTaskStore)(nil)

// NewRedisTaskStore creates a Redis-backed task store. A zero resultTTL
// keeps terminal records forever.
func NewRedisTaskStore(client *redis.Client, resultTTL time.Duration, logger *slog.Logger) *RedisTaskStore {
	return &RedisTaskStore{
		client:    client,
		resultTTL: resultTTL,
		logger:    logger.With("component", "redis_task_store"),
	}
}

func taskKey(id uuid.UUID) string {
	return taskKeyPrefix + id.String()
}

// CreateTask saves a new task record.
// Returns store.ErrTaskExists if a record with the same ID already exists.
func (s *RedisTaskStore) CreateTask(ctx context.Context, record *domain.TaskRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode task record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, taskKey(record.ID), data, 0).Result()
	if err != nil {
		s.logger.Error("failed to create task record",
			"task_id", record.ID,
			"error", err)
		return fmt.Errorf("failed to create task record: %w", err)
	}
	if !ok {
		return store.ErrTaskExists
	}

	return nil
}

// GetTask retrieves a task record by its unique ID.
// Returns store.ErrTaskNotFound if the record does not exist.
func (s *RedisTaskStore) GetTask(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	data, err := s.client.Get(ctx, taskKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrTaskNotFound
		}
		s.logger.Error("failed to get task record",
			"task_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to get task record: %w", err)
	}

	var record domain.TaskRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode task record: %w", err)
	}

	return &record, nil
}

// MarkRunning transitions a pending record to running.
func (s *RedisTaskStore) MarkRunning(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	return s.update(ctx, id, 0, func(record *domain.TaskRecord) error {
		if record.Status.Terminal() {
			return store.ErrTaskFinalized
		}
		// Already running: benign redelivery, keep the record as is
		if record.Status == domain.TaskStatusRunning {
			return nil
		}
		if err := record.Start(); err != nil {
			return store.ErrInvalidTransition
		}
		return nil
	})
}

// MarkCompleted transitions a running record to completed. The terminal
// record expires after the configured result TTL.
func (s *RedisTaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, result json.RawMessage) (*domain.TaskRecord, error) {
	return s.update(ctx, id, s.resultTTL, func(record *domain.TaskRecord) error {
		if record.Status.Terminal() {
			return store.ErrTaskFinalized
		}
		if err := record.Complete(result); err != nil {
			return store.ErrInvalidTransition
		}
		return nil
	})
}

// MarkFailed transitions a running record to failed. The terminal record
// expires after the configured result TTL.
func (s *RedisTaskStore) MarkFailed(ctx context.Context, id uuid.UUID, taskErr *domain.TaskError) (*domain.TaskRecord, error) {
	return s.update(ctx, id, s.resultTTL, func(record *domain.TaskRecord) error {
		if record.Status.Terminal() {
			return store.ErrTaskFinalized
		}
		if err := record.Fail(taskErr); err != nil {
			return store.ErrInvalidTransition
		}
		return nil
	})
}

// DeleteTask removes a task record.
// Returns store.ErrTaskNotFound if the record does not exist.
func (s *RedisTaskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	removed, err := s.client.Del(ctx, taskKey(id)).Result()
	if err != nil {
		s.logger.Error("failed to delete task record",
			"task_id", id,
			"error", err)
		return fmt.Errorf("failed to delete task record: %w", err)
	}
	if removed == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// ListByStatus scans all task records and returns those with the given
// status, optionally filtered to records whose last update is older than
// olderThan. The scan walks every record, which is acceptable for the
// reaper's periodic sweeps.
func (s *RedisTaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.TaskRecord, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	matches := make([]*domain.TaskRecord, 0)
	iter := s.client.Scan(ctx, 0, taskKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			// The key can expire between SCAN and GET
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to read task record during scan: %w", err)
		}

		var record domain.TaskRecord
		if err := json.Unmarshal(data, &record); err != nil {
			s.logger.Warn("skipping malformed task record",
				"key", iter.Val(),
				"error", err)
			continue
		}

		if record.Status != status {
			continue
		}
		if olderThan > 0 && !record.UpdatedAt.Before(cutoff) {
			continue
		}

		matches = append(matches, &record)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan task records: %w", err)
	}

	return matches, nil
}

// update applies a transition inside a WATCH/MULTI transaction and returns
// the updated record. When the transaction loses a race it reloads the
// record and tries again, so the apply function always sees current state.
func (s *RedisTaskStore) update(ctx context.Context, id uuid.UUID, ttl time.Duration, apply func(*domain.TaskRecord) error) (*domain.TaskRecord, error) {
	key := taskKey(id)
	var updated *domain.TaskRecord

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return store.ErrTaskNotFound
			}
			return err
		}

		var record domain.TaskRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("failed to decode task record: %w", err)
		}

		if err := apply(&record); err != nil {
			return err
		}

		payload, err := json.Marshal(&record)
		if err != nil {
			return fmt.Errorf("failed to encode task record: %w", err)
		}

		updated = &record
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < casRetryAttempts; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	s.logger.Error("task record update kept losing races",
		"task_id", id,
		"attempts", casRetryAttempts)
	return nil, fmt.Errorf("failed to update task record after %d attempts: %w",
		casRetryAttempts, redis.TxFailedErr)
}
