// Package redis provides the Redis-backed broker and task store used by
// multi-process deployments: the queue and pub/sub travel over Redis lists
// and channels, and task records live in Redis keys guarded by optimistic
// transactions.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Key layout shared by the Redis broker and task store.
const (
	queueKeyPrefix     = "aiagent:queue:"
	taskKeyPrefix      = "aiagent:task:"
	eventChannelPrefix = "aiagent:events:"
)

// NewClient opens a Redis client from a connection URL and verifies the
// connection with a ping. The caller owns the returned client and is
// responsible for closing it.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
