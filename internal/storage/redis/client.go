// Package redis provides the shared cache connection used by both the
// idempotency store and the circuit breaker.
package redis

import (
	"context"
	"fmt"

	"github.com/iamprecieee/distributed-notification-system/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient parses the configured URL and returns a connected,
// multiplexed client shared by reference across all workers.
func NewClient(cfg *config.Config) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}

	client := goredis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis: failed to connect: %w", err)
	}

	return client, nil
}
