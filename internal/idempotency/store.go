// Package idempotency implements the single-key state machine guarding
// at-most-once successful delivery per notification.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/iamprecieee/distributed-notification-system/internal/retry"
	"github.com/iamprecieee/distributed-notification-system/pkg/keybuilder"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Status is the observed state of an idempotency key.
type Status string

const (
	StatusNotFound   Status = "not_found"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

const (
	valProcessing = "processing"
	valSent       = "sent"
	valFailed     = "failed"
)

// Store is backed by the shared cache. It performs read-modify-write
// without locking: correctness relies on the push gateway itself being
// idempotent against repeated sends carrying the same idempotency key,
// since two workers may race past Check before either writes Processing.
type Store struct {
	cache    *goredis.Client
	ttl      time.Duration
	retryCfg retry.Config
	logger   zerolog.Logger
}

// New creates an idempotency store with the given TTL and retry policy
// (the retry policy guards only MarkSent, per the design).
func New(cache *goredis.Client, ttl time.Duration, retryCfg retry.Config, logger zerolog.Logger) *Store {
	return &Store{
		cache:    cache,
		ttl:      ttl,
		retryCfg: retryCfg,
		logger:   logger.With().Str("component", "idempotency_store").Logger(),
	}
}

// Check reads the cached status for key. Unknown cached values and cache
// misses are both reported as NotFound.
func (s *Store) Check(ctx context.Context, key string) (Status, error) {
	val, err := s.cache.Get(ctx, keybuilder.Idempotency(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return StatusNotFound, nil
		}
		return StatusNotFound, err
	}

	switch val {
	case valProcessing:
		return StatusProcessing, nil
	case valSent:
		return StatusSent, nil
	case valFailed:
		return StatusFailed, nil
	default:
		s.logger.Warn().Str("key", key).Str("value", val).Msg("unknown idempotency status, treating as not found")
		return StatusNotFound, nil
	}
}

// MarkProcessing writes Processing with TTL, failing fast on cache errors.
func (s *Store) MarkProcessing(ctx context.Context, key string) error {
	return s.cache.Set(ctx, keybuilder.Idempotency(key), valProcessing, s.ttl).Err()
}

// MarkFailed writes Failed with TTL, failing fast on cache errors.
func (s *Store) MarkFailed(ctx context.Context, key string) error {
	return s.cache.Set(ctx, keybuilder.Idempotency(key), valFailed, s.ttl).Err()
}

// MarkSent writes Sent with TTL, wrapped in the retry engine: a key in
// state Sent must never silently regress to Processing or Failed before
// TTL expiry, so this write is worth retrying on transient cache errors.
func (s *Store) MarkSent(ctx context.Context, key string) error {
	_, err := retry.Do(ctx, s.retryCfg, s.logger, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.cache.Set(ctx, keybuilder.Idempotency(key), valSent, s.ttl).Err()
	})
	return err
}
