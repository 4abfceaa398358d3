// Package retry implements the exponential-backoff-with-jitter envelope
// wrapping any network operation in the worker.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/iamprecieee/distributed-notification-system/internal/config"
	"github.com/rs/zerolog"
)

// Config mirrors config.RetryConfig, kept separate so this package has no
// import-time dependency on the application config package.
type Config struct {
	MaxAttempts       int
	InitialDelayMS    int
	MaxDelayMS        int
	BackoffMultiplier float64
}

// FromAppConfig adapts the application-level retry configuration.
func FromAppConfig(cfg config.RetryConfig) Config {
	return Config{
		MaxAttempts:       cfg.MaxAttempts,
		InitialDelayMS:    cfg.InitialDelayMS,
		MaxDelayMS:        cfg.MaxDelayMS,
		BackoffMultiplier: cfg.BackoffMultiplier,
	}
}

// Op is a no-argument operation yielding a result or an error.
type Op[T any] func(ctx context.Context) (T, error)

// Do attempts op up to cfg.MaxAttempts times. The first attempt runs
// immediately; every subsequent attempt sleeps for a jittered,
// exponentially increasing delay capped at MaxDelayMS. All failures are
// treated as retryable at this layer — classifying permanent failures is
// a caller concern. The final error is returned after the last attempt.
func Do[T any](ctx context.Context, cfg Config, logger zerolog.Logger, op Op[T]) (T, error) {
	var zero T
	var lastErr error

	delay := float64(cfg.InitialDelayMS)

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Debug().Int("attempt", attempt).Msg("retry succeeded")
			}
			return result, nil
		}

		lastErr = err

		if attempt == cfg.MaxAttempts {
			logger.Warn().Err(err).Int("attempts", attempt).Msg("retry exhausted")
			break
		}

		jitter := 1 + (rand.Float64()*0.2 - 0.1) // U[-0.1, +0.1]
		sleepMS := delay * jitter

		logger.Debug().Err(err).Int("attempt", attempt).Float64("delay_ms", sleepMS).Msg("retrying after failure")

		select {
		case <-time.After(time.Duration(sleepMS) * time.Millisecond):
		case <-ctx.Done():
			return zero, ctx.Err()
		}

		delay = math.Min(delay*cfg.BackoffMultiplier, float64(cfg.MaxDelayMS))
	}

	return zero, lastErr
}
