// Package breaker implements a per-dependency circuit breaker whose state
// lives in the shared cache so every worker instance observes the same
// Closed/Open/HalfOpen transitions.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/iamprecieee/distributed-notification-system/internal/config"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/procerr"
	"github.com/iamprecieee/distributed-notification-system/pkg/keybuilder"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// State is one of Closed, Open, HalfOpen.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

func stateFromString(s string) State {
	switch s {
	case string(StateOpen):
		return StateOpen
	case string(StateHalfOpen):
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Config mirrors config.CircuitBreakerConfig.
type Config struct {
	FailureThreshold int
	TimeoutSeconds   int
	SuccessThreshold int
}

// FromAppConfig adapts the application-level circuit breaker configuration.
func FromAppConfig(cfg config.CircuitBreakerConfig) Config {
	return Config{
		FailureThreshold: cfg.FailureThreshold,
		TimeoutSeconds:   cfg.TimeoutSeconds,
		SuccessThreshold: cfg.SuccessThreshold,
	}
}

// TransitionHook is invoked after a breaker transitions to Open or
// recovers to Closed from HalfOpen. Hooks run synchronously on the
// caller's goroutine after the new state has been written; a panic inside
// a hook is not recovered and propagates to the caller of Call.
type TransitionHook func(dependency string)

// Breaker gates calls to a single named dependency.
type Breaker struct {
	dependency string
	cache      *goredis.Client
	cfg        Config
	logger     zerolog.Logger

	onOpen      TransitionHook
	onRecovered TransitionHook
}

// Option configures optional Breaker behavior.
type Option func(*Breaker)

// WithOnOpen registers a hook fired on every Closed/HalfOpen -> Open transition.
func WithOnOpen(hook TransitionHook) Option {
	return func(b *Breaker) { b.onOpen = hook }
}

// WithOnRecovered registers a hook fired on every HalfOpen -> Closed transition.
func WithOnRecovered(hook TransitionHook) Option {
	return func(b *Breaker) { b.onRecovered = hook }
}

// New creates a breaker gating calls to dependency, backed by the shared cache.
func New(dependency string, cache *goredis.Client, cfg Config, logger zerolog.Logger, opts ...Option) *Breaker {
	b := &Breaker{
		dependency: dependency,
		cache:      cache,
		cfg:        cfg,
		logger:     logger.With().Str("component", "circuit_breaker").Str("dependency", dependency).Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Call runs op if the breaker permits it, or rejects immediately with
// procerr.ErrCircuitOpen. Every transition is persisted to the cache
// before Call returns. A cache error while reading/writing breaker state
// is treated as fail-open (state Closed, operation allowed) per design.
func Call[T any](ctx context.Context, b *Breaker, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	state := b.getState(ctx)

	switch state {
	case StateOpen:
		if !b.shouldAttemptReset(ctx) {
			b.logger.Warn().Msg("circuit open, rejecting call")
			return zero, procerr.ErrCircuitOpen
		}
		b.logger.Info().Msg("circuit attempting reset")
		b.setState(ctx, StateHalfOpen)
		return tryOperation(ctx, b, op)
	case StateHalfOpen:
		return tryOperation(ctx, b, op)
	default:
		return tryOperation(ctx, b, op)
	}
}

func tryOperation[T any](ctx context.Context, b *Breaker, op func(ctx context.Context) (T, error)) (T, error) {
	result, err := op(ctx)
	if err != nil {
		b.recordFailure(ctx)
		return result, err
	}
	b.recordSuccess(ctx)
	return result, nil
}

func (b *Breaker) recordSuccess(ctx context.Context) {
	state := b.getState(ctx)

	switch state {
	case StateHalfOpen:
		successes := b.incrementSuccesses(ctx)
		b.logger.Debug().Int64("successes", successes).Int("threshold", b.cfg.SuccessThreshold).Msg("success recorded")
		if int(successes) >= b.cfg.SuccessThreshold {
			b.setState(ctx, StateClosed)
			b.resetCounters(ctx)
			b.logger.Info().Msg("circuit closed after recovery")
			if b.onRecovered != nil {
				b.onRecovered(b.dependency)
			}
		}
	case StateClosed:
		b.resetFailures(ctx)
	}
}

func (b *Breaker) recordFailure(ctx context.Context) {
	state := b.getState(ctx)

	if state == StateHalfOpen {
		b.setState(ctx, StateOpen)
		b.setOpenedAt(ctx)
		if err := b.cache.Del(ctx, keybuilder.CircuitSuccesses(b.dependency)).Err(); err != nil {
			b.logger.Warn().Err(err).Msg("cache error resetting success counter")
		}
		b.logger.Warn().Msg("circuit reopened after failed recovery attempt")
		if b.onOpen != nil {
			b.onOpen(b.dependency)
		}
		return
	}

	failures := b.incrementFailures(ctx)
	b.logger.Debug().Int64("failures", failures).Int("threshold", b.cfg.FailureThreshold).Msg("failure recorded")

	if int(failures) >= b.cfg.FailureThreshold {
		b.setState(ctx, StateOpen)
		b.setOpenedAt(ctx)
		b.logger.Warn().Int64("failures", failures).Msg("circuit opened due to consecutive failures")
		if b.onOpen != nil {
			b.onOpen(b.dependency)
		}
	}
}

func (b *Breaker) getState(ctx context.Context) State {
	val, err := b.cache.Get(ctx, keybuilder.CircuitState(b.dependency)).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			b.logger.Warn().Err(err).Msg("cache error reading circuit state, failing open")
		}
		return StateClosed
	}
	return stateFromString(val)
}

func (b *Breaker) setState(ctx context.Context, state State) {
	if err := b.cache.Set(ctx, keybuilder.CircuitState(b.dependency), string(state), 0).Err(); err != nil {
		b.logger.Warn().Err(err).Msg("cache error writing circuit state")
	}
}

func (b *Breaker) incrementFailures(ctx context.Context) int64 {
	key := keybuilder.CircuitFailures(b.dependency)
	count, err := b.cache.Incr(ctx, key).Result()
	if err != nil {
		b.logger.Warn().Err(err).Msg("cache error incrementing failures, failing open")
		return 0
	}
	if err := b.cache.Expire(ctx, key, time.Duration(b.cfg.TimeoutSeconds)*time.Second).Err(); err != nil {
		b.logger.Warn().Err(err).Msg("cache error setting failure counter ttl")
	}
	return count
}

func (b *Breaker) resetFailures(ctx context.Context) {
	if err := b.cache.Del(ctx, keybuilder.CircuitFailures(b.dependency)).Err(); err != nil {
		b.logger.Warn().Err(err).Msg("cache error resetting failure counter")
	}
}

func (b *Breaker) incrementSuccesses(ctx context.Context) int64 {
	count, err := b.cache.Incr(ctx, keybuilder.CircuitSuccesses(b.dependency)).Result()
	if err != nil {
		b.logger.Warn().Err(err).Msg("cache error incrementing successes, failing open")
		return 0
	}
	return count
}

func (b *Breaker) resetCounters(ctx context.Context) {
	keys := []string{
		keybuilder.CircuitFailures(b.dependency),
		keybuilder.CircuitSuccesses(b.dependency),
		keybuilder.CircuitOpenedAt(b.dependency),
	}
	if err := b.cache.Del(ctx, keys...).Err(); err != nil {
		b.logger.Warn().Err(err).Msg("cache error resetting counters")
	}
}

func (b *Breaker) setOpenedAt(ctx context.Context) {
	now := time.Now().Unix()
	if err := b.cache.Set(ctx, keybuilder.CircuitOpenedAt(b.dependency), now, 0).Err(); err != nil {
		b.logger.Warn().Err(err).Msg("cache error setting opened_at")
	}
}

func (b *Breaker) shouldAttemptReset(ctx context.Context) bool {
	openedAt, err := b.cache.Get(ctx, keybuilder.CircuitOpenedAt(b.dependency)).Int64()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			b.logger.Warn().Err(err).Msg("cache error reading opened_at, failing open")
			return true
		}
		return false
	}
	elapsed := time.Now().Unix() - openedAt
	return elapsed >= int64(b.cfg.TimeoutSeconds)
}

// CurrentState exposes the breaker's current observed state, used by the health endpoint.
func (b *Breaker) CurrentState(ctx context.Context) State {
	return b.getState(ctx)
}

// Dependency returns the name this breaker gates.
func (b *Breaker) Dependency() string {
	return b.dependency
}
