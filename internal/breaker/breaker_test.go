package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/procerr"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(t *testing.T, cfg Config, opts ...Option) *Breaker {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	return New("test_dep", client, cfg, zerolog.Nop(), opts...)
}

func TestCall_StaysClosedOnSuccess(t *testing.T) {
	b := newTestBreaker(t, Config{FailureThreshold: 3, TimeoutSeconds: 1, SuccessThreshold: 1})

	result, err := Call(context.Background(), b, func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, StateClosed, b.CurrentState(context.Background()))
}

func TestCall_OpensAfterFailureThreshold(t *testing.T) {
	b := newTestBreaker(t, Config{FailureThreshold: 3, TimeoutSeconds: 30, SuccessThreshold: 1})
	failing := func(ctx context.Context) (string, error) { return "", errors.New("boom") }

	for i := 0; i < 3; i++ {
		_, err := Call(context.Background(), b, failing)
		require.Error(t, err)
	}

	require.Equal(t, StateOpen, b.CurrentState(context.Background()))

	_, err := Call(context.Background(), b, failing)
	require.ErrorIs(t, err, procerr.ErrCircuitOpen)
}

func TestCall_HalfOpenRecoversToClosed(t *testing.T) {
	var opened, recovered []string
	b := newTestBreaker(t, Config{FailureThreshold: 1, TimeoutSeconds: 0, SuccessThreshold: 2},
		WithOnOpen(func(dep string) { opened = append(opened, dep) }),
		WithOnRecovered(func(dep string) { recovered = append(recovered, dep) }),
	)

	failing := func(ctx context.Context) (string, error) { return "", errors.New("boom") }
	_, err := Call(context.Background(), b, failing)
	require.Error(t, err)
	require.Equal(t, StateOpen, b.CurrentState(context.Background()))
	require.Equal(t, []string{"test_dep"}, opened)

	time.Sleep(10 * time.Millisecond)

	succeeding := func(ctx context.Context) (string, error) { return "ok", nil }
	_, err = Call(context.Background(), b, succeeding)
	require.NoError(t, err)
	require.Equal(t, StateHalfOpen, b.CurrentState(context.Background()))

	_, err = Call(context.Background(), b, succeeding)
	require.NoError(t, err)
	require.Equal(t, StateClosed, b.CurrentState(context.Background()))
	require.Equal(t, []string{"test_dep"}, recovered)
}

func TestCall_HalfOpenReopensOnFailure(t *testing.T) {
	b := newTestBreaker(t, Config{FailureThreshold: 1, TimeoutSeconds: 0, SuccessThreshold: 2})

	failing := func(ctx context.Context) (string, error) { return "", errors.New("boom") }
	_, _ = Call(context.Background(), b, failing)
	require.Equal(t, StateOpen, b.CurrentState(context.Background()))

	_, err := Call(context.Background(), b, failing)
	require.Error(t, err)
	require.Equal(t, StateOpen, b.CurrentState(context.Background()))
}
