package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/iamprecieee/distributed-notification-system/internal/retry"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	retryCfg := retry.Config{MaxAttempts: 2, InitialDelayMS: 1, MaxDelayMS: 2, BackoffMultiplier: 2.0}
	return New(client, time.Hour, retryCfg, zerolog.Nop()), srv
}

func TestStore_CheckNotFoundForUnknownKey(t *testing.T) {
	store, _ := newTestStore(t)
	status, err := store.Check(context.Background(), "missing")
	require.NoError(t, err)
	require.Equal(t, StatusNotFound, status)
}

func TestStore_ProcessingThenSentLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkProcessing(ctx, "k1"))
	status, err := store.Check(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, status)

	require.NoError(t, store.MarkSent(ctx, "k1"))
	status, err = store.Check(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, StatusSent, status)
}

func TestStore_MarkFailed(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkFailed(ctx, "k1"))
	status, err := store.Check(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, status)
}

func TestStore_SentExpiresAfterTTL(t *testing.T) {
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	retryCfg := retry.Config{MaxAttempts: 1, InitialDelayMS: 1, MaxDelayMS: 1, BackoffMultiplier: 1}
	store := New(client, time.Second, retryCfg, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, store.MarkSent(ctx, "k1"))
	srv.FastForward(2 * time.Second)

	status, err := store.Check(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, StatusNotFound, status)
}
