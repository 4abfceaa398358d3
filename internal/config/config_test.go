package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 8080, cfg.HTTP.ServerPort)
	assert.Equal(t, "notifications.push", cfg.RabbitMQ.PushQueueName)
	assert.Equal(t, "notifications.push.failed", cfg.RabbitMQ.FailedQueue)
	assert.Equal(t, 10, cfg.RabbitMQ.PrefetchCount)
	assert.Equal(t, 86400, cfg.Idempotency.TTLSeconds)
	assert.Equal(t, 5, cfg.CircuitBreaker.FailureThreshold)
	assert.Equal(t, 30, cfg.CircuitBreaker.TimeoutSeconds)
	assert.Equal(t, 2, cfg.CircuitBreaker.SuccessThreshold)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2.0, cfg.Retry.BackoffMultiplier)
	assert.Equal(t, 10, cfg.Worker.Concurrency)
	assert.Equal(t, "log_only", cfg.Alerting.Mode)
}

func TestNewConfig_EnvOverride(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "25")
	t.Setenv("REDIS_URL", "redis://localhost:6390")
	t.Setenv("ALERTING_MODE", "production")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Worker.Concurrency)
	assert.Equal(t, "redis://localhost:6390", cfg.Redis.URL)
	assert.Equal(t, "production", cfg.Alerting.Mode)
}
