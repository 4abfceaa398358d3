package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the main struct that holds all configuration for the worker.
type Config struct {
	Logger         LoggerConfig         `mapstructure:"logger"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Postgres       PostgresConfig       `mapstructure:"postgres"`
	RabbitMQ       RabbitMQConfig       `mapstructure:"rabbitmq"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Idempotency    IdempotencyConfig    `mapstructure:"idempotency"`
	TemplateClient TemplateClientConfig `mapstructure:"template_client"`
	Push           PushConfig           `mapstructure:"push"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Retry          RetryConfig          `mapstructure:"retry"`
	Worker         WorkerConfig         `mapstructure:"worker"`
	Alerting       AlertingConfig       `mapstructure:"alerting"`
}

// LoggerConfig holds logging-specific settings.
type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

// HTTPConfig holds settings for the in-process health server.
type HTTPConfig struct {
	ServerPort int    `mapstructure:"server_port"`
	GinMode    string `mapstructure:"gin_mode"`
}

// PostgresConfig holds settings for the audit-log database connection.
type PostgresConfig struct {
	DatabaseURL string     `mapstructure:"database_url"`
	Pool        PoolConfig `mapstructure:"pool"`
}

// PoolConfig defines the connection pool settings for the database.
type PoolConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RabbitMQConfig holds settings for the broker connection and topology.
type RabbitMQConfig struct {
	URL            string `mapstructure:"url"`
	PushQueueName  string `mapstructure:"push_queue_name"`
	FailedQueue    string `mapstructure:"failed_queue_name"`
	PrefetchCount  int    `mapstructure:"prefetch_count"`
}

// RedisConfig holds settings for the shared cache (idempotency + breaker state).
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// IdempotencyConfig holds the idempotency-record TTL.
type IdempotencyConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// TemplateClientConfig holds the remote template service's base URL.
type TemplateClientConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// PushConfig holds settings for the FCM push-gateway client.
type PushConfig struct {
	ProjectID                 string `mapstructure:"project_id"`
	ServiceAccountCredentials string `mapstructure:"service_account_credentials"`
}

// CircuitBreakerConfig holds the breaker's threshold and timeout parameters.
type CircuitBreakerConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	SuccessThreshold int `mapstructure:"success_threshold"`
}

// RetryConfig holds the retry engine's backoff parameters.
type RetryConfig struct {
	MaxAttempts       int     `mapstructure:"max_attempts"`
	InitialDelayMS    int     `mapstructure:"initial_delay_ms"`
	MaxDelayMS        int     `mapstructure:"max_delay_ms"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
}

// WorkerConfig holds the dispatcher's concurrency bound.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// AlertingConfig holds settings for the ops alert dispatcher (A5).
type AlertingConfig struct {
	Mode     string         `mapstructure:"mode"` // "log_only" or "production"
	Email    EmailConfig    `mapstructure:"email"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// EmailConfig holds SMTP settings for the alert email channel.
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// TelegramConfig holds settings for the alert Telegram channel.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// NewConfig parses environment variables (and an optional config file) into
// a Config. Every field has a viper-level default, which also registers the
// key so its environment variable is picked up; connection URLs, push
// credentials and alert channel settings default to empty. Environment
// variables always win.
func NewConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")

	v.SetDefault("http.server_port", 8080)
	v.SetDefault("http.gin_mode", "release")

	v.SetDefault("postgres.database_url", "")
	v.SetDefault("postgres.pool.max_open_conns", 10)
	v.SetDefault("postgres.pool.max_idle_conns", 5)
	v.SetDefault("postgres.pool.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.push_queue_name", "notifications.push")
	v.SetDefault("rabbitmq.failed_queue_name", "notifications.push.failed")
	v.SetDefault("rabbitmq.prefetch_count", 10)

	v.SetDefault("redis.url", "")

	v.SetDefault("idempotency.ttl_seconds", 86400)

	v.SetDefault("template_client.base_url", "")

	v.SetDefault("push.project_id", "")
	v.SetDefault("push.service_account_credentials", "")

	v.SetDefault("circuit_breaker.failure_threshold", 5)
	v.SetDefault("circuit_breaker.timeout_seconds", 30)
	v.SetDefault("circuit_breaker.success_threshold", 2)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay_ms", 200)
	v.SetDefault("retry.max_delay_ms", 5000)
	v.SetDefault("retry.backoff_multiplier", 2.0)

	v.SetDefault("worker.concurrency", 10)

	v.SetDefault("alerting.mode", "log_only")
	v.SetDefault("alerting.email.host", "")
	v.SetDefault("alerting.email.port", 0)
	v.SetDefault("alerting.email.username", "")
	v.SetDefault("alerting.email.password", "")
	v.SetDefault("alerting.email.from", "")
	v.SetDefault("alerting.email.to", "")
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", 0)
}
