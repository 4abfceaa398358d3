package app

import (
	"context"
	"net/http"
	"time"

	"github.com/iamprecieee/distributed-notification-system/internal/alerting"
	"github.com/iamprecieee/distributed-notification-system/internal/audit"
	"github.com/iamprecieee/distributed-notification-system/internal/breaker"
	"github.com/iamprecieee/distributed-notification-system/internal/broker"
	"github.com/iamprecieee/distributed-notification-system/internal/config"
	"github.com/iamprecieee/distributed-notification-system/internal/dispatcher"
	"github.com/iamprecieee/distributed-notification-system/internal/healthapi"
	"github.com/iamprecieee/distributed-notification-system/internal/idempotency"
	"github.com/iamprecieee/distributed-notification-system/internal/logger"
	"github.com/iamprecieee/distributed-notification-system/internal/processor"
	"github.com/iamprecieee/distributed-notification-system/internal/pushclient"
	"github.com/iamprecieee/distributed-notification-system/internal/retry"
	"github.com/iamprecieee/distributed-notification-system/internal/storage/postgres"
	"github.com/iamprecieee/distributed-notification-system/internal/storage/rabbitmq"
	"github.com/iamprecieee/distributed-notification-system/internal/storage/redis"
	"github.com/iamprecieee/distributed-notification-system/internal/templateclient"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// loggerValue unwraps the shared *zerolog.Logger pointer into a value,
// matching the signature every component in this module takes.
func loggerValue(l *zerolog.Logger) zerolog.Logger { return *l }

func newRetryConfig(cfg *config.Config) retry.Config {
	return retry.FromAppConfig(cfg.Retry)
}

func newBreakerConfig(cfg *config.Config) breaker.Config {
	return breaker.FromAppConfig(cfg.CircuitBreaker)
}

// Two dependencies (template_service, fcm) each need their own breaker
// instance; fx can't disambiguate two values of the same type without
// names, so both are provided under fx.ResultTags and consumed under
// matching fx.ParamTags below.
func newTemplateBreaker(cfg breaker.Config, cache *goredis.Client, logger zerolog.Logger, alerts *alerting.Dispatcher) *breaker.Breaker {
	return breaker.New(templateclient.DependencyName, cache, cfg, logger,
		breaker.WithOnOpen(alerts.OnOpen), breaker.WithOnRecovered(alerts.OnRecovered))
}

func newFCMBreaker(cfg breaker.Config, cache *goredis.Client, logger zerolog.Logger, alerts *alerting.Dispatcher) *breaker.Breaker {
	return breaker.New(pushclient.DependencyName, cache, cfg, logger,
		breaker.WithOnOpen(alerts.OnOpen), breaker.WithOnRecovered(alerts.OnRecovered))
}

func newTemplateClient(cfg *config.Config, retryCfg retry.Config, cb *breaker.Breaker, logger zerolog.Logger) *templateclient.Client {
	return templateclient.New(cfg.TemplateClient.BaseURL, retryCfg, cb, logger)
}

func newPushClient(ctx context.Context, cfg *config.Config, retryCfg retry.Config, cb *breaker.Breaker, logger zerolog.Logger) (*pushclient.Client, error) {
	return pushclient.New(ctx, cfg.Push.ProjectID, []byte(cfg.Push.ServiceAccountCredentials), retryCfg, cb, logger)
}

func newIdempotencyStore(cfg *config.Config, cache *goredis.Client, retryCfg retry.Config, logger zerolog.Logger) *idempotency.Store {
	ttl := time.Duration(cfg.Idempotency.TTLSeconds) * time.Second
	return idempotency.New(cache, ttl, retryCfg, logger)
}

func newProcessor(store *idempotency.Store, templates *templateclient.Client, push *pushclient.Client, sink *audit.Sink, logger zerolog.Logger) *processor.Processor {
	return processor.New(store, templates, push, sink, logger)
}

func newDispatcher(b *broker.Broker, p *processor.Processor, cfg *config.Config, logger zerolog.Logger) *dispatcher.Dispatcher {
	return dispatcher.New(b, p, cfg.Worker, logger)
}

func newHealthServer(cfg *config.Config, redisClient *goredis.Client, pool *pgxpool.Pool, conn *amqp.Connection, templateBreaker, fcmBreaker *breaker.Breaker, logger zerolog.Logger) *healthapi.Server {
	return healthapi.NewServer(cfg, healthapi.Dependencies{
		Redis:          redisClient,
		Postgres:       pool,
		RabbitMQ:       conn,
		TemplateClient: templateBreaker,
		PushClient:     fcmBreaker,
	}, logger)
}

// CommonModule provides every dependency shared across commands: config,
// logging, storage connections, and the resiliency primitives (retry,
// breaker configs) that sit in front of the remote dependencies.
var CommonModule = fx.Options(
	fx.Provide(
		context.Background,
		config.NewConfig,
		logger.NewLogger,
		loggerValue,

		postgres.NewPool,
		redis.NewClient,
		rabbitmq.NewConnection,

		newRetryConfig,
		newBreakerConfig,
		alerting.NewDispatcher,

		fx.Annotate(newTemplateBreaker, fx.ResultTags(`name:"template_breaker"`)),
		fx.Annotate(newFCMBreaker, fx.ResultTags(`name:"fcm_breaker"`)),

		fx.Annotate(newTemplateClient, fx.ParamTags("", "", `name:"template_breaker"`, "")),
		fx.Annotate(newPushClient, fx.ParamTags("", "", "", `name:"fcm_breaker"`, "")),

		newIdempotencyStore,
		audit.New,
	),
)

// WorkerModule defines the Fx module for the background worker process:
// consume deliveries, process them, and serve the health endpoint.
var WorkerModule = fx.Options(
	CommonModule,
	fx.Provide(
		broker.New,
		newProcessor,
		newDispatcher,

		fx.Annotate(newHealthServer, fx.ParamTags("", "", "", "", `name:"template_breaker"`, `name:"fcm_breaker"`, "")),
	),

	fx.Invoke(func(d *dispatcher.Dispatcher, lc fx.Lifecycle) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := d.Run(context.Background()); err != nil {
						panic(err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return nil
			},
		})
	}),

	fx.Invoke(func(server *healthapi.Server, lc fx.Lifecycle) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						panic(err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return server.Shutdown(ctx)
			},
		})
	}),
)
