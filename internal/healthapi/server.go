// Package healthapi exposes a minimal gin HTTP server reporting the
// worker's readiness: connectivity to its hard dependencies and the
// observed state of its circuit breakers (A4).
package healthapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamprecieee/distributed-notification-system/internal/breaker"
	"github.com/iamprecieee/distributed-notification-system/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Dependencies bundles everything the health handler needs to probe.
type Dependencies struct {
	Redis          *goredis.Client
	Postgres       *pgxpool.Pool
	RabbitMQ       *amqp.Connection
	TemplateClient *breaker.Breaker
	PushClient     *breaker.Breaker
}

// Server wraps an http.Server serving only the health endpoint.
type Server struct {
	*http.Server
	logger zerolog.Logger
}

// NewServer builds the gin router and binds it to the configured port.
func NewServer(cfg *config.Config, deps Dependencies, logger zerolog.Logger) *Server {
	log := logger.With().Str("component", "health_server").Logger()

	gin.SetMode(cfg.HTTP.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler := newHandler(deps, log)
	router.GET("/health", handler.Health)

	return &Server{
		Server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.HTTP.ServerPort),
			Handler: router,
		},
		logger: log,
	}
}

type status string

const (
	statusHealthy   status = "healthy"
	statusDegraded  status = "degraded"
	statusUnhealthy status = "unhealthy"
)

type dependencyReport struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyReport `json:"dependencies"`
}

type handler struct {
	deps   Dependencies
	logger zerolog.Logger
}

func newHandler(deps Dependencies, logger zerolog.Logger) *handler {
	return &handler{deps: deps, logger: logger}
}

// Health reports "healthy" when every hard dependency is reachable and
// every circuit breaker is closed, "degraded" when a circuit breaker is
// open or half-open but hard dependencies are fine, and "unhealthy" when
// a hard dependency (redis, postgres, rabbitmq) cannot be reached.
func (h *handler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	deps := make(map[string]dependencyReport, 5)

	hardHealthy := true
	checkHard := func(name string, err error) {
		if err != nil {
			hardHealthy = false
			deps[name] = dependencyReport{Status: string(statusUnhealthy), Error: err.Error()}
			return
		}
		deps[name] = dependencyReport{Status: string(statusHealthy)}
	}

	checkHard("redis", h.checkRedis(ctx))
	checkHard("postgres", h.checkPostgres(ctx))
	checkHard("rabbitmq", h.checkRabbitMQ())

	breakersDegraded := false
	if h.deps.TemplateClient != nil {
		state := h.deps.TemplateClient.CurrentState(ctx)
		deps["circuit_template_service"] = dependencyReport{Status: string(state)}
		if state != breaker.StateClosed {
			breakersDegraded = true
		}
	}
	if h.deps.PushClient != nil {
		state := h.deps.PushClient.CurrentState(ctx)
		deps["circuit_fcm"] = dependencyReport{Status: string(state)}
		if state != breaker.StateClosed {
			breakersDegraded = true
		}
	}

	overall := statusHealthy
	httpStatus := http.StatusOK
	switch {
	case !hardHealthy:
		overall = statusUnhealthy
		httpStatus = http.StatusServiceUnavailable
	case breakersDegraded:
		overall = statusDegraded
		httpStatus = http.StatusOK
	}

	c.JSON(httpStatus, healthResponse{Status: string(overall), Dependencies: deps})
}

func (h *handler) checkRedis(ctx context.Context) error {
	if h.deps.Redis == nil {
		return nil
	}
	return h.deps.Redis.Ping(ctx).Err()
}

func (h *handler) checkPostgres(ctx context.Context) error {
	if h.deps.Postgres == nil {
		return nil
	}
	return h.deps.Postgres.Ping(ctx)
}

func (h *handler) checkRabbitMQ() error {
	if h.deps.RabbitMQ == nil {
		return nil
	}
	if h.deps.RabbitMQ.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	return nil
}
