// Package alerting dispatches operational alerts when a circuit breaker
// trips or recovers. It repurposes the teacher's end-user notification
// channels (email, Telegram) for an internal audience: whoever is on call.
package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/iamprecieee/distributed-notification-system/internal/config"
	"github.com/rs/zerolog"
)

// Event is the kind of breaker transition that triggered an alert.
type Event string

const (
	EventCircuitOpen      Event = "circuit_open"
	EventCircuitRecovered Event = "circuit_recovered"
)

// Alert describes one breaker transition worth paging someone about.
type Alert struct {
	Dependency string
	Event      Event
	OccurredAt time.Time
}

// Subject renders a short, channel-agnostic headline for the alert.
func (a Alert) Subject() string {
	switch a.Event {
	case EventCircuitOpen:
		return fmt.Sprintf("circuit breaker OPEN: %s", a.Dependency)
	case EventCircuitRecovered:
		return fmt.Sprintf("circuit breaker RECOVERED: %s", a.Dependency)
	default:
		return fmt.Sprintf("circuit breaker event: %s (%s)", a.Dependency, a.Event)
	}
}

// Body renders the alert's longer-form message.
func (a Alert) Body() string {
	switch a.Event {
	case EventCircuitOpen:
		return fmt.Sprintf("dependency %q tripped its circuit breaker at %s and is now rejecting calls until its cooldown elapses.", a.Dependency, a.OccurredAt.Format(time.RFC3339))
	case EventCircuitRecovered:
		return fmt.Sprintf("dependency %q closed its circuit breaker at %s after enough consecutive successes in half-open state.", a.Dependency, a.OccurredAt.Format(time.RFC3339))
	default:
		return fmt.Sprintf("dependency %q reported event %q at %s.", a.Dependency, a.Event, a.OccurredAt.Format(time.RFC3339))
	}
}

// Notifier sends an alert over one channel.
type Notifier interface {
	Send(ctx context.Context, a Alert) error
}

// Dispatcher broadcasts every alert to all configured channels. Unlike the
// per-channel routing the teacher used for end-user notifications, ops
// alerts have no per-alert destination: every enabled channel gets every
// alert.
type Dispatcher struct {
	notifiers []Notifier
	logger    zerolog.Logger
}

// NewDispatcher builds the channel set from cfg.Alerting.Mode. In
// "log_only" mode (the default), alerts only ever reach the log. In
// "production" mode, email and/or Telegram are added on top of the log
// fallback whenever their settings are populated.
func NewDispatcher(cfg *config.Config, logger zerolog.Logger) (*Dispatcher, error) {
	log := logger.With().Str("component", "alert_dispatcher").Logger()
	log.Info().Str("mode", cfg.Alerting.Mode).Msg("initializing ops alert channels")

	notifiers := []Notifier{NewLogNotifier(log)}

	if cfg.Alerting.Mode == "production" {
		if cfg.Alerting.Email.Host != "" {
			notifiers = append(notifiers, NewEmailNotifier(cfg.Alerting.Email, log))
			log.Info().Msg("email alert channel enabled")
		}
		if cfg.Alerting.Telegram.BotToken != "" {
			tg, err := NewTelegramNotifier(cfg.Alerting.Telegram, log)
			if err != nil {
				return nil, fmt.Errorf("alerting: failed to initialize telegram channel: %w", err)
			}
			notifiers = append(notifiers, tg)
			log.Info().Msg("telegram alert channel enabled")
		}
	}

	return &Dispatcher{notifiers: notifiers, logger: log}, nil
}

// Dispatch fans alert out to every configured channel. A single channel's
// failure is logged and does not stop delivery on the others.
func (d *Dispatcher) Dispatch(ctx context.Context, a Alert) {
	for _, n := range d.notifiers {
		if err := n.Send(ctx, a); err != nil {
			d.logger.Error().Err(err).Str("dependency", a.Dependency).Str("event", string(a.Event)).Msg("alert channel failed")
		}
	}
}

// OnOpen dispatches an open alert; its method value serves as a
// breaker.TransitionHook.
func (d *Dispatcher) OnOpen(dependency string) {
	d.Dispatch(context.Background(), Alert{Dependency: dependency, Event: EventCircuitOpen, OccurredAt: time.Now()})
}

// OnRecovered dispatches a recovery alert; its method value serves as a
// breaker.TransitionHook.
func (d *Dispatcher) OnRecovered(dependency string) {
	d.Dispatch(context.Background(), Alert{Dependency: dependency, Event: EventCircuitRecovered, OccurredAt: time.Now()})
}
