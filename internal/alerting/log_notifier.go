package alerting

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes the alert to the structured log. It is always active,
// even in production mode, as the last-resort channel.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("channel", "log").Logger()}
}

// Send implements Notifier.
func (n *LogNotifier) Send(_ context.Context, a Alert) error {
	n.logger.Warn().Str("dependency", a.Dependency).Str("event", string(a.Event)).Msg(a.Subject())
	return nil
}
