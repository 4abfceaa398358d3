package alerting

import (
	"context"

	"github.com/iamprecieee/distributed-notification-system/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// EmailNotifier sends alerts via SMTP to the configured on-call address.
type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
	to     string
	logger zerolog.Logger
}

// NewEmailNotifier creates an EmailNotifier.
func NewEmailNotifier(cfg config.EmailConfig, logger zerolog.Logger) *EmailNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &EmailNotifier{
		dialer: d,
		from:   cfg.From,
		to:     cfg.To,
		logger: logger.With().Str("channel", "email").Logger(),
	}
}

// Send implements Notifier.
func (n *EmailNotifier) Send(_ context.Context, a Alert) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", a.Subject())
	m.SetBody("text/plain", a.Body())

	if err := n.dialer.DialAndSend(m); err != nil {
		n.logger.Error().Err(err).Str("dependency", a.Dependency).Msg("failed to send alert email")
		return err
	}

	n.logger.Info().Str("dependency", a.Dependency).Str("to", n.to).Msg("alert email sent")
	return nil
}
