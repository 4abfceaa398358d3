// Package processor orchestrates one notification through the
// idempotency store, template client, and push client (C8).
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	domaudit "github.com/iamprecieee/distributed-notification-system/internal/domain/audit"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/message"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/procerr"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/template"
	"github.com/iamprecieee/distributed-notification-system/internal/idempotency"
	"github.com/iamprecieee/distributed-notification-system/internal/templateclient"
	"github.com/rs/zerolog"
)

const (
	minTokenLength = 20
	maxTokenLength = 200
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_\-:.]+$`)

// Outcome is the result of one Process call.
type Outcome struct {
	// Skipped is true when the message was a duplicate (idempotency
	// status Sent or Processing) and no work was performed.
	Skipped bool
	// Message is the parsed notification, present whenever parsing
	// succeeded (even on later failure), so callers can build a DLQ entry.
	Message *message.NotificationMessage
}

// AuditSink is the subset of audit.Sink the processor needs.
type AuditSink interface {
	LogBestEffort(ctx context.Context, entry domaudit.Entry)
}

// IdempotencyStore is the subset of idempotency.Store the processor needs.
type IdempotencyStore interface {
	Check(ctx context.Context, key string) (idempotency.Status, error)
	MarkProcessing(ctx context.Context, key string) error
	MarkSent(ctx context.Context, key string) error
	MarkFailed(ctx context.Context, key string) error
}

// TemplateFetcher matches templateclient.Client.Fetch's signature; kept
// as its own interface so tests can substitute a fake without standing
// up an HTTP server.
type TemplateFetcher interface {
	Fetch(ctx context.Context, templateCode, language string) (template.Template, error)
}

// pushSenderIface matches pushclient.Client.Send's exact signature; kept
// as an unexported interface so tests can substitute a fake without
// importing the OAuth2-bearing pushclient package.
type pushSenderIface interface {
	Send(ctx context.Context, deviceToken, title, body, traceID string, extraData map[string]string) error
}

// Processor wires C1, C4, C5, C6 together for one message at a time.
type Processor struct {
	idempotency IdempotencyStore
	templates   TemplateFetcher
	push        pushSenderIface
	audit       AuditSink
	logger      zerolog.Logger
}

// New creates a Processor.
func New(store IdempotencyStore, templates TemplateFetcher, push pushSenderIface, audit AuditSink, logger zerolog.Logger) *Processor {
	return &Processor{
		idempotency: store,
		templates:   templates,
		push:        push,
		audit:       audit,
		logger:      logger.With().Str("component", "processor").Logger(),
	}
}

// Process runs one notification through the pipeline described in
// spec §4.8. It returns a nil *procerr.Error for both full success and a
// duplicate skip; Outcome.Skipped distinguishes the two.
func (p *Processor) Process(ctx context.Context, rawPayload []byte) (Outcome, *procerr.Error) {
	var msg message.NotificationMessage
	if err := json.Unmarshal(rawPayload, &msg); err != nil {
		return Outcome{}, procerr.New(procerr.KindMalformedMessage, err)
	}

	outcome := Outcome{Message: &msg}
	log := p.logger.With().Str("trace_id", msg.TraceID).Str("idempotency_key", msg.IdempotencyKey).Logger()

	status, err := p.idempotency.Check(ctx, msg.IdempotencyKey)
	if err != nil {
		log.Warn().Err(err).Msg("idempotency check failed, proceeding as not-found")
	}
	if status == idempotency.StatusSent || status == idempotency.StatusProcessing {
		log.Info().Str("status", string(status)).Msg("duplicate notification, skipping")
		outcome.Skipped = true
		return outcome, nil
	}

	if err := p.idempotency.MarkProcessing(ctx, msg.IdempotencyKey); err != nil {
		log.Warn().Err(err).Msg("failed to mark processing")
	}

	pushToken, ok := msg.PushToken()
	if !ok || pushToken == "" {
		p.failAndAudit(ctx, msg, domaudit.StatusFailed, "missing push_token in metadata")
		return outcome, procerr.New(procerr.KindMissingToken, fmt.Errorf("metadata.push_token missing"))
	}

	if err := validateToken(pushToken); err != nil {
		p.failAndAudit(ctx, msg, domaudit.StatusFailed, err.Error())
		return outcome, procerr.New(procerr.KindInvalidToken, err)
	}

	tmpl, err := p.templates.Fetch(ctx, msg.TemplateCode, "en")
	if err != nil {
		p.failAndAudit(ctx, msg, domaudit.StatusFailed, err.Error())
		return outcome, procerr.New(procerr.KindTemplateFetch, err)
	}

	content, err := templateclient.Render(tmpl, msg.Variables)
	if err != nil {
		p.failAndAudit(ctx, msg, domaudit.StatusFailed, err.Error())
		return outcome, procerr.New(procerr.KindTemplateRender, err)
	}

	if err := p.push.Send(ctx, pushToken, content.Title, content.Body, msg.TraceID, nil); err != nil {
		p.failAndAudit(ctx, msg, domaudit.StatusFailed, err.Error())
		return outcome, procerr.New(procerr.KindPushFailed, err)
	}

	if err := p.idempotency.MarkSent(ctx, msg.IdempotencyKey); err != nil {
		log.Error().Err(err).Msg("failed to mark sent after successful push")
	}

	p.audit.LogBestEffort(ctx, domaudit.Entry{
		TraceID:          msg.TraceID,
		UserID:           msg.UserID,
		NotificationType: msg.NotificationType,
		TemplateCode:     msg.TemplateCode,
		Status:           domaudit.StatusSent,
	})

	return outcome, nil
}

func (p *Processor) failAndAudit(ctx context.Context, msg message.NotificationMessage, status domaudit.Status, reason string) {
	if err := p.idempotency.MarkFailed(ctx, msg.IdempotencyKey); err != nil {
		p.logger.Warn().Err(err).Str("idempotency_key", msg.IdempotencyKey).Msg("failed to mark failed")
	}
	p.audit.LogBestEffort(ctx, domaudit.Entry{
		TraceID:          msg.TraceID,
		UserID:           msg.UserID,
		NotificationType: msg.NotificationType,
		TemplateCode:     msg.TemplateCode,
		Status:           status,
	}.WithError(reason))
}

func validateToken(token string) error {
	if token == "" {
		return fmt.Errorf("push token is empty")
	}
	if len(token) < minTokenLength || len(token) > maxTokenLength {
		return fmt.Errorf("push token length %d out of range [%d, %d]", len(token), minTokenLength, maxTokenLength)
	}
	if !tokenPattern.MatchString(token) {
		return fmt.Errorf("push token contains invalid characters")
	}
	return nil
}
