// Package audit implements the append-only audit-log sink backing C6.
package audit

import (
	"context"
	"fmt"

	domaudit "github.com/iamprecieee/distributed-notification-system/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Sink writes terminal audit records to PostgreSQL. Errors from Log are
// never fatal to the caller: the broker's ack/reject decision is the
// authority on delivery accounting, the audit table is best-effort.
type Sink struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New creates an audit sink backed by pool.
func New(pool *pgxpool.Pool, logger zerolog.Logger) *Sink {
	return &Sink{
		pool:   pool,
		logger: logger.With().Str("component", "audit_sink").Logger(),
	}
}

const insertAuditLog = `
INSERT INTO audit_logs (
	trace_id, user_id, notification_type, template_code, status, error_message, metadata
) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Log inserts one audit row. user_id is parsed as a UUID by the caller
// before reaching this sink; a malformed UUID is a caller error and is
// returned, not swallowed, so callers can distinguish "couldn't write"
// from "gave me garbage".
func (s *Sink) Log(ctx context.Context, entry domaudit.Entry) error {
	userUUID, err := uuid.Parse(entry.UserID)
	if err != nil {
		return fmt.Errorf("audit: invalid user_id %q: %w", entry.UserID, err)
	}

	metadata := entry.Metadata
	if metadata == nil {
		metadata = []byte("{}")
	}

	_, err = s.pool.Exec(ctx, insertAuditLog,
		entry.TraceID,
		userUUID,
		entry.NotificationType,
		entry.TemplateCode,
		string(entry.Status),
		entry.ErrorMessage,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to write log: %w", err)
	}
	return nil
}

// LogBestEffort calls Log and swallows the error after logging it, per
// the processor's contract that audit failures never block ack/reject.
func (s *Sink) LogBestEffort(ctx context.Context, entry domaudit.Entry) {
	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("trace_id", entry.TraceID).Msg("failed to write audit log")
	}
}

// HealthCheck verifies connectivity to the audit database.
func (s *Sink) HealthCheck(ctx context.Context) error {
	var result int
	row := s.pool.QueryRow(ctx, "SELECT 1")
	if err := row.Scan(&result); err != nil {
		return fmt.Errorf("audit: health check failed: %w", err)
	}
	return nil
}
