// Package message defines the wire shapes exchanged with the broker.
package message

import (
	"encoding/json"
	"fmt"
)

// NotificationMessage is the payload consumed from the primary queue.
// It is immutable once parsed; nothing in the worker mutates it.
type NotificationMessage struct {
	TraceID          string                 `json:"trace_id"`
	IdempotencyKey   string                 `json:"idempotency_key"`
	UserID           string                 `json:"user_id"`
	NotificationType string                 `json:"notification_type"`
	TemplateCode     string                 `json:"template_code"`
	Variables        map[string]interface{} `json:"variables"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// legacyNotificationMessage mirrors historical producer shapes still seen
// during the migration described in the original spec's open question:
// request_id instead of trace_id, and a top-level push_token instead of
// metadata.push_token.
type legacyNotificationMessage struct {
	RequestID string `json:"request_id"`
	PushToken string `json:"push_token"`
}

// PushToken extracts metadata.push_token, the canonical location.
func (m NotificationMessage) PushToken() (string, bool) {
	v, ok := m.Metadata["push_token"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return s, true
}

// UnmarshalJSON accepts the canonical envelope and falls back to the
// legacy field names (request_id, top-level push_token) when the
// canonical ones are absent, without treating the legacy shape as
// canonical for anything this worker itself produces.
func (m *NotificationMessage) UnmarshalJSON(data []byte) error {
	type alias NotificationMessage
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var legacy legacyNotificationMessage
	_ = json.Unmarshal(data, &legacy)

	if a.TraceID == "" && legacy.RequestID != "" {
		a.TraceID = legacy.RequestID
	}
	if legacy.PushToken != "" {
		if a.Metadata == nil {
			a.Metadata = make(map[string]interface{})
		}
		if _, exists := a.Metadata["push_token"]; !exists {
			a.Metadata["push_token"] = legacy.PushToken
		}
	}

	*m = NotificationMessage(a)
	return nil
}

// DlqMessage wraps a terminally-failed notification with failure metadata.
type DlqMessage struct {
	OriginalMessage NotificationMessage `json:"original_message"`
	FailureReason   string              `json:"failure_reason"`
	FailedAt        string              `json:"failed_at"`
}

func (m NotificationMessage) String() string {
	return fmt.Sprintf("NotificationMessage{trace_id=%s idempotency_key=%s type=%s}", m.TraceID, m.IdempotencyKey, m.NotificationType)
}
