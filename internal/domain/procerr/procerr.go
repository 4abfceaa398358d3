// Package procerr defines the processor's error taxonomy, each kind
// carrying the broker and idempotency handling it implies.
package procerr

import "errors"

// Kind classifies why process() failed.
type Kind string

const (
	KindMalformedMessage Kind = "malformed_message"
	KindMissingToken     Kind = "missing_token"
	KindInvalidToken     Kind = "invalid_token"
	KindTemplateFetch    Kind = "template_fetch"
	KindTemplateRender   Kind = "template_render"
	KindPushFailed       Kind = "push_failed"
	KindCircuitOpen      Kind = "circuit_open"
)

// Error is the typed error surfaced by the processor. The processor
// returns a nil *Error both for a successful send and for a message
// skipped as a duplicate.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// ErrCircuitOpen is returned by the circuit breaker when it rejects a
// call without invoking the wrapped operation.
var ErrCircuitOpen = errors.New("circuit breaker open")

// DLQEligible reports whether a failure of this kind should be
// dead-lettered. MalformedMessage is the only processor failure that
// skips the DLQ, because the payload itself is unusable.
func (k Kind) DLQEligible() bool {
	return k != KindMalformedMessage
}
