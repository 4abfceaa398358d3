package processor

import (
	"context"
	"errors"
	"testing"

	domaudit "github.com/iamprecieee/distributed-notification-system/internal/domain/audit"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/procerr"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/template"
	"github.com/iamprecieee/distributed-notification-system/internal/idempotency"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdempotency struct {
	status       idempotency.Status
	processing   []string
	sent         []string
	failed       []string
	checkErr     error
	markErrValue error
}

func (f *fakeIdempotency) Check(ctx context.Context, key string) (idempotency.Status, error) {
	return f.status, f.checkErr
}
func (f *fakeIdempotency) MarkProcessing(ctx context.Context, key string) error {
	f.processing = append(f.processing, key)
	return f.markErrValue
}
func (f *fakeIdempotency) MarkSent(ctx context.Context, key string) error {
	f.sent = append(f.sent, key)
	return f.markErrValue
}
func (f *fakeIdempotency) MarkFailed(ctx context.Context, key string) error {
	f.failed = append(f.failed, key)
	return f.markErrValue
}

type fakeTemplates struct {
	tmpl    template.Template
	fetched int
	err     error
}

func (f *fakeTemplates) Fetch(ctx context.Context, templateCode, language string) (template.Template, error) {
	f.fetched++
	return f.tmpl, f.err
}

type fakePush struct {
	calls int
	err   error
}

func (f *fakePush) Send(ctx context.Context, deviceToken, title, body, traceID string, extraData map[string]string) error {
	f.calls++
	return f.err
}

type fakeAudit struct {
	entries []domaudit.Entry
}

func (f *fakeAudit) LogBestEffort(ctx context.Context, entry domaudit.Entry) {
	f.entries = append(f.entries, entry)
}

func validMessage() []byte {
	return []byte(`{
		"trace_id": "t1",
		"idempotency_key": "k1",
		"user_id": "11111111-1111-1111-1111-111111111111",
		"notification_type": "push",
		"template_code": "WELCOME",
		"variables": {"user_name": "Alice"},
		"metadata": {"push_token": "abcdefghij0123456789"}
	}`)
}

func TestProcess_HappyPath(t *testing.T) {
	idemp := &fakeIdempotency{status: idempotency.StatusNotFound}
	templates := &fakeTemplates{tmpl: template.Template{Content: template.Content{Title: "Hi {{user_name}}", Body: "Welcome"}}}
	push := &fakePush{}
	audit := &fakeAudit{}

	p := New(idemp, templates, push, audit, zerolog.Nop())

	outcome, procErr := p.Process(context.Background(), validMessage())

	require.Nil(t, procErr)
	assert.False(t, outcome.Skipped)
	assert.Equal(t, 1, push.calls)
	assert.Equal(t, []string{"k1"}, idemp.sent)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, domaudit.StatusSent, audit.entries[0].Status)
}

func TestProcess_DuplicateSentIsSkipped(t *testing.T) {
	idemp := &fakeIdempotency{status: idempotency.StatusSent}
	templates := &fakeTemplates{}
	push := &fakePush{}
	audit := &fakeAudit{}

	p := New(idemp, templates, push, audit, zerolog.Nop())
	outcome, procErr := p.Process(context.Background(), validMessage())

	require.Nil(t, procErr)
	assert.True(t, outcome.Skipped)
	assert.Equal(t, 0, push.calls)
	assert.Equal(t, 0, templates.fetched)
}

func TestProcess_MalformedJSON(t *testing.T) {
	p := New(&fakeIdempotency{}, &fakeTemplates{}, &fakePush{}, &fakeAudit{}, zerolog.Nop())

	outcome, procErr := p.Process(context.Background(), []byte("{ not json"))

	require.NotNil(t, procErr)
	assert.Equal(t, procerr.KindMalformedMessage, procErr.Kind)
	assert.Nil(t, outcome.Message)
}

func TestProcess_MissingPushToken(t *testing.T) {
	idemp := &fakeIdempotency{status: idempotency.StatusNotFound}
	audit := &fakeAudit{}

	p := New(idemp, &fakeTemplates{}, &fakePush{}, audit, zerolog.Nop())

	raw := []byte(`{"trace_id":"t1","idempotency_key":"k1","user_id":"11111111-1111-1111-1111-111111111111","metadata":{}}`)
	_, procErr := p.Process(context.Background(), raw)

	require.NotNil(t, procErr)
	assert.Equal(t, procerr.KindMissingToken, procErr.Kind)
	assert.Equal(t, []string{"k1"}, idemp.failed)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, domaudit.StatusFailed, audit.entries[0].Status)
}

func TestProcess_InvalidToken(t *testing.T) {
	idemp := &fakeIdempotency{status: idempotency.StatusNotFound}

	p := New(idemp, &fakeTemplates{}, &fakePush{}, &fakeAudit{}, zerolog.Nop())

	raw := []byte(`{"trace_id":"t1","idempotency_key":"k1","user_id":"11111111-1111-1111-1111-111111111111","metadata":{"push_token":"short"}}`)
	_, procErr := p.Process(context.Background(), raw)

	require.NotNil(t, procErr)
	assert.Equal(t, procerr.KindInvalidToken, procErr.Kind)
}

func TestProcess_TemplateFetchFailure(t *testing.T) {
	idemp := &fakeIdempotency{status: idempotency.StatusNotFound}
	templates := &fakeTemplates{err: errors.New("template service down")}

	p := New(idemp, templates, &fakePush{}, &fakeAudit{}, zerolog.Nop())

	_, procErr := p.Process(context.Background(), validMessage())

	require.NotNil(t, procErr)
	assert.Equal(t, procerr.KindTemplateFetch, procErr.Kind)
}

func TestProcess_TemplateRenderFailure(t *testing.T) {
	idemp := &fakeIdempotency{status: idempotency.StatusNotFound}
	templates := &fakeTemplates{tmpl: template.Template{Content: template.Content{Title: "Hi {{missing}}", Body: "x"}}}

	p := New(idemp, templates, &fakePush{}, &fakeAudit{}, zerolog.Nop())

	_, procErr := p.Process(context.Background(), validMessage())

	require.NotNil(t, procErr)
	assert.Equal(t, procerr.KindTemplateRender, procErr.Kind)
}

func TestProcess_PushFailure(t *testing.T) {
	idemp := &fakeIdempotency{status: idempotency.StatusNotFound}
	templates := &fakeTemplates{tmpl: template.Template{Content: template.Content{Title: "Hi", Body: "x"}}}
	push := &fakePush{err: errors.New("fcm request failed: 500")}

	p := New(idemp, templates, push, &fakeAudit{}, zerolog.Nop())

	_, procErr := p.Process(context.Background(), validMessage())

	require.NotNil(t, procErr)
	assert.Equal(t, procerr.KindPushFailed, procErr.Kind)
	assert.Equal(t, []string{"k1"}, idemp.failed)
}
