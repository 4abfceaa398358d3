package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeNotifier struct {
	alerts []Alert
	err    error
}

func (f *fakeNotifier) Send(ctx context.Context, a Alert) error {
	f.alerts = append(f.alerts, a)
	return f.err
}

func TestDispatcher_BroadcastsToAllChannels(t *testing.T) {
	a := &fakeNotifier{}
	b := &fakeNotifier{}
	d := &Dispatcher{notifiers: []Notifier{a, b}}

	alert := Alert{Dependency: "fcm", Event: EventCircuitOpen, OccurredAt: time.Unix(0, 0)}
	d.Dispatch(context.Background(), alert)

	assert.Len(t, a.alerts, 1)
	assert.Len(t, b.alerts, 1)
	assert.Equal(t, "fcm", a.alerts[0].Dependency)
}

func TestDispatcher_OneChannelFailureDoesNotBlockOthers(t *testing.T) {
	failing := &fakeNotifier{err: assertErr("smtp down")}
	ok := &fakeNotifier{}
	d := &Dispatcher{notifiers: []Notifier{failing, ok}}

	d.Dispatch(context.Background(), Alert{Dependency: "template_service", Event: EventCircuitRecovered})

	assert.Len(t, failing.alerts, 1)
	assert.Len(t, ok.alerts, 1)
}

func TestAlert_SubjectAndBody(t *testing.T) {
	a := Alert{Dependency: "fcm", Event: EventCircuitOpen, OccurredAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	assert.Contains(t, a.Subject(), "OPEN")
	assert.Contains(t, a.Subject(), "fcm")
	assert.Contains(t, a.Body(), "2026-08-01")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
