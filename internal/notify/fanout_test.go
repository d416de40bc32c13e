package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"slotwise/backend/internal/domain"
)

type fakeSink struct {
	notifyFn func(ctx context.Context, event domain.ChangeEvent) error
	events   []domain.ChangeEvent
}

func (f *fakeSink) Notify(ctx context.Context, event domain.ChangeEvent) error {
	f.events = append(f.events, event)
	if f.notifyFn != nil {
		return f.notifyFn(ctx, event)
	}
	return nil
}

func TestFanout_ContinuesPastFailingSink(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	f := NewFanout(log, time.Second)

	failing := &fakeSink{notifyFn: func(ctx context.Context, _ domain.ChangeEvent) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("sink context has no deadline")
		}
		return errors.New("broker down")
	}}
	ok := &fakeSink{}
	f.Add("amqp", failing)
	f.Add("ws", ok)
	f.Add("nil", nil)

	event := domain.ChangeEvent{Type: domain.ChangeBreaksReplaced, OrganizationID: "org-1"}
	f.Notify(context.Background(), event)

	if len(failing.events) != 1 || len(ok.events) != 1 {
		t.Fatalf("deliveries = %d/%d, want 1/1", len(failing.events), len(ok.events))
	}
	out := buf.String()
	if !strings.Contains(out, "sink=amqp") || !strings.Contains(out, "broker down") {
		t.Fatalf("log output missing failure: %s", out)
	}
	if strings.Contains(out, "sink=ws") {
		t.Fatalf("successful sink logged as failure: %s", out)
	}
}

func TestRoutingKey(t *testing.T) {
	tests := []struct {
		typ  domain.ChangeType
		want string
	}{
		{domain.ChangeScheduleCreated, "schedule.created"},
		{domain.ChangeScheduleDeleted, "schedule.deleted"},
		{domain.ChangeSettingsUpdated, "settings.updated"},
	}
	for _, tt := range tests {
		if got := RoutingKey(domain.ChangeEvent{Type: tt.typ}); got != tt.want {
			t.Fatalf("RoutingKey(%s) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
