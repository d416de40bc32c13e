package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"slotwise/backend/internal/domain"
)

var ErrQueueFull = errors.New("notify: broadcast queue full")

type Sink interface {
	Notify(ctx context.Context, event domain.ChangeEvent) error
}

type namedSink struct {
	name string
	sink Sink
}

// Fanout delivers committed changes to every sink. Delivery failures are
// logged and never reach the caller.
type Fanout struct {
	log     *slog.Logger
	timeout time.Duration
	sinks   []namedSink
}

func NewFanout(log *slog.Logger, timeout time.Duration) *Fanout {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Fanout{log: log.With(slog.String("component", "notify")), timeout: timeout}
}

func (f *Fanout) Add(name string, sink Sink) {
	if sink == nil {
		return
	}
	f.sinks = append(f.sinks, namedSink{name: name, sink: sink})
}

func (f *Fanout) Notify(ctx context.Context, event domain.ChangeEvent) {
	for _, s := range f.sinks {
		sctx, cancel := context.WithTimeout(ctx, f.timeout)
		err := s.sink.Notify(sctx, event)
		cancel()
		if err != nil {
			f.log.Warn("change broadcast failed",
				slog.String("sink", s.name),
				slog.String("type", string(event.Type)),
				slog.String("organization_id", event.OrganizationID),
				slog.Any("err", err),
			)
		}
	}
}
