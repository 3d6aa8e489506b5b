package bridge

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/yasincandan35/remotedesk/internal/input"
)

// Forwarder feeds a Sink from its own goroutine so the caller never waits on
// injection. Events reach the sink in the order they were forwarded; once the
// backlog is full new events are dropped.
type Forwarder struct {
	sink   Sink
	events chan input.Event

	submitted atomic.Int64
	dropped   atomic.Int64
}

func NewForwarder(sink Sink, backlog int) *Forwarder {
	if backlog <= 0 {
		backlog = DefaultQueueSize
	}
	return &Forwarder{sink: sink, events: make(chan input.Event, backlog)}
}

// Forward queues ev without blocking and reports whether it was accepted.
func (f *Forwarder) Forward(ev input.Event) bool {
	select {
	case f.events <- ev:
		return true
	default:
		f.dropped.Add(1)
		return false
	}
}

// Run submits queued events one at a time until ctx is done.
func (f *Forwarder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-f.events:
			if err := f.sink.Submit(ctx, ev); err != nil {
				slog.Debug("input not submitted", "kind", ev.Kind, "error", err)
				continue
			}
			f.submitted.Add(1)
		}
	}
}

func (f *Forwarder) Submitted() int64 { return f.submitted.Load() }

func (f *Forwarder) Dropped() int64 { return f.dropped.Load() }
