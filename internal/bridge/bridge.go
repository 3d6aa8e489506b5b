// Package bridge applies remote input events to the local desktop.
//
// Events are queued in arrival order and applied by one worker goroutine.
// When no injector is available every event is accepted and discarded.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/yasincandan35/remotedesk/internal/input"
)

const DefaultQueueSize = 256

var (
	ErrUnavailable = errors.New("input injection unavailable")
	ErrClosed      = errors.New("bridge closed")
)

// Sink accepts input events for injection. Both the in-process Bridge and the
// boundary Client implement it.
type Sink interface {
	Submit(ctx context.Context, ev input.Event) error
	Available() bool
}

// Injector drives the native mouse and keyboard. Buttons are left, middle
// and right; keys use the names in keymap.go.
type Injector interface {
	ScreenSize() (width, height int)
	MoveMouse(x, y int)
	ToggleButton(button string, down bool)
	DoubleClick(button string)
	ToggleKey(key string, down bool)
	TapKey(key string)
	TypeText(text string)
	Scroll(dx, dy int)
}

type Bridge struct {
	inj   Injector
	queue chan input.Event

	done      chan struct{}
	closeOnce sync.Once
}

// New returns a bridge over inj. A nil inj gives a bridge that accepts
// events and drops them.
func New(inj Injector, queueSize int) *Bridge {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bridge{
		inj:   inj,
		queue: make(chan input.Event, queueSize),
		done:  make(chan struct{}),
	}
}

func (b *Bridge) Available() bool {
	return b.inj != nil
}

// Submit queues ev. It blocks while the queue is full and returns early only
// when ctx is done or the bridge is closed.
func (b *Bridge) Submit(ctx context.Context, ev input.Event) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}

	select {
	case b.queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrClosed
	}
}

// Run applies queued events until ctx is done or Close is called.
func (b *Bridge) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case ev := <-b.queue:
			if err := b.Apply(ev); err != nil {
				if errors.Is(err, ErrUnavailable) {
					slog.Debug("input dropped", "kind", ev.Kind, "reason", err)
				} else {
					slog.Warn("input rejected", "kind", ev.Kind, "error", err)
				}
			}
		}
	}
}

func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// Apply injects one event synchronously.
func (b *Bridge) Apply(ev input.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if b.inj == nil {
		return ErrUnavailable
	}

	switch ev.Kind {
	case input.KindPointerMove:
		b.moveTo(ev)
	case input.KindPointerButton:
		b.moveTo(ev)
		b.button(ev)
	case input.KindKey:
		b.key(ev)
	case input.KindScroll:
		b.inj.Scroll(int(ev.DeltaX), int(ev.DeltaY))
	}
	return nil
}

func (b *Bridge) moveTo(ev input.Event) {
	sw, sh := b.inj.ScreenSize()
	x, y := Scale(ev.X, ev.Y, ev.FrameWidth, ev.FrameHeight, sw, sh)
	b.inj.MoveMouse(x, y)
}

func (b *Bridge) button(ev input.Event) {
	if ev.Action == input.ActionDblClick {
		b.inj.DoubleClick(ButtonLeft)
		return
	}

	name, ok := ButtonName(ev.Button)
	if !ok {
		slog.Debug("ignoring unknown button", "button", ev.Button)
		return
	}
	b.inj.ToggleButton(name, ev.Action == input.ActionDown)
}

func (b *Bridge) key(ev input.Event) {
	mods := Modifiers(ev)

	if ev.Action == input.ActionKeyUp {
		for _, m := range mods {
			b.inj.ToggleKey(m, false)
		}
		return
	}

	for _, m := range mods {
		b.inj.ToggleKey(m, true)
	}

	if len([]rune(ev.Key)) == 1 {
		b.inj.TypeText(ev.Key)
		return
	}
	if name, ok := NamedKey(ev.Key); ok {
		b.inj.TapKey(name)
		return
	}
	slog.Debug("ignoring unmapped key", "key", ev.Key)
}
