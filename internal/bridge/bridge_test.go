package bridge

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/yasincandan35/remotedesk/internal/input"
)

type fakeInjector struct {
	mu    sync.Mutex
	w, h  int
	calls []string
}

func (f *fakeInjector) record(format string, args ...any) {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

func (f *fakeInjector) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeInjector) ScreenSize() (int, int)                { return f.w, f.h }
func (f *fakeInjector) MoveMouse(x, y int)                    { f.record("move %d,%d", x, y) }
func (f *fakeInjector) ToggleButton(button string, down bool) { f.record("button %s %v", button, down) }
func (f *fakeInjector) DoubleClick(button string)             { f.record("double %s", button) }
func (f *fakeInjector) ToggleKey(key string, down bool)       { f.record("key %s %v", key, down) }
func (f *fakeInjector) TapKey(key string)                     { f.record("tap %s", key) }
func (f *fakeInjector) TypeText(text string)                  { f.record("type %s", text) }
func (f *fakeInjector) Scroll(dx, dy int)                     { f.record("scroll %d,%d", dx, dy) }

func TestScale(t *testing.T) {
	tests := []struct {
		x, y, fw, fh float64
		sw, sh       int
		wantX, wantY int
	}{
		{100, 50, 200, 100, 1920, 1080, 960, 540},
		{0, 0, 200, 100, 1920, 1080, 0, 0},
		{200, 100, 200, 100, 1920, 1080, 1920, 1080},
		{1, 1, 3, 3, 100, 100, 33, 33},
		{2, 2, 3, 3, 100, 100, 67, 67},
	}
	for _, tc := range tests {
		x, y := Scale(tc.x, tc.y, tc.fw, tc.fh, tc.sw, tc.sh)
		if x != tc.wantX || y != tc.wantY {
			t.Errorf("Scale(%v,%v,%v,%v,%d,%d) = (%d,%d), expected (%d,%d)",
				tc.x, tc.y, tc.fw, tc.fh, tc.sw, tc.sh, x, y, tc.wantX, tc.wantY)
		}
	}
}

func TestApply_Pointer(t *testing.T) {
	inj := &fakeInjector{w: 1920, h: 1080}
	b := New(inj, 0)

	events := []input.Event{
		input.Move(100, 50, 200, 100),
		input.Click(2, input.ActionDown, 0, 0, 200, 100),
		input.Click(2, input.ActionUp, 0, 0, 200, 100),
		input.Click(7, input.ActionDown, 0, 0, 200, 100),
		input.Click(1, input.ActionDblClick, 0, 0, 200, 100),
		input.Scroll(1.9, -120, 5),
	}
	for _, ev := range events {
		if err := b.Apply(ev); err != nil {
			t.Fatalf("apply %+v: %v", ev, err)
		}
	}

	want := []string{
		"move 960,540",
		"move 0,0", "button right true",
		"move 0,0", "button right false",
		"move 0,0",
		"move 0,0", "double left",
		"scroll 1,-120",
	}
	if got := inj.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestApply_Keys(t *testing.T) {
	inj := &fakeInjector{w: 100, h: 100}
	b := New(inj, 0)

	down := input.Key("a", input.ActionKeyDown)
	down.Ctrl, down.Meta = true, true
	up := input.Key("a", input.ActionKeyUp)
	up.Ctrl, up.Meta = true, true

	for _, ev := range []input.Event{
		down,
		up,
		input.Key("Enter", input.ActionKeyDown),
		input.Key("ArrowLeft", input.ActionKeyDown),
		input.Key("F13", input.ActionKeyDown),
	} {
		if err := b.Apply(ev); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	want := []string{
		"key control true", "key command true", "type a",
		"key control false", "key command false",
		"tap enter",
		"tap left",
	}
	if got := inj.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestUnavailable_NoOps(t *testing.T) {
	b := New(nil, 0)
	if b.Available() {
		t.Fatal("bridge without injector reports available")
	}
	if err := b.Apply(input.Move(1, 1, 2, 2)); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	for i := 0; i < 10; i++ {
		if err := b.Submit(ctx, input.Scroll(0, 1, 0)); err != nil {
			t.Fatalf("submit on unavailable bridge: %v", err)
		}
	}
}

func TestApply_RejectsFramelessPointer(t *testing.T) {
	inj := &fakeInjector{w: 100, h: 100}
	b := New(inj, 0)
	if err := b.Apply(input.Move(1, 1, 0, 0)); !errors.Is(err, input.ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
	if len(inj.Calls()) != 0 {
		t.Fatalf("injector touched: %v", inj.Calls())
	}
}

func TestBridge_PreservesOrder(t *testing.T) {
	inj := &fakeInjector{w: 1000, h: 1000}
	b := New(inj, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	const n = 200
	for i := 0; i < n; i++ {
		if err := b.Submit(ctx, input.Move(float64(i), 0, 1000, 1000)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(inj.Calls()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d events applied", len(inj.Calls()), n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	for i, call := range inj.Calls() {
		if want := fmt.Sprintf("move %d,0", i); call != want {
			t.Fatalf("event %d: expected %q, got %q", i, want, call)
		}
	}
}

func TestSubmit_BlocksUntilContextDone(t *testing.T) {
	b := New(nil, 1)
	ctx := context.Background()
	if err := b.Submit(ctx, input.Scroll(0, 1, 0)); err != nil {
		t.Fatal(err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := b.Submit(short, input.Scroll(0, 1, 0)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	b.Close()
	if err := b.Submit(ctx, input.Scroll(0, 1, 0)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
