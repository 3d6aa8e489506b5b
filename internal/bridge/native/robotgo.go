//go:build cgo && !noinput

// Package native provides the desktop input injector.
package native

import (
	"os"
	"runtime"

	"github.com/go-vgo/robotgo"

	"github.com/yasincandan35/remotedesk/internal/bridge"
)

type injector struct{}

// New returns the robotgo injector, or bridge.ErrUnavailable when there is
// no display to inject into.
func New() (bridge.Injector, error) {
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" {
		return nil, bridge.ErrUnavailable
	}
	if w, h := robotgo.GetScreenSize(); w <= 0 || h <= 0 {
		return nil, bridge.ErrUnavailable
	}
	return injector{}, nil
}

func (injector) ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

func (injector) MoveMouse(x, y int) {
	robotgo.Move(x, y)
}

func (injector) ToggleButton(button string, down bool) {
	if down {
		robotgo.Toggle(button)
		return
	}
	robotgo.Toggle(button, "up")
}

func (injector) DoubleClick(button string) {
	robotgo.Click(button, true)
}

func (injector) ToggleKey(key string, down bool) {
	state := "up"
	if down {
		state = "down"
	}
	robotgo.KeyToggle(key, state)
}

func (injector) TapKey(key string) {
	robotgo.KeyTap(key)
}

func (injector) TypeText(text string) {
	robotgo.TypeStr(text)
}

func (injector) Scroll(dx, dy int) {
	robotgo.Scroll(dx, dy)
}
