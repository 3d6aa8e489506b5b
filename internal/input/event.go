// Package input models the control events a viewer sends to a host and
// converts them to and from relay messages.
package input

import (
	"errors"
	"fmt"

	"github.com/yasincandan35/remotedesk/internal/protocol"
)

type Kind string

const (
	KindPointerMove   Kind = "pointer-move"
	KindPointerButton Kind = "pointer-button"
	KindKey           Kind = "key"
	KindScroll        Kind = "scroll"
)

// Button and key actions, named as browsers name the DOM events.
const (
	ActionDown     = "mousedown"
	ActionUp       = "mouseup"
	ActionDblClick = "dblclick"
	ActionKeyDown  = "keydown"
	ActionKeyUp    = "keyup"
)

var (
	ErrNoFrame       = errors.New("pointer event has no frame dimensions")
	ErrUnknownKind   = errors.New("not an input message")
	ErrUnknownAction = errors.New("unknown input action")
)

// Event is one Remote Input Event. Pointer coordinates are relative to the
// viewer's frame of FrameWidth x FrameHeight; the host rescales them.
type Event struct {
	Kind   Kind   `msgpack:"kind"`
	RoomID string `msgpack:"roomId,omitempty"`

	X           float64 `msgpack:"x,omitempty"`
	Y           float64 `msgpack:"y,omitempty"`
	FrameWidth  float64 `msgpack:"frameWidth,omitempty"`
	FrameHeight float64 `msgpack:"frameHeight,omitempty"`
	Button      int     `msgpack:"button,omitempty"`

	// Action is mousedown, mouseup or dblclick for buttons and keydown or
	// keyup for keys.
	Action string `msgpack:"action,omitempty"`

	Key     string `msgpack:"key,omitempty"`
	Code    string `msgpack:"code,omitempty"`
	KeyCode int    `msgpack:"keyCode,omitempty"`
	Ctrl    bool   `msgpack:"ctrl,omitempty"`
	Shift   bool   `msgpack:"shift,omitempty"`
	Alt     bool   `msgpack:"alt,omitempty"`
	Meta    bool   `msgpack:"meta,omitempty"`

	DeltaX float64 `msgpack:"deltaX,omitempty"`
	DeltaY float64 `msgpack:"deltaY,omitempty"`
	DeltaZ float64 `msgpack:"deltaZ,omitempty"`
}

func Move(x, y, frameWidth, frameHeight float64) Event {
	return Event{Kind: KindPointerMove, X: x, Y: y, FrameWidth: frameWidth, FrameHeight: frameHeight}
}

func Click(button int, action string, x, y, frameWidth, frameHeight float64) Event {
	return Event{
		Kind:        KindPointerButton,
		Button:      button,
		Action:      action,
		X:           x,
		Y:           y,
		FrameWidth:  frameWidth,
		FrameHeight: frameHeight,
	}
}

// Key builds a key event. key is the DOM key name ("a", "Enter", "ArrowUp").
func Key(key, action string) Event {
	return Event{Kind: KindKey, Key: key, Action: action}
}

func Scroll(dx, dy, dz float64) Event {
	return Event{Kind: KindScroll, DeltaX: dx, DeltaY: dy, DeltaZ: dz}
}

// Validate checks the fields the kind depends on.
func (e Event) Validate() error {
	switch e.Kind {
	case KindPointerMove:
	case KindPointerButton:
		switch e.Action {
		case ActionDown, ActionUp, ActionDblClick:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownAction, e.Action)
		}
	case KindKey:
		if e.Action != ActionKeyDown && e.Action != ActionKeyUp {
			return fmt.Errorf("%w: %q", ErrUnknownAction, e.Action)
		}
		return nil
	case KindScroll:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}

	if e.FrameWidth <= 0 || e.FrameHeight <= 0 {
		return ErrNoFrame
	}
	return nil
}

// WireType is the relay message type a viewer sends for this kind.
func (k Kind) WireType() string {
	switch k {
	case KindPointerMove:
		return protocol.TypeMouseMove
	case KindPointerButton:
		return protocol.TypeMouseClick
	case KindKey:
		return protocol.TypeKeyPress
	case KindScroll:
		return protocol.TypeScroll
	}
	return ""
}

func kindOf(wireType string) (Kind, bool) {
	switch wireType {
	case protocol.TypeMouseMove:
		return KindPointerMove, true
	case protocol.TypeMouseClick:
		return KindPointerButton, true
	case protocol.TypeKeyPress:
		return KindKey, true
	case protocol.TypeScroll:
		return KindScroll, true
	}
	return "", false
}
