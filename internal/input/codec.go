package input

import (
	"fmt"

	"github.com/yasincandan35/remotedesk/internal/protocol"
)

// Wire payloads keep the field names browser viewers already send.

type pointerWire struct {
	RoomID      string  `json:"roomId"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VideoWidth  float64 `json:"videoWidth"`
	VideoHeight float64 `json:"videoHeight"`
	Button      *int    `json:"button,omitempty"`
	Type        string  `json:"type,omitempty"`
}

type keyWire struct {
	RoomID   string `json:"roomId"`
	Key      string `json:"key"`
	Code     string `json:"code,omitempty"`
	KeyCode  int    `json:"keyCode,omitempty"`
	Type     string `json:"type"`
	CtrlKey  bool   `json:"ctrlKey"`
	ShiftKey bool   `json:"shiftKey"`
	AltKey   bool   `json:"altKey"`
	MetaKey  bool   `json:"metaKey"`
}

type scrollWire struct {
	RoomID string  `json:"roomId"`
	DeltaX float64 `json:"deltaX"`
	DeltaY float64 `json:"deltaY"`
	DeltaZ float64 `json:"deltaZ"`
}

// Encode turns ev into the message a viewer sends to the relay.
func Encode(ev Event) (*protocol.Message, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return protocol.New(ev.Kind.WireType(), wirePayload(ev))
}

func wirePayload(ev Event) any {
	switch ev.Kind {
	case KindPointerMove, KindPointerButton:
		w := pointerWire{
			RoomID:      ev.RoomID,
			X:           ev.X,
			Y:           ev.Y,
			VideoWidth:  ev.FrameWidth,
			VideoHeight: ev.FrameHeight,
		}
		if ev.Kind == KindPointerButton {
			b := ev.Button
			w.Button = &b
			w.Type = ev.Action
		}
		return w
	case KindKey:
		return keyWire{
			RoomID:   ev.RoomID,
			Key:      ev.Key,
			Code:     ev.Code,
			KeyCode:  ev.KeyCode,
			Type:     ev.Action,
			CtrlKey:  ev.Ctrl,
			ShiftKey: ev.Shift,
			AltKey:   ev.Alt,
			MetaKey:  ev.Meta,
		}
	default:
		return scrollWire{RoomID: ev.RoomID, DeltaX: ev.DeltaX, DeltaY: ev.DeltaY, DeltaZ: ev.DeltaZ}
	}
}

// Decode parses an input message as sent by a viewer or as delivered to the
// host under its remote-* name.
func Decode(msg *protocol.Message) (Event, error) {
	t := msg.Type
	if in, ok := protocol.InputType(t); ok {
		t = in
	}
	kind, ok := kindOf(t)
	if !ok {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, msg.Type)
	}

	ev := Event{Kind: kind}
	switch kind {
	case KindPointerMove, KindPointerButton:
		var w pointerWire
		if err := msg.Decode(&w); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		ev.RoomID = w.RoomID
		ev.X, ev.Y = w.X, w.Y
		ev.FrameWidth, ev.FrameHeight = w.VideoWidth, w.VideoHeight
		if kind == KindPointerButton {
			if w.Button != nil {
				ev.Button = *w.Button
			}
			ev.Action = w.Type
		}
	case KindKey:
		var w keyWire
		if err := msg.Decode(&w); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		ev.RoomID = w.RoomID
		ev.Key, ev.Code, ev.KeyCode = w.Key, w.Code, w.KeyCode
		ev.Action = w.Type
		ev.Ctrl, ev.Shift, ev.Alt, ev.Meta = w.CtrlKey, w.ShiftKey, w.AltKey, w.MetaKey
	case KindScroll:
		var w scrollWire
		if err := msg.Decode(&w); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		ev.RoomID = w.RoomID
		ev.DeltaX, ev.DeltaY, ev.DeltaZ = w.DeltaX, w.DeltaY, w.DeltaZ
	}

	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}
