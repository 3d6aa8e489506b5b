package input

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/yasincandan35/remotedesk/internal/protocol"
)

var (
	ErrNotControlling = errors.New("remote control is off")
	ErrNotConnected   = errors.New("no connected session")
)

// Sender delivers messages to the relay. *signaling.Client satisfies it.
type Sender interface {
	Send(msg *protocol.Message) error
}

// Controller is the viewer side of the input channel. Nothing is sent until
// the user turns control on and the session is connected.
type Controller struct {
	sender    Sender
	connected func() bool

	mu          sync.Mutex
	roomID      string
	controlling bool
}

// NewController returns a controller with control off. connected reports
// whether the media session is up; nil means always.
func NewController(sender Sender, roomID string, connected func() bool) *Controller {
	if connected == nil {
		connected = func() bool { return true }
	}
	return &Controller{sender: sender, roomID: roomID, connected: connected}
}

// Toggle flips the controlling flag and returns the new value.
func (c *Controller) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controlling = !c.controlling
	slog.Debug("remote control toggled", "controlling", c.controlling)
	return c.controlling
}

func (c *Controller) SetControlling(on bool) {
	c.mu.Lock()
	c.controlling = on
	c.mu.Unlock()
}

func (c *Controller) Controlling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controlling
}

// SetRoom changes the room events are tagged with.
func (c *Controller) SetRoom(roomID string) {
	c.mu.Lock()
	c.roomID = roomID
	c.mu.Unlock()
}

// Send tags ev with the room id and forwards it to the relay.
func (c *Controller) Send(ev Event) error {
	c.mu.Lock()
	controlling, roomID := c.controlling, c.roomID
	c.mu.Unlock()

	if !controlling {
		return ErrNotControlling
	}
	if !c.connected() {
		return ErrNotConnected
	}

	ev.RoomID = roomID
	msg, err := Encode(ev)
	if err != nil {
		return err
	}
	return c.sender.Send(msg)
}
