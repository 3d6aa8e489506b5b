package relay

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yasincandan35/remotedesk/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// SDP offers with many candidates stay well under this.
	maxMessageSize = 64 * 1024

	// sendBuffer is the capacity of a peer's outbound queue. A peer that
	// falls this far behind is dropped.
	sendBuffer = 256
)

// Client is one peer connected to the relay.
type Client struct {
	// ID is assigned at upgrade and announced to the peer in "connected".
	ID string

	Hub  *Hub
	Conn *websocket.Conn

	// Send is owned by the hub: only the hub writes to it or closes it.
	Send chan *protocol.Message
}

func NewClient(hub *Hub, id string, conn *websocket.Conn) *Client {
	return &Client{
		ID:   id,
		Hub:  hub,
		Conn: conn,
		Send: make(chan *protocol.Message, sendBuffer),
	}
}

func (c *Client) armReadDeadline() error {
	return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
}

// ReadPump parses frames from the peer and hands them to the hub. It is the
// only reader of Conn and unregisters the peer when the connection ends.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.leave(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.armReadDeadline()
	c.Conn.SetPongHandler(func(string) error { return c.armReadDeadline() })

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("peer read failed", "client", c.ID, "error", err)
			}
			return
		}

		msg, err := protocol.Parse(data)
		if err != nil {
			slog.Warn("malformed message", "client", c.ID, "error", err)
			continue
		}

		if !c.Hub.deliver(&inbound{client: c, msg: msg}) {
			return
		}
	}
}

// WritePump is the only writer of Conn. It drains Send and keeps the
// connection alive with pings; a closed Send ends the connection.
func (c *Client) WritePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.Conn.Close()
	}()

	for {
		var err error

		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			err = c.Conn.WriteJSON(msg)

		case <-ping.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = c.Conn.WriteMessage(websocket.PingMessage, nil)
		}

		if err != nil {
			slog.Debug("peer write failed", "client", c.ID, "error", err)
			return
		}
	}
}
