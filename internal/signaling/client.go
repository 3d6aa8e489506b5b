// Package signaling is the peer side of the relay: a websocket client and a
// handler that turns relay messages into typed events.
package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yasincandan35/remotedesk/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	queueSize = 32
)

var ErrClosed = errors.New("signaling connection closed")

// Client is a websocket connection to the relay. Messages go out through
// Send and come back on Incoming.
type Client struct {
	serverURL string
	conn      *websocket.Conn

	in  chan *protocol.Message
	out chan *protocol.Message

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		in:        make(chan *protocol.Message, queueSize),
		out:       make(chan *protocol.Message, queueSize),
		done:      make(chan struct{}),
	}
}

// Connect dials the relay. serverURL must be ws:// or wss://.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", u.Host, err)
	}
	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	c.conn = conn

	go c.receive()
	go c.transmit()
	return nil
}

// receive owns reads. Incoming is closed when it returns.
func (c *Client) receive() {
	defer close(c.in)
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			slog.Debug("relay read ended", "error", err)
			return
		}
		msg, err := protocol.Parse(data)
		if err != nil {
			slog.Debug("dropping malformed relay message", "error", err)
			continue
		}

		select {
		case c.in <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) write(typ int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(typ, data)
}

// transmit owns writes: queued messages, keepalive pings and the close frame.
func (c *Client) transmit() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case msg := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = c.conn.WriteJSON(msg)
		case <-ping.C:
			err = c.write(websocket.PingMessage, nil)
		case <-c.done:
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
		if err != nil {
			slog.Debug("relay write failed", "error", err)
			return
		}
	}
}

// Send queues msg for the relay. It fails with ErrClosed once Close has been
// called.
func (c *Client) Send(msg *protocol.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.out <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *Client) SendTyped(typ string, payload any) error {
	msg, err := protocol.New(typ, payload)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// Incoming is closed when the connection drops.
func (c *Client) Incoming() <-chan *protocol.Message {
	return c.in
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
