package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/yasincandan35/remotedesk/internal/capture"
	"github.com/yasincandan35/remotedesk/internal/input"
)

// Operations accepted across the privileged boundary. Nothing else is
// served.
const (
	OpMouseMove   = "mouse-move"
	OpMouseClick  = "mouse-click"
	OpKeyPress    = "key-press"
	OpScroll      = "scroll"
	OpListSources = "list-sources"
)

var allowed = map[string]input.Kind{
	OpMouseMove:   input.KindPointerMove,
	OpMouseClick:  input.KindPointerButton,
	OpKeyPress:    input.KindKey,
	OpScroll:      input.KindScroll,
	OpListSources: "",
}

var ErrNotAllowed = errors.New("operation not allowed")

const requestTimeout = 5 * time.Second

// Request is one frame sent to the input daemon.
type Request struct {
	Op      string             `msgpack:"op"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

type Reply struct {
	OK        bool             `msgpack:"ok"`
	Error     string           `msgpack:"error,omitempty"`
	Available bool             `msgpack:"available"`
	Sources   []capture.Source `msgpack:"sources,omitempty"`
}

// NewRequest builds a request with payload encoded as msgpack.
func NewRequest(op string, payload any) (Request, error) {
	req := Request{Op: op}
	if payload == nil {
		return req, nil
	}
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Request{}, err
	}
	req.Payload = b
	return req, nil
}

// OpFor returns the boundary operation that carries events of kind k.
func OpFor(k input.Kind) (string, bool) {
	for op, kind := range allowed {
		if kind != "" && kind == k {
			return op, true
		}
	}
	return "", false
}

// Server exposes a Sink and a capture.Lister on a unix socket.
type Server struct {
	sink   Sink
	lister capture.Lister

	ln net.Listener
	wg sync.WaitGroup
}

// Listen binds path with owner-only permissions, replacing a stale socket.
func Listen(path string, sink Sink, lister capture.Lister) (*Server, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("restrict socket: %w", err)
	}

	return &Server{sink: sink, lister: lister, ln: ln}, nil
}

func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve accepts connections until ctx is done. Every connection gets its own
// goroutine; all of them feed the same sink.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) Close() error {
	return s.ln.Close()
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	dec := msgpack.NewDecoder(conn)
	enc := msgpack.NewEncoder(conn)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				slog.Debug("boundary connection closed", "error", err)
			}
			return
		}

		reply := s.Handle(ctx, req)
		if err := enc.Encode(&reply); err != nil {
			slog.Debug("boundary reply failed", "error", err)
			return
		}
	}
}

// Handle answers one request.
func (s *Server) Handle(ctx context.Context, req Request) Reply {
	reply := Reply{Available: s.sink.Available()}

	kind, ok := allowed[req.Op]
	if !ok {
		slog.Warn("refusing boundary operation", "op", req.Op)
		reply.Error = fmt.Sprintf("%s: %q", ErrNotAllowed, req.Op)
		return reply
	}

	if req.Op == OpListSources {
		sources, err := s.lister.List(ctx)
		if err != nil {
			reply.Error = err.Error()
			return reply
		}
		reply.OK = true
		reply.Sources = sources
		return reply
	}

	var ev input.Event
	if err := msgpack.Unmarshal(req.Payload, &ev); err != nil {
		reply.Error = fmt.Sprintf("decode %s: %v", req.Op, err)
		return reply
	}
	if ev.Kind != kind {
		reply.Error = fmt.Sprintf("%s carries %q events, got %q", req.Op, kind, ev.Kind)
		return reply
	}
	if err := ev.Validate(); err != nil {
		reply.Error = err.Error()
		return reply
	}

	if err := s.sink.Submit(ctx, ev); err != nil {
		reply.Error = err.Error()
		return reply
	}
	reply.OK = true
	return reply
}

// Client talks to an input daemon. It implements Sink so a host can inject
// through the boundary instead of in process.
//
// A request that fails on the wire leaves its reply unread, so the
// connection is dropped and the next request dials again.
type Client struct {
	path string

	mu        sync.Mutex
	conn      net.Conn
	enc       *msgpack.Encoder
	dec       *msgpack.Decoder
	available bool
}

// Dial connects to the daemon at path and asks for its sources to learn
// whether injection is available there.
func Dial(ctx context.Context, path string) (*Client, error) {
	c := &Client{path: path}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	if _, err := c.ListSources(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("probe input daemon: %w", err)
	}
	return c, nil
}

// connect must be called with mu held or before c is shared.
func (c *Client) connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.path)
	if err != nil {
		return err
	}
	c.conn = conn
	c.enc = msgpack.NewEncoder(conn)
	c.dec = msgpack.NewDecoder(conn)
	return nil
}

func (c *Client) reset() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn, c.enc, c.dec = nil, nil, nil
}

func (c *Client) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

func (c *Client) Submit(ctx context.Context, ev input.Event) error {
	op, ok := OpFor(ev.Kind)
	if !ok {
		return fmt.Errorf("%w: kind %q", ErrNotAllowed, ev.Kind)
	}
	req, err := NewRequest(op, ev)
	if err != nil {
		return err
	}
	_, err = c.Do(ctx, req)
	return err
}

func (c *Client) ListSources(ctx context.Context) ([]capture.Source, error) {
	reply, err := c.Do(ctx, Request{Op: OpListSources})
	if err != nil {
		return nil, err
	}
	return reply.Sources, nil
}

// Do sends req and waits for its reply. A reply with OK unset is returned
// as an error.
func (c *Client) Do(ctx context.Context, req Request) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return Reply{}, fmt.Errorf("redial input daemon: %w", err)
		}
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(requestTimeout)
	}
	c.conn.SetDeadline(deadline)

	var reply Reply
	err := c.enc.Encode(&req)
	if err == nil {
		err = c.dec.Decode(&reply)
	}
	if err != nil {
		c.reset()
		return Reply{}, err
	}

	c.available = reply.Available
	if !reply.OK {
		return reply, errors.New(reply.Error)
	}
	return reply, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	return nil
}
