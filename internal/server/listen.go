package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/yasincandan35/remotedesk/internal/relay"
)

// ErrAlreadyRunning is returned by Listen when the address is taken by a
// relay that answers the health probe. Callers reuse that relay.
var ErrAlreadyRunning = errors.New("relay already running")

const (
	probeTimeout    = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server is a bound relay that has not started serving yet.
type Server struct {
	hub *relay.Hub
	ln  net.Listener
	srv *http.Server
}

// Listen binds addr for hub. When the port is in use by a live relay it
// returns ErrAlreadyRunning; any other bind failure is returned as is.
func Listen(addr string, hub *relay.Hub) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) && Probe(addr) {
			return nil, fmt.Errorf("%s: %w", addr, ErrAlreadyRunning)
		}
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	return &Server{
		hub: hub,
		ln:  ln,
		srv: &http.Server{
			Handler:           Routes(hub),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve runs the hub and the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(s.ln)
	}()

	slog.Info("relay listening", "addr", s.Addr())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown relay: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Probe reports whether a relay answers the health probe on addr. Wildcard
// hosts are probed on loopback.
func Probe(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	client := &http.Client{Timeout: probeTimeout}
	resp, err := client.Get("http://" + net.JoinHostPort(host, port) + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return false
	}
	return strings.Contains(string(body), HealthBody)
}
