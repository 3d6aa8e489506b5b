package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/yasincandan35/remotedesk/internal/config"
	"github.com/yasincandan35/remotedesk/internal/logging"
	"github.com/yasincandan35/remotedesk/internal/session"
	"github.com/yasincandan35/remotedesk/internal/signaling"
	"github.com/yasincandan35/remotedesk/internal/ui"
)

// ConnectionContext is a live relay connection and its event handler.
type ConnectionContext struct {
	Client  *signaling.Client
	Handler *signaling.Handler
	Config  *config.Config
}

func NewConnectionContext(ctx context.Context, cfg *config.Config) (*ConnectionContext, error) {
	stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")
	defer stopSpinner()

	client := signaling.NewClient(cfg.WebSocketURL)
	if err := client.Connect(ctx); err != nil {
		return nil, session.NewError("connect to relay", err)
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	return &ConnectionContext{Client: client, Handler: handler, Config: cfg}, nil
}

func (c *ConnectionContext) Close() {
	c.Client.Close()
}

// newAPI builds the pion API with pion's logs routed into slog.
func newAPI() (*webrtc.API, error) {
	return session.NewAPI(session.APIOptions{
		LoggerFactory: logging.NewPionFactory(slog.Default()),
	})
}

func rtcConfig(cfg *config.Config) webrtc.Configuration {
	return webrtc.Configuration{ICEServers: session.ICEServers(cfg)}
}

// RunSession drives sess until ctx is done, the user quits the live view, or
// the relay connection drops.
func RunSession(ctx context.Context, sess *session.Session, conn *ConnectionContext, live *ui.LiveUI) error {
	done := make(chan error, 1)
	go func() {
		done <- sess.Run(ctx, conn.Handler.Events())
	}()

	var err error
	select {
	case <-ctx.Done():
	case <-live.Quit():
	case err = <-done:
	}

	sess.Close()
	live.Stop()

	if errors.Is(err, session.ErrSignalingClosed) {
		return session.WrapError("run session", err, "the relay went away")
	}
	return err
}
