package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yasincandan35/remotedesk/internal/bridge"
	"github.com/yasincandan35/remotedesk/internal/bridge/native"
	"github.com/yasincandan35/remotedesk/internal/capture"
	"github.com/yasincandan35/remotedesk/internal/config"
	"github.com/yasincandan35/remotedesk/internal/input"
	"github.com/yasincandan35/remotedesk/internal/protocol"
	"github.com/yasincandan35/remotedesk/internal/relay"
	"github.com/yasincandan35/remotedesk/internal/server"
	"github.com/yasincandan35/remotedesk/internal/session"
	"github.com/yasincandan35/remotedesk/internal/signaling"
	"github.com/yasincandan35/remotedesk/internal/ui"
)

var (
	flagRoom      string
	flagSource    string
	flagIVF       []string
	flagNoRelay   bool
	flagUseDaemon bool
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Share a screen or stream with viewers",
	Long: `Share a capture source in a room and accept remote input from viewers.

host starts a relay on the listen address unless one is already running there,
in which case it reuses it.

Examples:
  remotedesk host
  remotedesk host --ivf demo.ivf --room DEMO123
  remotedesk host --inputd --no-relay --server relay.example.com:4000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostRoom(cmd.Context())
	},
}

func hostRoom(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !flagNoRelay {
		if err := startEmbeddedRelay(ctx, cfg); err != nil {
			return err
		}
	}

	src, err := pickSource(ctx)
	if err != nil {
		return err
	}

	track, err := capture.NewTrack(src)
	if err != nil {
		return session.NewError("create track", err)
	}
	go func() {
		if err := capture.Pump(ctx, track, src); err != nil && !errors.Is(err, context.Canceled) {
			if errors.Is(err, capture.ErrNoEncoder) {
				slog.Warn("source has no encoder, viewers will see no frames", "source", src.ID)
				return
			}
			slog.Error("capture stopped", "source", src.ID, "error", err)
		}
	}()

	sink, err := openSink(ctx, cfg)
	if err != nil {
		return err
	}
	if !sink.Available() {
		ui.PrintWarning("Input injection is unavailable, remote control is view only")
	}
	fwd := bridge.NewForwarder(sink, 0)
	go fwd.Run(ctx)

	roomID := normalizeRoom(flagRoom)
	if roomID == "" {
		if roomID, err = protocol.NewRoomID(); err != nil {
			return session.NewError("generate room id", err)
		}
	}

	api, err := newAPI()
	if err != nil {
		return err
	}

	conn, err := NewConnectionContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Println(ui.RoomInfo{RoomID: roomID, Relay: cfg.Server, Source: src}.View())

	live := ui.NewLiveUI(ui.ModeHost, roomID, nil)

	sess := session.New(session.Options{
		Role:         session.RoleHost,
		RoomID:       roomID,
		Signaler:     conn.Client,
		NewTransport: session.PionFactory(api, rtcConfig(cfg), session.HostTracks(track)),
		OnStateChange: func(st session.State) {
			live.SetState(st.String())
		},
		OnEvent: func(ev signaling.Event) {
			switch e := ev.(type) {
			case signaling.RoomSize:
				live.SetRoomSize(e.Size)
			case signaling.ClientJoined:
				live.Note("viewer %s joined", shortID(e.ClientID))
			case signaling.PeerLeft:
				live.Note("peer %s left", shortID(e.UserID))
			}
		},
		OnInput: func(msg *protocol.Message) {
			ev, err := input.Decode(msg)
			if err != nil {
				slog.Debug("dropping input", "type", msg.Type, "error", err)
				return
			}
			// Runs on the session goroutine; injection happens on fwd's.
			if !fwd.Forward(ev) {
				slog.Debug("input backlog full, dropping", "kind", ev.Kind)
			}
		},
	})

	started := time.Now()
	live.Start()
	err = RunSession(ctx, sess, conn, live)

	fmt.Println(ui.SummaryView(ui.SessionSummary{
		RoomID:   roomID,
		Role:     session.RoleHost.String(),
		Duration: time.Since(started),
		Inputs:   int(fwd.Submitted()),
	}))
	return err
}

// startEmbeddedRelay binds the relay address. A relay already answering there
// is reused; any other bind failure is fatal.
func startEmbeddedRelay(ctx context.Context, cfg *config.Config) error {
	srv, err := server.Listen(cfg.ListenAddr, relay.NewHub(nil))
	if errors.Is(err, server.ErrAlreadyRunning) {
		slog.Info("reusing running relay", "addr", cfg.ListenAddr)
		return nil
	}
	if err != nil {
		return err
	}

	go func() {
		if err := srv.Serve(ctx); err != nil {
			slog.Error("embedded relay stopped", "error", err)
		}
	}()
	return nil
}

func pickSource(ctx context.Context) (capture.Source, error) {
	listers := capture.Listers{capture.DisplayLister{}}
	if len(flagIVF) > 0 {
		listers = append(listers, capture.FileLister{Paths: flagIVF})
	}

	sources, err := listers.List(ctx)
	if err != nil {
		return capture.Source{}, err
	}

	id := flagSource
	if id == "" && len(flagIVF) > 0 {
		// A stream given on the command line is what the user wants to share.
		for _, s := range sources {
			if s.Kind == capture.KindFile {
				id = s.ID
				break
			}
		}
	}
	return capture.Select(sources, id)
}

// openSink returns the input daemon when asked for, otherwise an in-process
// bridge over the native injector.
func openSink(ctx context.Context, cfg *config.Config) (bridge.Sink, error) {
	if flagUseDaemon {
		c, err := bridge.Dial(ctx, cfg.InputSocket)
		if err != nil {
			return nil, session.NewError("connect to input daemon", err)
		}
		go func() {
			<-ctx.Done()
			c.Close()
		}()
		return c, nil
	}

	inj, err := native.New()
	if err != nil {
		slog.Debug("native injector unavailable", "error", err)
	}
	b := bridge.New(inj, 0)
	go b.Run(ctx)
	return b, nil
}

// normalizeRoom is applied to room ids on both the host and the viewer side.
// Ids are otherwise opaque, so case is kept.
func normalizeRoom(id string) string {
	return strings.TrimSpace(id)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(hostCmd)

	hostCmd.Flags().StringVarP(&flagRoom, "room", "r", "", "Room id (generated when empty)")
	hostCmd.Flags().StringVarP(&flagSource, "source", "s", "", "Source id to share, see 'remotedesk sources'")
	hostCmd.Flags().StringSliceVar(&flagIVF, "ivf", nil, "IVF files to offer as sources")
	hostCmd.Flags().BoolVar(&flagNoRelay, "no-relay", false, "Do not start an embedded relay")
	hostCmd.Flags().BoolVar(&flagUseDaemon, "inputd", false, "Inject input through the input daemon")
}
