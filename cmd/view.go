package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"

	"github.com/yasincandan35/remotedesk/internal/capture"
	"github.com/yasincandan35/remotedesk/internal/input"
	"github.com/yasincandan35/remotedesk/internal/session"
	"github.com/yasincandan35/remotedesk/internal/signaling"
	"github.com/yasincandan35/remotedesk/internal/ui"
)

var (
	flagRecord  string
	flagControl bool
)

var viewCmd = &cobra.Command{
	Use:     "view <room>",
	Aliases: []string{"join"},
	Short:   "Join a room and watch the shared screen",
	Long: `Join a room as a viewer. The stream can be recorded to an IVF file, and
with --control the terminal becomes a remote keyboard and mouse (toggle with
ctrl+t).

Examples:
  remotedesk view ABC1234
  remotedesk view ABC1234 --record session.ivf
  remotedesk view ABC1234 --control`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return viewRoom(cmd.Context(), normalizeRoom(args[0]))
	},
}

func viewRoom(ctx context.Context, roomID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	api, err := newAPI()
	if err != nil {
		return err
	}

	var rec *capture.Recorder
	if flagRecord != "" {
		if rec, err = capture.NewRecorder(flagRecord); err != nil {
			return session.NewError("open recording", err)
		}
		defer rec.Close()
	}

	conn, err := NewConnectionContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	var (
		sess *session.Session
		ctrl *input.Controller
	)
	if flagControl {
		ctrl = input.NewController(conn.Client, roomID, func() bool {
			return sess != nil && sess.State() == session.StateConnected
		})
	}

	live := ui.NewLiveUI(ui.ModeView, roomID, ctrl)
	var recording atomic.Bool
	recDone := make(chan struct{})

	sess = session.New(session.Options{
		Role:         session.RoleClient,
		RoomID:       roomID,
		Signaler:     conn.Client,
		NewTransport: session.PionFactory(api, rtcConfig(cfg), session.ReceiveVideo),
		OnStateChange: func(st session.State) {
			live.SetState(st.String())
		},
		OnEvent: func(ev signaling.Event) {
			switch e := ev.(type) {
			case signaling.RoomSize:
				live.SetRoomSize(e.Size)
			case signaling.HostReady:
				live.Note("host %s is ready", shortID(e.HostID))
			}
		},
		OnTrack: func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
			slog.Debug("remote track", "kind", track.Kind(), "codec", track.Codec().MimeType)
			if rec == nil || track.Kind() != webrtc.RTPCodecTypeVideo || !recording.CompareAndSwap(false, true) {
				go drain(track)
				return
			}
			live.Note("%s recording to %s", ui.IconRecord, flagRecord)
			go func() {
				defer close(recDone)
				if err := rec.Record(track); err != nil && !errors.Is(err, io.EOF) {
					slog.Debug("recording stopped", "error", err)
				}
			}()
		},
	})

	started := time.Now()
	live.Start()
	err = RunSession(ctx, sess, conn, live)

	summary := ui.SessionSummary{
		RoomID:   roomID,
		Role:     session.RoleClient.String(),
		Duration: time.Since(started),
	}
	if recording.Load() {
		select {
		case <-recDone:
		case <-time.After(2 * time.Second):
			slog.Warn("recording did not finish in time")
		}
	}
	if rec != nil {
		summary.Recorded = fmt.Sprintf("%s (%d packets)", flagRecord, rec.Packets())
	}
	fmt.Println(ui.SummaryView(summary))
	return err
}

// drain discards a track's packets so its buffers never fill.
func drain(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}

func init() {
	rootCmd.AddCommand(viewCmd)

	viewCmd.Flags().StringVar(&flagRecord, "record", "", "Write the received video to an IVF file")
	viewCmd.Flags().BoolVar(&flagControl, "control", false, "Send keyboard and mouse to the host (toggle with ctrl+t)")
}
