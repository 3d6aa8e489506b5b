package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yasincandan35/remotedesk/internal/config"
	"github.com/yasincandan35/remotedesk/internal/session"
	"github.com/yasincandan35/remotedesk/internal/ui"
	"github.com/yasincandan35/remotedesk/internal/version"
)

// Flags shared by every command that talks to a relay.
var (
	flagServer   string
	flagSecure   bool
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagSocket   string
)

var rootCmd = &cobra.Command{
	Use:   "remotedesk",
	Short: "Share a screen and take remote control of it over WebRTC",
	Long: `remotedesk shares a screen or a recorded stream with viewers over WebRTC.
A small websocket relay pairs a host with its viewers; media and control then
flow between the peers, and viewers may drive the host's mouse and keyboard
once the host allows input injection.`,
	Version: version.Version,
}

// Execute runs the root command. It is called once by main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		Server:      flagServer,
		Secure:      flagSecure,
		STUNServer:  flagSTUN,
		TURNServer:  flagTURN,
		TURNUser:    flagTURNUser,
		TURNPass:    flagTURNPass,
		InputSocket: flagSocket,
		ListenAddr:  flagListen,
	})
	if err != nil {
		return nil, session.NewError("load config", err)
	}
	return cfg, nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagServer, "server", "", "Relay host:port (env SERVER)")
	pf.BoolVar(&flagSecure, "secure", false, "Use wss:// and https:// for the relay (env SECURE)")
	pf.StringVar(&flagSTUN, "stun", "", "Comma separated STUN servers (env STUN_SERVER)")
	pf.StringVar(&flagTURN, "turn", "", "TURN server (env TURN_SERVER)")
	pf.StringVar(&flagTURNUser, "turn-user", "", "TURN username (env TURN_USERNAME)")
	pf.StringVar(&flagTURNPass, "turn-pass", "", "TURN password (env TURN_PASSWORD)")
	pf.StringVar(&flagSocket, "input-socket", "", "Socket of the input daemon (env INPUT_SOCKET)")
}
