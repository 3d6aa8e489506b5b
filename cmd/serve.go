package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/yasincandan35/remotedesk/internal/logging"
	"github.com/yasincandan35/remotedesk/internal/relay"
	"github.com/yasincandan35/remotedesk/internal/server"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay",
	Long: `Run the websocket relay that pairs hosts with viewers.

Examples:
  remotedesk serve
  LISTEN_ADDR=127.0.0.1:9000 remotedesk serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(slog.LevelInfo)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		srv, err := server.Listen(cfg.ListenAddr, relay.NewHub(nil))
		if err != nil {
			return err
		}
		return srv.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.PersistentFlags().StringVar(&flagListen, "listen", "", "Relay bind address for serve and host (env LISTEN_ADDR)")
}
