package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/yasincandan35/remotedesk/internal/bridge"
	"github.com/yasincandan35/remotedesk/internal/bridge/native"
	"github.com/yasincandan35/remotedesk/internal/capture"
	"github.com/yasincandan35/remotedesk/internal/logging"
)

var inputdCmd = &cobra.Command{
	Use:   "inputd",
	Short: "Run the input injection daemon",
	Long: `Run the process that owns the native mouse and keyboard. It listens on a
unix socket readable only by its owner and accepts pointer, key, scroll and
source listing requests; everything else is refused.

Examples:
  remotedesk inputd
  remotedesk inputd --input-socket /run/user/1000/remotedesk.sock`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(slog.LevelInfo)
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		inj, err := native.New()
		if err != nil {
			slog.Warn("input injection unavailable, requests will be accepted and dropped", "error", err)
		}
		b := bridge.New(inj, 0)
		go b.Run(ctx)
		defer b.Close()

		srv, err := bridge.Listen(cfg.InputSocket, b, capture.DisplayLister{})
		if err != nil {
			return err
		}
		slog.Info("input daemon listening", "socket", srv.Addr(), "available", b.Available())
		return srv.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(inputdCmd)
}
