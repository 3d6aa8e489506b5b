package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yasincandan35/remotedesk/internal/bridge"
	"github.com/yasincandan35/remotedesk/internal/capture"
	"github.com/yasincandan35/remotedesk/internal/session"
	"github.com/yasincandan35/remotedesk/internal/ui"
)

var flagJSON bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List shareable screens and streams",
	Long: `List the capture sources host can share. With --inputd the list comes
from the input daemon, which sees the desktop of the logged in user.

Examples:
  remotedesk sources
  remotedesk sources --ivf demo.ivf --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var (
			sources []capture.Source
			err     error
		)
		if flagUseDaemon {
			cfg, cerr := loadConfig()
			if cerr != nil {
				return cerr
			}
			c, derr := bridge.Dial(ctx, cfg.InputSocket)
			if derr != nil {
				return session.NewError("connect to input daemon", derr)
			}
			defer c.Close()
			sources, err = c.ListSources(ctx)
		} else {
			listers := capture.Listers{capture.DisplayLister{}, capture.FileLister{Paths: flagIVF}}
			sources, err = listers.List(ctx)
		}
		if err != nil {
			return err
		}

		if flagJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sources)
		}
		fmt.Println(ui.SourcesTable(sources))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)

	sourcesCmd.Flags().StringSliceVar(&flagIVF, "ivf", nil, "IVF files to include")
	sourcesCmd.Flags().BoolVar(&flagUseDaemon, "inputd", false, "Ask the input daemon")
	sourcesCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of a table")
}
