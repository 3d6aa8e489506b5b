package main

import (
	"log/slog"

	"github.com/yasincandan35/remotedesk/cmd"
	"github.com/yasincandan35/remotedesk/internal/logging"
)

func main() {
	// Interactive commands stay quiet unless LOG_LEVEL says otherwise; serve
	// and inputd raise this to info.
	logging.Init(slog.LevelError)
	cmd.Execute()
}
