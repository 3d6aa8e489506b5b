package version

// Version is the current version of remotedesk.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/yasincandan35/remotedesk/internal/version.Version=v1.0.0'"
var Version = "dev"
