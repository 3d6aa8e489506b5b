//go:build !cgo || noinput

package native

import "github.com/yasincandan35/remotedesk/internal/bridge"

// New always fails in builds without the native injector.
func New() (bridge.Injector, error) {
	return nil, bridge.ErrUnavailable
}
