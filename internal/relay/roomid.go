package relay

import "github.com/yasincandan35/remotedesk/internal/protocol"

// generateRoomID returns a random room id that is not in use.
func (h *Hub) generateRoomID() (string, error) {
	for {
		id, err := protocol.NewRoomID()
		if err != nil {
			return "", err
		}
		if !h.registry.Exists(id) {
			return id, nil
		}
	}
}
