package signaling

import (
	"fmt"
	"log/slog"

	"github.com/yasincandan35/remotedesk/internal/protocol"
)

// Handler routes incoming relay messages to a single ordered event channel.
// Ordering matters: an ICE candidate must never overtake the offer it belongs
// to.
type Handler struct {
	client *Client
	self   string
	events chan Event
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client: client,
		events: make(chan Event, 64),
	}
}

// Events returns the translated events. The channel is closed after
// Disconnected.
func (h *Handler) Events() <-chan Event {
	return h.events
}

// Start consumes the client's incoming messages until the connection drops
// or the client is closed.
func (h *Handler) Start() {
	defer close(h.events)

	for msg := range h.client.Incoming() {
		ev, err := Translate(msg, h.self)
		if err != nil {
			slog.Warn("dropping relay message", "type", msg.Type, "error", err)
			continue
		}
		if ev == nil {
			continue
		}
		if c, ok := ev.(Connected); ok {
			h.self = c.ID
		}
		if !h.emit(ev) {
			return
		}
	}

	h.emit(Disconnected{})
}

// emit reports false when the client was closed before ev was taken.
func (h *Handler) emit(ev Event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.client.done:
		return false
	}
}

// Translate converts one relay message into an Event. self is this peer's
// connection id; messages that originate from self are echoes and yield a
// nil event. Unknown types also yield nil.
func Translate(msg *protocol.Message, self string) (Event, error) {
	echo := func(id string) bool { return self != "" && id == self }

	switch msg.Type {
	case protocol.TypeConnected:
		var p protocol.ConnectedPayload
		if err := msg.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode connected: %w", err)
		}
		return Connected{ID: p.ID}, nil

	case protocol.TypeRoomCreated:
		var p protocol.RoomCreatedPayload
		if err := msg.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode room-created: %w", err)
		}
		return RoomCreated{RoomID: p.RoomID}, nil

	case protocol.TypeUserJoined:
		var p protocol.UserJoinedPayload
		if err := msg.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode user-joined: %w", err)
		}
		if echo(p.UserID) {
			return nil, nil
		}
		return UserJoined{UserID: p.UserID, RoomSize: p.RoomSize}, nil

	case protocol.TypeExistingUsers:
		var p protocol.ExistingUsersPayload
		if err := msg.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode existing-users: %w", err)
		}
		return ExistingUsers{Users: p.Users, RoomSize: p.RoomSize, HostID: p.HostID}, nil

	case protocol.TypeExistingClients:
		var p protocol.ExistingClientsPayload
		if err := msg.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode existing-clients: %w", err)
		}
		return ExistingClients{Clients: p.Clients}, nil

	case protocol.TypeClientJoined:
		var p protocol.ClientJoinedPayload
		if err := msg.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode client-joined: %w", err)
		}
		if echo(p.ClientID) {
			return nil, nil
		}
		return ClientJoined{ClientID: p.ClientID}, nil

	case protocol.TypeHostReady:
		var p protocol.HostReadyPayload
		if err := msg.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode host-ready: %w", err)
		}
		if echo(p.HostID) {
			return nil, nil
		}
		return HostReady{HostID: p.HostID}, nil

	case protocol.TypeRoomSize:
		var size int
		if err := msg.Decode(&size); err != nil {
			return nil, fmt.Errorf("decode room-size: %w", err)
		}
		return RoomSize{Size: size}, nil

	case protocol.TypePeerLeft:
		var p protocol.PeerLeftPayload
		if err := msg.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode peer-left: %w", err)
		}
		return PeerLeft{UserID: p.UserID}, nil

	case protocol.TypeOffer:
		var p protocol.OfferPayload
		if err := msg.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode offer: %w", err)
		}
		if echo(p.SenderID) {
			return nil, nil
		}
		return Offer{SenderID: p.SenderID, Description: p.Offer}, nil

	case protocol.TypeAnswer:
		var p protocol.AnswerPayload
		if err := msg.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode answer: %w", err)
		}
		if echo(p.SenderID) {
			return nil, nil
		}
		return Answer{SenderID: p.SenderID, Description: p.Answer}, nil

	case protocol.TypeICECandidate:
		var p protocol.CandidatePayload
		if err := msg.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode ice-candidate: %w", err)
		}
		if echo(p.SenderID) {
			return nil, nil
		}
		return Candidate{SenderID: p.SenderID, Candidate: p.Candidate}, nil
	}

	if _, ok := protocol.InputType(msg.Type); ok {
		return RemoteInput{Message: msg}, nil
	}
	return nil, nil
}
