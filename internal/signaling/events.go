package signaling

import (
	"github.com/pion/webrtc/v4"

	"github.com/yasincandan35/remotedesk/internal/protocol"
)

// Event is one relay message translated for the session loop.
type Event interface {
	isEvent()
}

// Connected carries the id the relay assigned to this peer.
type Connected struct{ ID string }

type RoomCreated struct{ RoomID string }

type UserJoined struct {
	UserID   string
	RoomSize int
}

// ExistingUsers is received after joining a room that already had members.
type ExistingUsers struct {
	Users    []string
	RoomSize int
	HostID   string
}

// ExistingClients is received by a host that declared itself while clients
// were already waiting.
type ExistingClients struct{ Clients []string }

type ClientJoined struct{ ClientID string }

type HostReady struct{ HostID string }

type RoomSize struct{ Size int }

type PeerLeft struct{ UserID string }

type Offer struct {
	SenderID    string
	Description webrtc.SessionDescription
}

type Answer struct {
	SenderID    string
	Description webrtc.SessionDescription
}

type Candidate struct {
	SenderID  string
	Candidate webrtc.ICECandidateInit
}

// RemoteInput is a control event relayed to the host. Message keeps the
// delivered "remote-*" type.
type RemoteInput struct {
	Message *protocol.Message
}

// Disconnected is the last event, emitted when the relay connection drops.
type Disconnected struct{}

func (Connected) isEvent()       {}
func (RoomCreated) isEvent()     {}
func (UserJoined) isEvent()      {}
func (ExistingUsers) isEvent()   {}
func (ExistingClients) isEvent() {}
func (ClientJoined) isEvent()    {}
func (HostReady) isEvent()       {}
func (RoomSize) isEvent()        {}
func (PeerLeft) isEvent()        {}
func (Offer) isEvent()           {}
func (Answer) isEvent()          {}
func (Candidate) isEvent()       {}
func (RemoteInput) isEvent()     {}
func (Disconnected) isEvent()    {}
