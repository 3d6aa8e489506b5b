package protocol

import "github.com/pion/webrtc/v4"

// RoomPayload is the payload of i-am-host, and the object form of join-room.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type ConnectedPayload struct {
	ID string `json:"id"`
}

type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
}

type UserJoinedPayload struct {
	UserID   string `json:"userId"`
	RoomSize int    `json:"roomSize"`
}

type ClientJoinedPayload struct {
	ClientID string `json:"clientId"`
}

// ExistingUsersPayload is sent to a joiner when the room already had members.
// HostID is empty when the room has no host.
type ExistingUsersPayload struct {
	Users    []string `json:"users"`
	RoomSize int      `json:"roomSize"`
	HostID   string   `json:"hostId"`
}

type ExistingClientsPayload struct {
	Clients []string `json:"clients"`
}

type HostReadyPayload struct {
	HostID string `json:"hostId"`
}

type PeerLeftPayload struct {
	UserID string `json:"userId"`
}

// OfferPayload carries an SDP offer. SenderID is filled in by the relay.
type OfferPayload struct {
	Offer    webrtc.SessionDescription `json:"offer"`
	RoomID   string                    `json:"roomId,omitempty"`
	SenderID string                    `json:"senderId,omitempty"`
}

// AnswerPayload carries an SDP answer. SenderID is filled in by the relay.
type AnswerPayload struct {
	Answer   webrtc.SessionDescription `json:"answer"`
	RoomID   string                    `json:"roomId,omitempty"`
	SenderID string                    `json:"senderId,omitempty"`
}

// CandidatePayload carries a trickled ICE candidate.
type CandidatePayload struct {
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	RoomID    string                  `json:"roomId,omitempty"`
	SenderID  string                  `json:"senderId,omitempty"`
}
