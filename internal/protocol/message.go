package protocol

import (
	"encoding/json"
	"errors"
	"strings"
)

// Message defines the structure for every websocket frame exchanged between
// peers and the relay, in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Peer to relay.
const (
	TypeIAmHost      = "i-am-host"
	TypeJoinRoom     = "join-room"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"

	TypeMouseMove  = "mouse-move"
	TypeMouseClick = "mouse-click"
	TypeKeyPress   = "key-press"
	TypeScroll     = "scroll"
)

// Relay to peer.
const (
	TypeConnected       = "connected"
	TypeRoomCreated     = "room-created"
	TypeUserJoined      = "user-joined"
	TypeClientJoined    = "client-joined"
	TypeExistingUsers   = "existing-users"
	TypeExistingClients = "existing-clients"
	TypeHostReady       = "host-ready"
	TypeRoomSize        = "room-size"
	TypePeerLeft        = "peer-left"
)

// remotePrefix is prepended to input message types when the relay delivers
// them to the host.
const remotePrefix = "remote-"

var (
	ErrNoRoomID    = errors.New("payload carries no room id")
	ErrMissingType = errors.New("message has no type")
)

// Parse decodes one websocket frame into a Message.
func Parse(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, ErrMissingType
	}
	return &msg, nil
}

// IsInput reports whether t is one of the four client to relay input types.
func IsInput(t string) bool {
	switch t {
	case TypeMouseMove, TypeMouseClick, TypeKeyPress, TypeScroll:
		return true
	}
	return false
}

// IsSignal reports whether t is an offer, answer or ICE candidate.
func IsSignal(t string) bool {
	return t == TypeOffer || t == TypeAnswer || t == TypeICECandidate
}

// RemoteType returns the delivery name of an input type ("scroll" -> "remote-scroll").
func RemoteType(t string) string {
	return remotePrefix + t
}

// InputType is the inverse of RemoteType. ok is false when t is not a
// delivered input type.
func InputType(t string) (string, bool) {
	if !strings.HasPrefix(t, remotePrefix) {
		return "", false
	}
	in := strings.TrimPrefix(t, remotePrefix)
	return in, IsInput(in)
}

// New builds a message with payload marshalled as JSON. A nil payload
// produces a message without a payload field.
func New(t string, payload any) (*Message, error) {
	msg := &Message{Type: t}
	if payload == nil {
		return msg, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	msg.Payload = b
	return msg, nil
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(m.Payload, v)
}

// RoomID extracts the room id a message targets. The payload is either a
// bare JSON string (join-room) or an object with a roomId field.
func (m *Message) RoomID() (string, error) {
	if len(m.Payload) == 0 {
		return "", ErrNoRoomID
	}

	var bare string
	if err := json.Unmarshal(m.Payload, &bare); err == nil {
		return bare, nil
	}

	var obj RoomPayload
	if err := json.Unmarshal(m.Payload, &obj); err != nil {
		return "", err
	}
	if obj.RoomID == "" {
		return "", ErrNoRoomID
	}
	return obj.RoomID, nil
}

// WithSender returns a copy of m whose payload object carries senderId.
// Payloads that are not JSON objects are copied unchanged.
func (m *Message) WithSender(senderID string) *Message {
	out := &Message{Type: m.Type, Payload: m.Payload}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(m.Payload, &fields); err != nil || fields == nil {
		return out
	}

	id, _ := json.Marshal(senderID)
	fields["senderId"] = id

	b, err := json.Marshal(fields)
	if err != nil {
		return out
	}
	out.Payload = b
	return out
}
