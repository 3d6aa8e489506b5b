package session

// State is a step of the negotiation state machine.
type State int

const (
	StateIdle State = iota
	StateJoined
	StateReadyToOffer
	StateAwaitingHost
	StateOfferSent
	StateOfferReceived
	StateAnswerSent
	StateAnswerReceived
	StateConnected
	StateRenegotiating
	StateClosed
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateJoined:         "joined",
	StateReadyToOffer:   "ready-to-offer",
	StateAwaitingHost:   "awaiting-host",
	StateOfferSent:      "offer-sent",
	StateOfferReceived:  "offer-received",
	StateAnswerSent:     "answer-sent",
	StateAnswerReceived: "answer-received",
	StateConnected:      "connected",
	StateRenegotiating:  "renegotiating",
	StateClosed:         "closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Role decides which side of the negotiation a session plays.
type Role int

const (
	RoleHost Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "client"
}
