// Package session runs the offer/answer negotiation for one peer, either the
// host sharing a screen or a client viewing it.
//
// A Session is owned by a single goroutine (Run). Relay events, transport
// callbacks and retry ticks are all funnelled into that goroutine, so at most
// one offer/answer cycle is ever in flight. The host keeps one active peer: a
// second viewer replaces the first by closing and recreating the transport.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/yasincandan35/remotedesk/internal/protocol"
	"github.com/yasincandan35/remotedesk/internal/signaling"
)

const (
	DefaultRetryInterval = 500 * time.Millisecond
	DefaultMaxRetries    = 5

	// maxPendingCandidates bounds the remote ICE buffer; the oldest candidate
	// is dropped first.
	maxPendingCandidates = 64
)

// Signaler delivers messages to the relay. *signaling.Client satisfies it.
type Signaler interface {
	Send(msg *protocol.Message) error
}

type Options struct {
	Role   Role
	RoomID string

	Signaler     Signaler
	NewTransport Factory

	// OnStateChange is called on the session goroutine after every change.
	OnStateChange func(State)

	// OnEvent sees every relay event before the session handles it.
	OnEvent func(signaling.Event)

	// OnInput receives control events relayed to a host.
	OnInput func(*protocol.Message)

	// OnTrack receives remote media on a client.
	OnTrack func(*webrtc.TrackRemote, *webrtc.RTPReceiver)

	RetryInterval time.Duration
	MaxRetries    int
}

// internal events posted to the session goroutine
type (
	transportStateEvent struct {
		gen   int
		state webrtc.PeerConnectionState
	}
	localCandidateEvent struct {
		gen       int
		candidate webrtc.ICECandidateInit
	}
	retryEvent struct {
		gen int
	}
)

type Session struct {
	opts Options

	mu      sync.RWMutex
	state   State
	roomID  string
	running bool

	internal  chan any
	closing   chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// Owned by the session goroutine.
	peerID      string
	transport   Transport
	gen         int
	pendingICE  []webrtc.ICECandidateInit
	retryTimer  *time.Timer
	retries     int
	offerQueued bool
	tornDown    bool
}

func New(opts Options) *Session {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	return &Session{
		opts:     opts,
		roomID:   opts.RoomID,
		internal: make(chan any, 64),
		closing:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// State returns the current negotiation state. Safe from any goroutine.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// RoomID returns the room the session is in. It changes once when the relay
// creates a room for a client that joined without one.
func (s *Session) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

// Run starts the session and processes events until ctx is done, Close is
// called, or the relay connection drops.
func (s *Session) Run(ctx context.Context, events <-chan signaling.Event) error {
	s.mu.Lock()
	if s.running || s.isClosing() {
		s.mu.Unlock()
		return ErrClosed
	}
	s.running = true
	s.mu.Unlock()

	defer close(s.stopped)
	defer s.teardown()

	if err := s.start(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-s.closing:
			return nil

		case ev, ok := <-events:
			if !ok {
				return ErrSignalingClosed
			}
			if _, lost := ev.(signaling.Disconnected); lost {
				return ErrSignalingClosed
			}
			s.handle(ev)

		case ev := <-s.internal:
			s.handleInternal(ev)
		}
	}
}

// Close releases the transport and any pending retry. When Run is active it
// waits for it to return.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.closing) })

	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()

	if running {
		<-s.stopped
		return
	}
	s.teardown()
}

func (s *Session) isClosing() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

func (s *Session) teardown() {
	if s.tornDown {
		return
	}
	s.tornDown = true

	s.stopRetry()
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			slog.Debug("closing transport", "error", err)
		}
		s.transport = nil
	}
	s.pendingICE = nil
	s.setState(StateClosed)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()

	if prev == st {
		return
	}
	slog.Debug("session state", "role", s.opts.Role, "from", prev, "to", st)
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(st)
	}
}

// start announces the session to the relay and prepares the first
// transport.
func (s *Session) start() error {
	roomID := s.RoomID()

	if s.opts.Role == RoleHost {
		if roomID == "" {
			return NewError("start host", protocol.ErrNoRoomID)
		}
		if err := s.send(protocol.TypeIAmHost, protocol.RoomPayload{RoomID: roomID}); err != nil {
			return err
		}
	}
	if err := s.send(protocol.TypeJoinRoom, roomID); err != nil {
		return err
	}
	s.setState(StateJoined)

	if err := s.resetTransport(); err != nil {
		return err
	}

	if s.opts.Role == RoleHost {
		s.setState(StateReadyToOffer)
	} else {
		s.setState(StateAwaitingHost)
	}
	return nil
}

func (s *Session) send(typ string, payload any) error {
	msg, err := protocol.New(typ, payload)
	if err != nil {
		return NewError("encode "+typ, err)
	}
	if err := s.opts.Signaler.Send(msg); err != nil {
		return NewError("send "+typ, err)
	}
	return nil
}

// post hands an internal event to the session goroutine.
func (s *Session) post(ev any) {
	select {
	case s.internal <- ev:
	case <-s.stopped:
	case <-s.closing:
	}
}

// resetTransport closes the current transport, if any, and creates a fresh
// one. Callbacks from older transports are ignored by generation.
func (s *Session) resetTransport() error {
	s.stopRetry()
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			slog.Debug("closing transport", "error", err)
		}
		s.transport = nil
	}
	s.pendingICE = nil
	s.gen++
	gen := s.gen

	t, err := s.opts.NewTransport(Callbacks{
		OnICECandidate: func(c webrtc.ICECandidateInit) {
			s.post(localCandidateEvent{gen: gen, candidate: c})
		},
		OnConnectionState: func(st webrtc.PeerConnectionState) {
			s.post(transportStateEvent{gen: gen, state: st})
		},
		OnTrack: s.opts.OnTrack,
	})
	if err != nil {
		return err
	}
	s.transport = t
	return nil
}

func (s *Session) handle(ev signaling.Event) {
	if s.opts.OnEvent != nil {
		s.opts.OnEvent(ev)
	}

	switch e := ev.(type) {
	case signaling.Connected:
		slog.Debug("relay assigned id", "id", e.ID)

	case signaling.RoomCreated:
		s.mu.Lock()
		s.roomID = e.RoomID
		s.mu.Unlock()
		slog.Info("room created", "room", e.RoomID)

	case signaling.ExistingClients:
		if s.opts.Role != RoleHost || len(e.Clients) == 0 {
			return
		}
		// One active peer: the most recent waiting client wins.
		s.requestOffer(e.Clients[len(e.Clients)-1])

	case signaling.ClientJoined:
		if s.opts.Role == RoleHost {
			s.requestOffer(e.ClientID)
		}

	case signaling.HostReady:
		if s.opts.Role == RoleClient {
			s.hostChanged(e.HostID)
		}

	case signaling.ExistingUsers:
		if s.opts.Role == RoleClient && e.HostID != "" {
			slog.Debug("host present", "host", e.HostID)
		}

	case signaling.PeerLeft:
		s.peerLeft(e.UserID)

	case signaling.Offer:
		s.handleOffer(e)

	case signaling.Answer:
		s.handleAnswer(e)

	case signaling.Candidate:
		s.handleCandidate(e.Candidate)

	case signaling.RemoteInput:
		if s.opts.Role == RoleHost && s.opts.OnInput != nil {
			s.opts.OnInput(e.Message)
		}
	}
}

func (s *Session) handleInternal(ev any) {
	switch e := ev.(type) {
	case localCandidateEvent:
		if e.gen != s.gen {
			return
		}
		err := s.send(protocol.TypeICECandidate, protocol.CandidatePayload{
			Candidate: e.candidate,
			RoomID:    s.RoomID(),
		})
		if err != nil {
			slog.Warn("sending ICE candidate", "error", err)
		}

	case transportStateEvent:
		if e.gen != s.gen {
			return
		}
		s.transportStateChanged(e.state)

	case retryEvent:
		if e.gen != s.gen || !s.offerQueued {
			return
		}
		s.retryTimer = nil
		s.tryOffer()
	}
}

// requestOffer starts an offer to peerID. An existing connection or
// negotiation is replaced.
func (s *Session) requestOffer(peerID string) {
	if s.offerQueued {
		s.peerID = peerID
		slog.Debug("offer request coalesced", "peer", peerID, "error", ErrOfferInFlight)
		return
	}

	switch s.State() {
	case StateConnected, StateOfferSent, StateAnswerReceived, StateRenegotiating:
		slog.Info("renegotiating for new viewer", "peer", peerID, "previous", s.peerID)
		s.setState(StateRenegotiating)
		if err := s.resetTransport(); err != nil {
			slog.Error("recreating transport", "error", err)
			return
		}
	}

	s.peerID = peerID
	s.retries = 0
	s.offerQueued = true
	s.tryOffer()
}

// tryOffer creates the offer when the transport is stable, otherwise it
// schedules a bounded retry.
func (s *Session) tryOffer() {
	if s.transport == nil {
		s.offerQueued = false
		return
	}

	if st := s.transport.SignalingState(); st != webrtc.SignalingStateStable {
		if s.retries >= s.opts.MaxRetries {
			s.offerQueued = false
			slog.Warn("dropping offer", "peer", s.peerID, "signaling_state", st, "error", ErrOfferDropped)
			return
		}
		s.retries++
		gen := s.gen
		slog.Debug("deferring offer", "peer", s.peerID, "signaling_state", st, "attempt", s.retries)
		s.retryTimer = time.AfterFunc(s.opts.RetryInterval, func() {
			s.post(retryEvent{gen: gen})
		})
		return
	}

	s.offerQueued = false
	offer, err := s.transport.CreateOffer()
	if err != nil {
		slog.Error("creating offer", "error", err)
		return
	}
	if err := s.send(protocol.TypeOffer, protocol.OfferPayload{Offer: offer, RoomID: s.RoomID()}); err != nil {
		slog.Error("sending offer", "error", err)
		return
	}
	s.setState(StateOfferSent)
}

func (s *Session) stopRetry() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.offerQueued = false
}

func (s *Session) handleOffer(e signaling.Offer) {
	if s.opts.Role != RoleClient {
		slog.Debug("host ignores offer", "sender", e.SenderID)
		return
	}
	if s.transport == nil {
		return
	}
	if s.transport.HasRemoteDescription() {
		slog.Warn("discarding offer", "sender", e.SenderID, "error", ErrDuplicateOffer)
		return
	}

	s.peerID = e.SenderID
	if err := s.transport.SetRemoteDescription(e.Description); err != nil {
		slog.Error("applying offer", "error", err)
		return
	}
	s.setState(StateOfferReceived)
	s.flushCandidates()

	answer, err := s.transport.CreateAnswer()
	if err != nil {
		slog.Error("creating answer", "error", err)
		return
	}
	if err := s.send(protocol.TypeAnswer, protocol.AnswerPayload{Answer: answer, RoomID: s.RoomID()}); err != nil {
		slog.Error("sending answer", "error", err)
		return
	}
	s.setState(StateAnswerSent)
}

func (s *Session) handleAnswer(e signaling.Answer) {
	if s.opts.Role != RoleHost || s.transport == nil {
		return
	}
	if s.State() != StateOfferSent || s.transport.SignalingState() == webrtc.SignalingStateStable {
		slog.Warn("discarding answer", "sender", e.SenderID, "state", s.State(), "error", ErrUnexpectedAnswer)
		return
	}

	if err := s.transport.SetRemoteDescription(e.Description); err != nil {
		slog.Error("applying answer", "error", err)
		return
	}
	s.peerID = e.SenderID
	s.setState(StateAnswerReceived)
	s.flushCandidates()
}

func (s *Session) handleCandidate(c webrtc.ICECandidateInit) {
	if s.transport == nil || !s.transport.HasRemoteDescription() {
		if len(s.pendingICE) >= maxPendingCandidates {
			s.pendingICE = s.pendingICE[1:]
		}
		s.pendingICE = append(s.pendingICE, c)
		return
	}
	if err := s.transport.AddICECandidate(c); err != nil {
		slog.Warn("adding ICE candidate", "error", err)
	}
}

func (s *Session) flushCandidates() {
	pending := s.pendingICE
	s.pendingICE = nil
	for _, c := range pending {
		if err := s.transport.AddICECandidate(c); err != nil {
			slog.Warn("adding buffered ICE candidate", "error", err)
		}
	}
}

func (s *Session) transportStateChanged(st webrtc.PeerConnectionState) {
	slog.Debug("transport state", "role", s.opts.Role, "state", st)

	switch st {
	case webrtc.PeerConnectionStateConnected:
		s.setState(StateConnected)
	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
		slog.Warn("transport lost", "state", st, "peer", s.peerID)
		s.recover()
	}
}

// recover replaces the transport so the next negotiation starts clean.
func (s *Session) recover() {
	s.peerID = ""
	if err := s.resetTransport(); err != nil {
		slog.Error("recreating transport", "error", err)
		return
	}
	if s.opts.Role == RoleHost {
		s.setState(StateReadyToOffer)
	} else {
		s.setState(StateAwaitingHost)
	}
}

func (s *Session) peerLeft(userID string) {
	if userID == "" || userID != s.peerID {
		return
	}
	slog.Info("peer left", "peer", userID)
	s.recover()
}

// hostChanged resets a client that already accepted an offer from a
// previous host, so the new host's offer is accepted.
func (s *Session) hostChanged(hostID string) {
	if s.peerID == hostID {
		return
	}
	if s.transport != nil && s.transport.HasRemoteDescription() {
		slog.Info("host replaced", "previous", s.peerID, "host", hostID)
		s.recover()
	}
}

// IsClosed reports whether err means the session ended because its relay or
// owner went away rather than failing.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, ErrSignalingClosed)
}
