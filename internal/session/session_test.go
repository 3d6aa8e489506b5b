package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/yasincandan35/remotedesk/internal/bridge"
	"github.com/yasincandan35/remotedesk/internal/input"
	"github.com/yasincandan35/remotedesk/internal/protocol"
	"github.com/yasincandan35/remotedesk/internal/signaling"
)

type fakeTransport struct {
	mu         sync.Mutex
	state      webrtc.SignalingState
	remote     *webrtc.SessionDescription
	candidates []webrtc.ICECandidateInit
	offers     int
	answers    int
	closed     bool
}

func (f *fakeTransport) CreateOffer() (webrtc.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers++
	f.state = webrtc.SignalingStateHaveLocalOffer
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: fmt.Sprintf("offer-%d", f.offers)}, nil
}

func (f *fakeTransport) CreateAnswer() (webrtc.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers++
	f.state = webrtc.SignalingStateStable
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: fmt.Sprintf("answer-%d", f.answers)}, nil
}

func (f *fakeTransport) SetRemoteDescription(d webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remote = &d
	if d.Type == webrtc.SDPTypeOffer {
		f.state = webrtc.SignalingStateHaveRemoteOffer
	} else {
		f.state = webrtc.SignalingStateStable
	}
	return nil
}

func (f *fakeTransport) AddICECandidate(c webrtc.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remote == nil {
		return errors.New("no remote description")
	}
	f.candidates = append(f.candidates, c)
	return nil
}

func (f *fakeTransport) SignalingState() webrtc.SignalingState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == webrtc.SignalingStateUnknown {
		return webrtc.SignalingStateStable
	}
	return f.state
}

func (f *fakeTransport) HasRemoteDescription() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remote != nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
}

func (ff *fakeFactory) New(cb Callbacks) (Transport, error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	t := &fakeTransport{}
	ff.transports = append(ff.transports, t)
	return t, nil
}

func (ff *fakeFactory) last() *fakeTransport {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return ff.transports[len(ff.transports)-1]
}

func (ff *fakeFactory) count() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.transports)
}

type recordingSignaler struct {
	mu   sync.Mutex
	msgs []*protocol.Message
}

func (r *recordingSignaler) Send(msg *protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingSignaler) byType(typ string) []*protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*protocol.Message
	for _, m := range r.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func newTestSession(t *testing.T, role Role) (*Session, *fakeFactory, *recordingSignaler) {
	t.Helper()
	ff := &fakeFactory{}
	sig := &recordingSignaler{}
	s := New(Options{
		Role:          role,
		RoomID:        "ABC123",
		Signaler:      sig,
		NewTransport:  ff.New,
		RetryInterval: time.Hour,
	})
	if err := s.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s, ff, sig
}

func candidate(i int) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{Candidate: fmt.Sprintf("candidate:%d 1 udp 1 10.0.0.1 %d typ host", i, 5000+i)}
}

func TestHostStart_DeclaresThenJoins(t *testing.T) {
	s, _, sig := newTestSession(t, RoleHost)

	if len(sig.msgs) != 2 || sig.msgs[0].Type != protocol.TypeIAmHost || sig.msgs[1].Type != protocol.TypeJoinRoom {
		t.Fatalf("unexpected start messages: %v", sig.msgs)
	}
	if s.State() != StateReadyToOffer {
		t.Fatalf("expected ready-to-offer, got %s", s.State())
	}
}

func TestHost_OfferAnswerConnected(t *testing.T) {
	s, ff, sig := newTestSession(t, RoleHost)

	s.handle(signaling.ClientJoined{ClientID: "viewer"})
	if s.State() != StateOfferSent {
		t.Fatalf("expected offer-sent, got %s", s.State())
	}
	offers := sig.byType(protocol.TypeOffer)
	if len(offers) != 1 {
		t.Fatalf("expected one offer, got %d", len(offers))
	}
	var p protocol.OfferPayload
	if err := offers[0].Decode(&p); err != nil || p.RoomID != "ABC123" {
		t.Fatalf("offer not tagged with room: %+v, %v", p, err)
	}

	s.handle(signaling.Answer{SenderID: "viewer", Description: webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "a"}})
	if s.State() != StateAnswerReceived {
		t.Fatalf("expected answer-received, got %s", s.State())
	}

	s.handleInternal(transportStateEvent{gen: s.gen, state: webrtc.PeerConnectionStateConnected})
	if s.State() != StateConnected {
		t.Fatalf("expected connected, got %s", s.State())
	}
	if ff.count() != 1 {
		t.Fatalf("expected a single transport, got %d", ff.count())
	}
}

func TestHost_UnexpectedAnswerDiscarded(t *testing.T) {
	s, ff, _ := newTestSession(t, RoleHost)

	s.handle(signaling.Answer{SenderID: "x", Description: webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "a"}})
	if ff.last().HasRemoteDescription() {
		t.Fatalf("answer outside offer-sent must be discarded")
	}
	if s.State() != StateReadyToOffer {
		t.Fatalf("state changed to %s", s.State())
	}
}

func TestClient_BuffersCandidatesUntilOffer(t *testing.T) {
	s, ff, sig := newTestSession(t, RoleClient)
	if s.State() != StateAwaitingHost {
		t.Fatalf("expected awaiting-host, got %s", s.State())
	}

	for i := 0; i < 3; i++ {
		s.handle(signaling.Candidate{SenderID: "host", Candidate: candidate(i)})
	}
	tr := ff.last()
	if len(tr.candidates) != 0 {
		t.Fatalf("candidates applied before remote description")
	}

	s.handle(signaling.Offer{SenderID: "host", Description: webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "o"}})

	if len(tr.candidates) != 3 {
		t.Fatalf("expected 3 flushed candidates, got %d", len(tr.candidates))
	}
	for i, c := range tr.candidates {
		if c.Candidate != candidate(i).Candidate {
			t.Fatalf("candidate %d out of order: %s", i, c.Candidate)
		}
	}
	if s.State() != StateAnswerSent {
		t.Fatalf("expected answer-sent, got %s", s.State())
	}
	answers := sig.byType(protocol.TypeAnswer)
	if len(answers) != 1 {
		t.Fatalf("expected one answer, got %d", len(answers))
	}
	var p protocol.AnswerPayload
	if err := answers[0].Decode(&p); err != nil || p.RoomID != "ABC123" {
		t.Fatalf("answer not tagged with room: %+v, %v", p, err)
	}

	// Later candidates go straight to the transport.
	s.handle(signaling.Candidate{SenderID: "host", Candidate: candidate(9)})
	if len(tr.candidates) != 4 {
		t.Fatalf("expected direct apply, got %d", len(tr.candidates))
	}
}

func TestClient_CandidateBufferIsBounded(t *testing.T) {
	s, ff, _ := newTestSession(t, RoleClient)

	for i := 0; i < maxPendingCandidates+6; i++ {
		s.handle(signaling.Candidate{Candidate: candidate(i)})
	}
	s.handle(signaling.Offer{SenderID: "host", Description: webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "o"}})

	got := ff.last().candidates
	if len(got) != maxPendingCandidates {
		t.Fatalf("expected %d candidates, got %d", maxPendingCandidates, len(got))
	}
	if got[0].Candidate != candidate(6).Candidate {
		t.Fatalf("oldest candidates should be dropped first, got %s", got[0].Candidate)
	}
}

func TestClient_DuplicateOfferDiscarded(t *testing.T) {
	s, ff, sig := newTestSession(t, RoleClient)
	offer := signaling.Offer{SenderID: "host", Description: webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "o"}}

	s.handle(offer)
	s.handle(offer)

	if n := len(sig.byType(protocol.TypeAnswer)); n != 1 {
		t.Fatalf("expected exactly one answer, got %d", n)
	}
	if ff.last().answers != 1 {
		t.Fatalf("second offer reached the transport")
	}
}

func TestHost_DeferredOfferRetriesThenDrops(t *testing.T) {
	s, ff, sig := newTestSession(t, RoleHost)
	tr := ff.last()
	tr.state = webrtc.SignalingStateHaveLocalOffer

	s.handle(signaling.ClientJoined{ClientID: "viewer"})
	if len(sig.byType(protocol.TypeOffer)) != 0 {
		t.Fatalf("offer created while not stable")
	}
	if s.retries != 1 || !s.offerQueued {
		t.Fatalf("expected a scheduled retry, retries=%d queued=%v", s.retries, s.offerQueued)
	}

	for i := 0; i < DefaultMaxRetries; i++ {
		s.handleInternal(retryEvent{gen: s.gen})
	}
	if s.offerQueued {
		t.Fatalf("offer should be dropped after %d retries", DefaultMaxRetries)
	}
	if len(sig.byType(protocol.TypeOffer)) != 0 {
		t.Fatalf("dropped offer was sent")
	}

	// A fresh request succeeds once the transport is stable.
	tr.state = webrtc.SignalingStateStable
	s.handle(signaling.ClientJoined{ClientID: "viewer"})
	if len(sig.byType(protocol.TypeOffer)) != 1 {
		t.Fatalf("expected offer once stable")
	}
}

func TestHost_DeferredOfferSucceedsOnRetry(t *testing.T) {
	s, ff, sig := newTestSession(t, RoleHost)
	tr := ff.last()
	tr.state = webrtc.SignalingStateHaveLocalOffer

	s.handle(signaling.ClientJoined{ClientID: "viewer"})
	s.handle(signaling.ClientJoined{ClientID: "viewer-2"})
	if s.peerID != "viewer-2" {
		t.Fatalf("in-flight request should track the latest peer, got %q", s.peerID)
	}

	tr.state = webrtc.SignalingStateStable
	s.handleInternal(retryEvent{gen: s.gen})

	if len(sig.byType(protocol.TypeOffer)) != 1 || s.State() != StateOfferSent {
		t.Fatalf("expected one offer after retry, state %s", s.State())
	}
}

func TestHost_NewViewerRenegotiates(t *testing.T) {
	s, ff, sig := newTestSession(t, RoleHost)

	s.handle(signaling.ClientJoined{ClientID: "v1"})
	s.handle(signaling.Answer{SenderID: "v1", Description: webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "a"}})
	s.handleInternal(transportStateEvent{gen: s.gen, state: webrtc.PeerConnectionStateConnected})
	first := ff.last()

	s.handle(signaling.ClientJoined{ClientID: "v2"})

	if !first.closed {
		t.Fatalf("previous transport should be closed")
	}
	if ff.count() != 2 {
		t.Fatalf("expected a replacement transport, got %d", ff.count())
	}
	if s.State() != StateOfferSent || s.peerID != "v2" {
		t.Fatalf("expected offer-sent to v2, got %s to %q", s.State(), s.peerID)
	}
	if len(sig.byType(protocol.TypeOffer)) != 2 {
		t.Fatalf("expected a second offer")
	}

	// Callbacks from the replaced transport are ignored.
	s.handleInternal(transportStateEvent{gen: s.gen - 1, state: webrtc.PeerConnectionStateFailed})
	if s.State() != StateOfferSent || ff.count() != 2 {
		t.Fatalf("stale transport callback changed state to %s", s.State())
	}
}

func TestClient_TransportFailureAwaitsNextOffer(t *testing.T) {
	s, ff, _ := newTestSession(t, RoleClient)
	s.handle(signaling.Offer{SenderID: "host", Description: webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "o"}})

	s.handleInternal(transportStateEvent{gen: s.gen, state: webrtc.PeerConnectionStateFailed})

	if s.State() != StateAwaitingHost {
		t.Fatalf("expected awaiting-host, got %s", s.State())
	}
	if ff.count() != 2 || ff.last().HasRemoteDescription() {
		t.Fatalf("expected a fresh transport")
	}

	s.handle(signaling.Offer{SenderID: "host", Description: webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "o2"}})
	if s.State() != StateAnswerSent {
		t.Fatalf("next offer should be accepted, state %s", s.State())
	}
}

func TestPeerLeft_ResetsHost(t *testing.T) {
	s, ff, _ := newTestSession(t, RoleHost)
	s.handle(signaling.ClientJoined{ClientID: "v1"})

	s.handle(signaling.PeerLeft{UserID: "someone-else"})
	if ff.count() != 1 {
		t.Fatalf("unrelated departure must not reset the transport")
	}

	s.handle(signaling.PeerLeft{UserID: "v1"})
	if ff.count() != 2 || s.State() != StateReadyToOffer {
		t.Fatalf("expected reset to ready-to-offer, got %s with %d transports", s.State(), ff.count())
	}
}

func TestClient_HostChangeResetsAcceptedOffer(t *testing.T) {
	s, ff, _ := newTestSession(t, RoleClient)
	s.handle(signaling.Offer{SenderID: "h1", Description: webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "o"}})
	if s.State() != StateAnswerSent {
		t.Fatalf("expected answer-sent, got %s", s.State())
	}

	s.handle(signaling.HostReady{HostID: "h1"})
	if ff.count() != 1 {
		t.Fatalf("same host must not reset the transport")
	}

	s.handle(signaling.HostReady{HostID: "h2"})
	if s.State() != StateAwaitingHost || ff.count() != 2 {
		t.Fatalf("expected a fresh transport awaiting the new host, got %s with %d transports", s.State(), ff.count())
	}

	s.handle(signaling.Offer{SenderID: "h2", Description: webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "o2"}})
	if s.State() != StateAnswerSent {
		t.Fatalf("new host's offer should be answered, state %s", s.State())
	}
}

func TestRemoteInputForwardedToHost(t *testing.T) {
	var got []*protocol.Message
	ff := &fakeFactory{}
	s := New(Options{
		Role:         RoleHost,
		RoomID:       "ABC123",
		Signaler:     &recordingSignaler{},
		NewTransport: ff.New,
		OnInput:      func(m *protocol.Message) { got = append(got, m) },
	})
	if err := s.start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	msg := &protocol.Message{Type: "remote-scroll"}
	s.handle(signaling.RemoteInput{Message: msg})
	if len(got) != 1 || got[0] != msg {
		t.Fatalf("input not forwarded: %v", got)
	}
}

// stalledSink never finishes a submission until released.
type stalledSink struct{ release chan struct{} }

func (s stalledSink) Submit(ctx context.Context, _ input.Event) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (stalledSink) Available() bool { return true }

func TestHost_StalledInputSinkDoesNotBlockNegotiation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := stalledSink{release: make(chan struct{})}
	defer close(sink.release)
	fwd := bridge.NewForwarder(sink, 4)
	go fwd.Run(ctx)

	ff := &fakeFactory{}
	sig := &recordingSignaler{}
	s := New(Options{
		Role:         RoleHost,
		RoomID:       "ABC123",
		Signaler:     sig,
		NewTransport: ff.New,
		OnInput: func(m *protocol.Message) {
			if ev, err := input.Decode(m); err == nil {
				fwd.Forward(ev)
			}
		},
	})

	wire, err := input.Encode(input.Scroll(0, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	wire.Type = protocol.RemoteType(wire.Type)

	events := make(chan signaling.Event, 32)
	for i := 0; i < 20; i++ {
		events <- signaling.RemoteInput{Message: wire}
	}
	events <- signaling.ClientJoined{ClientID: "viewer"}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, events) }()

	deadline := time.Now().Add(5 * time.Second)
	for len(sig.byType(protocol.TypeOffer)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no offer sent while input was stalled, state %s", s.State())
		}
		time.Sleep(time.Millisecond)
	}
	if fwd.Dropped() == 0 {
		t.Fatal("expected the backlog to overflow behind the stalled sink")
	}

	s.Close()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRun_StopsOnDisconnectAndCloses(t *testing.T) {
	ff := &fakeFactory{}
	var states []State
	s := New(Options{
		Role:          RoleClient,
		RoomID:        "ABC123",
		Signaler:      &recordingSignaler{},
		NewTransport:  ff.New,
		OnStateChange: func(st State) { states = append(states, st) },
	})

	events := make(chan signaling.Event, 1)
	events <- signaling.Disconnected{}

	err := s.Run(context.Background(), events)
	if !errors.Is(err, ErrSignalingClosed) || !IsClosed(err) {
		t.Fatalf("expected ErrSignalingClosed, got %v", err)
	}
	if s.State() != StateClosed || !ff.last().closed {
		t.Fatalf("expected closed session and transport, state %s", s.State())
	}
	want := []State{StateJoined, StateAwaitingHost, StateClosed}
	if fmt.Sprint(states) != fmt.Sprint(want) {
		t.Fatalf("state sequence %v, want %v", states, want)
	}

	if err := s.Run(context.Background(), events); !errors.Is(err, ErrClosed) {
		t.Fatalf("second Run should fail with ErrClosed, got %v", err)
	}
}

func TestClose_WaitsForRun(t *testing.T) {
	ff := &fakeFactory{}
	s := New(Options{Role: RoleHost, RoomID: "ABC123", Signaler: &recordingSignaler{}, NewTransport: ff.New})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), make(chan signaling.Event)) }()

	deadline := time.Now().Add(5 * time.Second)
	for s.State() != StateReadyToOffer {
		if time.Now().After(deadline) {
			t.Fatalf("session did not start")
		}
		time.Sleep(time.Millisecond)
	}

	s.Close()
	if s.State() != StateClosed || !ff.last().closed {
		t.Fatalf("Close returned before the transport was released")
	}
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	s.Close()
}

func TestHostWithoutRoomFails(t *testing.T) {
	s := New(Options{Role: RoleHost, Signaler: &recordingSignaler{}, NewTransport: (&fakeFactory{}).New})
	err := s.Run(context.Background(), nil)
	if !errors.Is(err, protocol.ErrNoRoomID) {
		t.Fatalf("expected ErrNoRoomID, got %v", err)
	}
}
