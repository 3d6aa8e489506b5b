package session

import (
	"github.com/pion/interceptor"
	"github.com/pion/logging"
	"github.com/pion/transport/v3"
	"github.com/pion/webrtc/v4"

	"github.com/yasincandan35/remotedesk/internal/config"
)

// Transport is the slice of a peer connection the state machine drives.
type Transport interface {
	// CreateOffer creates an offer and applies it as the local description.
	CreateOffer() (webrtc.SessionDescription, error)

	// CreateAnswer creates an answer and applies it as the local description.
	CreateAnswer() (webrtc.SessionDescription, error)

	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(c webrtc.ICECandidateInit) error
	SignalingState() webrtc.SignalingState
	HasRemoteDescription() bool
	Close() error
}

// Callbacks are wired into every transport a Factory creates. They fire on
// transport goroutines.
type Callbacks struct {
	OnICECandidate    func(webrtc.ICECandidateInit)
	OnConnectionState func(webrtc.PeerConnectionState)
	OnTrack           func(*webrtc.TrackRemote, *webrtc.RTPReceiver)
}

// Factory creates a fresh transport.
type Factory func(cb Callbacks) (Transport, error)

// APIOptions tune the pion API shared by every transport.
type APIOptions struct {
	// Net replaces the OS network, e.g. with a virtual one in tests.
	Net transport.Net

	LoggerFactory logging.LoggerFactory
}

// NewAPI builds a pion API with the default codecs and interceptors.
func NewAPI(opts APIOptions) (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, NewError("register codecs", err)
	}

	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, NewError("register interceptors", err)
	}

	se := webrtc.SettingEngine{}
	if opts.LoggerFactory != nil {
		se.LoggerFactory = opts.LoggerFactory
	}
	if opts.Net != nil {
		se.SetNet(opts.Net)
	}

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithSettingEngine(se),
		webrtc.WithInterceptorRegistry(ir),
	), nil
}

// ICEServers turns the configured STUN and TURN servers into pion's form.
func ICEServers(cfg *config.Config) []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if stun := cfg.GetSTUNServers(); len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}

	if turn := cfg.GetTURNServers(); turn != nil {
		username, password := cfg.GetTURNCredentials()
		servers = append(servers, webrtc.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}
	return servers
}

// HostTracks sends track on every transport.
func HostTracks(track webrtc.TrackLocal) func(*webrtc.PeerConnection) error {
	return func(pc *webrtc.PeerConnection) error {
		sender, err := pc.AddTrack(track)
		if err != nil {
			return NewError("add track", err)
		}

		// Read incoming RTCP so interceptors keep working.
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := sender.Read(buf); err != nil {
					return
				}
			}
		}()
		return nil
	}
}

// ReceiveVideo adds a receive-only video transceiver.
func ReceiveVideo(pc *webrtc.PeerConnection) error {
	_, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	if err != nil {
		return NewError("add transceiver", err)
	}
	return nil
}

// PionFactory returns a Factory creating pion peer connections from api.
// setup runs on each new connection before any negotiation.
func PionFactory(api *webrtc.API, cfg webrtc.Configuration, setup func(*webrtc.PeerConnection) error) Factory {
	return func(cb Callbacks) (Transport, error) {
		pc, err := api.NewPeerConnection(cfg)
		if err != nil {
			return nil, NewError("create peer connection", err)
		}

		if setup != nil {
			if err := setup(pc); err != nil {
				pc.Close()
				return nil, err
			}
		}

		pc.OnICECandidate(func(c *webrtc.ICECandidate) {
			if c == nil || cb.OnICECandidate == nil {
				return
			}
			cb.OnICECandidate(c.ToJSON())
		})
		if cb.OnConnectionState != nil {
			pc.OnConnectionStateChange(cb.OnConnectionState)
		}
		if cb.OnTrack != nil {
			pc.OnTrack(cb.OnTrack)
		}

		return &pionTransport{pc: pc}, nil
	}
}

type pionTransport struct {
	pc *webrtc.PeerConnection
}

func (t *pionTransport) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, NewError("create offer", err)
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, NewError("set local description", err)
	}
	return *t.pc.LocalDescription(), nil
}

func (t *pionTransport) CreateAnswer() (webrtc.SessionDescription, error) {
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, NewError("create answer", err)
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, NewError("set local description", err)
	}
	return *t.pc.LocalDescription(), nil
}

func (t *pionTransport) SetRemoteDescription(desc webrtc.SessionDescription) error {
	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return NewError("set remote description", err)
	}
	return nil
}

func (t *pionTransport) AddICECandidate(c webrtc.ICECandidateInit) error {
	if err := t.pc.AddICECandidate(c); err != nil {
		return NewError("add ICE candidate", err)
	}
	return nil
}

func (t *pionTransport) SignalingState() webrtc.SignalingState {
	return t.pc.SignalingState()
}

func (t *pionTransport) HasRemoteDescription() bool {
	return t.pc.RemoteDescription() != nil
}

func (t *pionTransport) Close() error {
	return t.pc.Close()
}
