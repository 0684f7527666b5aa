package webrtc

import (
	"encoding/json"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/sekhar08/livekit-memory-chat/internal/signaling"
)

// ICEConfig lists the ICE servers a peer connection may use.
type ICEConfig struct {
	STUNServers []string
	TURNServers []string
	TURNUser    string
	TURNPass    string
	ForceRelay  bool
}

// NewPeerConnection creates a peer connection for the given ICE servers.
// Relay-only transport is used when forced, or automatically on VPN/CGNAT
// hosts, provided a TURN server is configured.
func NewPeerConnection(ice ICEConfig) (*pion.PeerConnection, error) {
	var iceServers []pion.ICEServer
	if len(ice.STUNServers) > 0 {
		iceServers = append(iceServers, pion.ICEServer{URLs: ice.STUNServers})
	}

	if len(ice.TURNServers) > 0 {
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       ice.TURNServers,
			Username:   ice.TURNUser,
			Credential: ice.TURNPass,
		})
	}

	policy := pion.ICETransportPolicyAll
	if len(ice.TURNServers) > 0 && (ice.ForceRelay || BehindRestrictiveNetwork()) {
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// SignalSender delivers a signaling payload to the remote side.
type SignalSender func(*signaling.SignalPayload) error

// SetupICEHandlers trickles local candidates through send and signals done
// when the connection fails or closes.
func SetupICEHandlers(pc *pion.PeerConnection, send SignalSender, done chan<- struct{}) {
	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		if state == pion.PeerConnectionStateFailed || state == pion.PeerConnectionStateClosed {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		_ = send(&signaling.SignalPayload{ICECandidate: c.ToJSON()})
	})
}

// CreateDataChannel opens the ordered, reliable chat channel.
func CreateDataChannel(pc *pion.PeerConnection, label string) (*pion.DataChannel, error) {
	ordered := true

	dc, err := pc.CreateDataChannel(label, &pion.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return nil, NewError("create data channel", err)
	}
	return dc, nil
}

// CreateOffer creates an offer with trickle ICE (doesn't wait for gathering).
func CreateOffer(pc *pion.PeerConnection) (*pion.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, NewError("create offer", err)
	}

	if err = pc.SetLocalDescription(offer); err != nil {
		return nil, NewError("set local description", err)
	}

	return pc.LocalDescription(), nil
}

// CreateAnswer applies a remote offer and answers it.
func CreateAnswer(pc *pion.PeerConnection, offer *pion.SessionDescription) (*pion.SessionDescription, error) {
	if err := pc.SetRemoteDescription(*offer); err != nil {
		return nil, NewError("set remote description", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewError("create answer", err)
	}

	if err = pc.SetLocalDescription(answer); err != nil {
		return nil, NewError("set local description", err)
	}

	return pc.LocalDescription(), nil
}

// SessionDescription converts an SDP signal into a pion description.
func SessionDescription(payload *signaling.SignalPayload) (*pion.SessionDescription, error) {
	var sdpType pion.SDPType
	switch payload.Type {
	case "offer":
		sdpType = pion.SDPTypeOffer
	case "answer":
		sdpType = pion.SDPTypeAnswer
	default:
		return nil, WrapError("handle signal", ErrUnexpectedSignal, payload.Type)
	}
	return &pion.SessionDescription{Type: sdpType, SDP: payload.SDP}, nil
}

// DescriptionSignal converts a local description into a signal payload.
func DescriptionSignal(desc *pion.SessionDescription) *signaling.SignalPayload {
	return &signaling.SignalPayload{Type: desc.Type.String(), SDP: desc.SDP}
}

// ParseICECandidate decodes a trickled candidate.
func ParseICECandidate(payload *signaling.SignalPayload) (pion.ICECandidateInit, error) {
	var ice pion.ICECandidateInit
	candidateBytes, err := json.Marshal(payload.ICECandidate)
	if err != nil {
		return ice, NewError("parse ICE candidate", err)
	}
	if err := json.Unmarshal(candidateBytes, &ice); err != nil {
		return ice, NewError("parse ICE candidate", err)
	}
	return ice, nil
}

// CandidateBuffer holds remote candidates that arrive before the remote
// description is set.
type CandidateBuffer struct {
	mu      sync.Mutex
	pending []pion.ICECandidateInit
}

// Add applies the candidate now, or queues it until Flush.
func (b *CandidateBuffer) Add(pc *pion.PeerConnection, ice pion.ICECandidateInit) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pc.RemoteDescription() == nil {
		b.pending = append(b.pending, ice)
		return nil
	}
	if err := pc.AddICECandidate(ice); err != nil {
		return NewError("add ICE candidate", err)
	}
	return nil
}

// Flush applies queued candidates. Call after SetRemoteDescription.
func (b *CandidateBuffer) Flush(pc *pion.PeerConnection) error {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, ice := range pending {
		if err := pc.AddICECandidate(ice); err != nil {
			return NewError("add ICE candidate", err)
		}
	}
	return nil
}

// queued reports how many candidates are waiting.
func (b *CandidateBuffer) queued() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
