package webrtc

import (
	"testing"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"

	"github.com/sekhar08/livekit-memory-chat/internal/signaling"
)

func TestPacket_EncodeDecode(t *testing.T) {
	req := require.New(t)

	p := NewUserPacket([]byte("hi"))
	p.Identity = "peer1"
	p.SID = "PA_1"

	data, err := EncodePacket(p)
	req.NoError(err)

	got, err := DecodePacket(data)
	req.NoError(err)
	req.Equal(PacketKindUser, got.Kind)
	req.Equal("peer1", got.Identity)
	req.Equal("PA_1", got.SID)
	req.Equal([]byte("hi"), got.Payload)
}

func TestDecodePacket_Rejects(t *testing.T) {
	_, err := DecodePacket(nil)
	require.ErrorIs(t, err, ErrEmptyPacket)

	_, err = DecodePacket([]byte{0xc1})
	require.Error(t, err)
}

func TestSessionDescription(t *testing.T) {
	req := require.New(t)

	desc, err := SessionDescription(&signaling.SignalPayload{Type: "answer", SDP: "v=0"})
	req.NoError(err)
	req.Equal(pion.SDPTypeAnswer, desc.Type)

	_, err = SessionDescription(&signaling.SignalPayload{Type: "pranswer", SDP: "v=0"})
	req.ErrorIs(err, ErrUnexpectedSignal)

	sig := DescriptionSignal(&pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: "v=0"})
	req.Equal("offer", sig.Type)
	req.Equal("v=0", sig.SDP)
}

func TestParseICECandidate(t *testing.T) {
	req := require.New(t)
	mid := "0"

	// as it arrives after a JSON round trip through the signaling server
	payload := &signaling.SignalPayload{ICECandidate: map[string]any{
		"candidate": "candidate:1 1 udp 2130706431 127.0.0.1 50000 typ host",
		"sdpMid":    mid,
	}}
	ice, err := ParseICECandidate(payload)
	req.NoError(err)
	req.Contains(ice.Candidate, "typ host")
	req.Equal(&mid, ice.SDPMid)
}

func TestCandidateBuffer_QueuesUntilRemoteDescription(t *testing.T) {
	req := require.New(t)

	pc, err := NewPeerConnection(ICEConfig{})
	req.NoError(err)
	defer pc.Close()

	var buf CandidateBuffer
	req.NoError(buf.Add(pc, pion.ICECandidateInit{Candidate: "candidate:1 1 udp 2130706431 127.0.0.1 50000 typ host"}))
	req.Equal(1, buf.queued())
}
