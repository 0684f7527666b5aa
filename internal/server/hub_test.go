package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sekhar08/livekit-memory-chat/internal/signaling"
	"github.com/sekhar08/livekit-memory-chat/internal/webrtc"
)

type fakeMember struct {
	id signaling.ParticipantInfo

	mu       sync.Mutex
	messages []*signaling.Message
	frames   [][]byte
	closed   bool
	reason   string
}

func newFakeMember(sid, identity, room string) *fakeMember {
	return &fakeMember{id: signaling.ParticipantInfo{SID: sid, Identity: identity, Room: room}}
}

func (f *fakeMember) info() signaling.ParticipantInfo { return f.id }

func (f *fakeMember) notify(msg *signaling.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return true
}

func (f *fakeMember) deliver(frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return true
}

func (f *fakeMember) close(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.reason = reason
}

func (f *fakeMember) snapshot() (msgs []*signaling.Message, frames [][]byte, closed bool, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*signaling.Message(nil), f.messages...), append([][]byte(nil), f.frames...), f.closed, f.reason
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

// settle waits until the hub has handled every earlier event.
func settle(t *testing.T, h *Hub) Stats {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := h.Stats(ctx)
	require.NoError(t, err)
	return s
}

func TestHub_RegisterSendsJoin(t *testing.T) {
	req := require.New(t)
	h := startHub(t)
	a := newFakeMember("PA_a", "alice", "lobby")

	req.NoError(h.Register(a))
	req.Equal(Stats{Rooms: 1, Participants: 1}, settle(t, h))

	msgs, _, _, _ := a.snapshot()
	req.Len(msgs, 1)
	req.Equal(signaling.MessageTypeJoin, msgs[0].Type)
	var info signaling.ParticipantInfo
	req.NoError(msgs[0].DecodePayload(&info))
	req.Equal(a.id, info)
}

func TestHub_PublishRelaysToOthersInRoom(t *testing.T) {
	req := require.New(t)
	h := startHub(t)
	a := newFakeMember("PA_a", "alice", "lobby")
	b := newFakeMember("PA_b", "bob", "lobby")
	c := newFakeMember("PA_c", "carol", "other")
	for _, m := range []*fakeMember{a, b, c} {
		req.NoError(h.Register(m))
	}

	frame, err := stampPacket(mustPacket(t, "hi"), a.id)
	req.NoError(err)
	h.Publish(a, frame)
	settle(t, h)

	_, aFrames, _, _ := a.snapshot()
	_, bFrames, _, _ := b.snapshot()
	_, cFrames, _, _ := c.snapshot()
	req.Empty(aFrames)
	req.Empty(cFrames)
	req.Len(bFrames, 1)

	pkt, err := webrtc.DecodePacket(bFrames[0])
	req.NoError(err)
	req.Equal("alice", pkt.Identity)
	req.Equal("PA_a", pkt.SID)
	req.Equal([]byte("hi"), pkt.Payload)
}

func TestHub_UnregisterDeletesEmptyRoom(t *testing.T) {
	req := require.New(t)
	h := startHub(t)
	a := newFakeMember("PA_a", "alice", "lobby")
	b := newFakeMember("PA_b", "bob", "lobby")
	req.NoError(h.Register(a))
	req.NoError(h.Register(b))

	h.Unregister(a)
	req.Equal(Stats{Rooms: 1, Participants: 1}, settle(t, h))
	_, _, closed, reason := a.snapshot()
	req.True(closed)
	req.Empty(reason)

	// publishing after leaving is dropped
	h.Publish(a, []byte("x"))
	settle(t, h)
	_, bFrames, _, _ := b.snapshot()
	req.Empty(bFrames)

	h.Unregister(b)
	req.Equal(Stats{}, settle(t, h))

	// unknown members are ignored
	h.Unregister(newFakeMember("PA_z", "zed", "nowhere"))
	req.Equal(Stats{}, settle(t, h))
}

func TestHub_DuplicateIdentityReplacesOlder(t *testing.T) {
	req := require.New(t)
	h := startHub(t)
	old := newFakeMember("PA_1", "alice", "lobby")
	fresh := newFakeMember("PA_2", "alice", "lobby")
	req.NoError(h.Register(old))
	req.NoError(h.Register(fresh))
	req.Equal(Stats{Rooms: 1, Participants: 1}, settle(t, h))

	_, _, closed, reason := old.snapshot()
	req.True(closed)
	req.Equal(reasonDuplicateIdentity, reason)

	// the replaced member's late unregister does not remove the new one
	h.Unregister(old)
	req.Equal(Stats{Rooms: 1, Participants: 1}, settle(t, h))
}

func TestHub_ShutdownClosesMembers(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	a := newFakeMember("PA_a", "alice", "lobby")
	req.NoError(h.Register(a))
	cancel()
	<-stopped

	_, _, closed, _ := a.snapshot()
	req.True(closed)
	req.ErrorIs(h.Register(a), ErrHubStopped)
	_, err := h.Stats(context.Background())
	req.ErrorIs(err, ErrHubStopped)
}

func mustPacket(t *testing.T, text string) []byte {
	t.Helper()
	data, err := webrtc.EncodePacket(webrtc.NewUserPacket([]byte(text)))
	require.NoError(t, err)
	return data
}

func TestStampPacket(t *testing.T) {
	req := require.New(t)
	forged, err := webrtc.EncodePacket(webrtc.DataPacket{Kind: webrtc.PacketKindUser, Identity: "mallory", Payload: []byte("x")})
	req.NoError(err)

	out, err := stampPacket(forged, signaling.ParticipantInfo{SID: "PA_a", Identity: "alice"})
	req.NoError(err)
	pkt, err := webrtc.DecodePacket(out)
	req.NoError(err)
	req.Equal("alice", pkt.Identity)
	req.Equal("PA_a", pkt.SID)

	_, err = stampPacket(nil, signaling.ParticipantInfo{})
	req.ErrorIs(err, webrtc.ErrEmptyPacket)
}
