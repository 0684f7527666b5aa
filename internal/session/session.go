//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session.go -package=mocks

package session

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/sekhar08/livekit-memory-chat/internal/signaling"
	"github.com/sekhar08/livekit-memory-chat/internal/webrtc"
)

// Arrival is one inbound text message.
type Arrival struct {
	// Identity of the publisher, empty when the room service did not report one
	Identity string
	// SID is the publisher's participant id, empty when unknown
	SID  string
	Text string
}

// DataHandler receives arrivals. It is called from transport goroutines.
type DataHandler func(Arrival)

// Session is an established connection to one room.
type Session interface {
	// Send publishes text to every other participant in the room.
	Send(ctx context.Context, text string) error
	// Close leaves the room and releases the transport. Idempotent.
	Close() error
	// Done is closed when the session ends for any reason.
	Done() <-chan struct{}
	// Info describes the local participant.
	Info() signaling.ParticipantInfo
}

// Connector opens sessions.
type Connector interface {
	Connect(ctx context.Context, serverURL, credential string, onData DataHandler) (Session, error)
}

// DecodeArrival turns a data channel message into an Arrival. Packets that
// are not user data yield ok=false and no error.
func DecodeArrival(data []byte) (a Arrival, ok bool, err error) {
	p, err := webrtc.DecodePacket(data)
	if err != nil {
		return Arrival{}, false, &DecodeError{Op: "decode packet", Err: err}
	}
	if p.Kind != webrtc.PacketKindUser {
		return Arrival{}, false, nil
	}
	if !utf8.Valid(p.Payload) {
		return Arrival{}, false, &DecodeError{Op: "decode text", Err: ErrInvalidUTF8, Details: p.Identity}
	}
	return Arrival{Identity: p.Identity, SID: p.SID, Text: string(p.Payload)}, true, nil
}

// EncodeText wraps text for publishing.
func EncodeText(text string) ([]byte, error) {
	return webrtc.EncodePacket(webrtc.NewUserPacket([]byte(text)))
}

// dispatch decodes one message and hands it to onData; failures are logged
// and dropped.
func dispatch(data []byte, onData DataHandler) {
	a, ok, err := DecodeArrival(data)
	if err != nil {
		slog.Warn("dropping inbound payload", "err", err, "bytes", len(data))
		return
	}
	if !ok {
		slog.Debug("ignoring non-user packet", "bytes", len(data))
		return
	}
	if onData != nil {
		onData(a)
	}
}
