package signaling

import "encoding/json"

// Message is the envelope for every websocket frame between a participant
// and the room service.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants.
const (
	// server -> client: sent once the access token is accepted
	MessageTypeJoin = "join"

	// both ways: SDP offer/answer or ICE candidate
	MessageTypeSignal = "signal"

	// client -> server: participant is leaving; server -> client: participant was removed
	MessageTypeLeave = "leave"

	// server -> client
	MessageTypeError = "error"
)

// ParticipantInfo describes the local participant as seen by the room service.
type ParticipantInfo struct {
	SID      string `json:"sid"`
	Identity string `json:"identity"`
	Room     string `json:"room"`
}

// SignalPayload represents the WebRTC signaling data (SDP offer/answer or ICE candidate).
type SignalPayload struct {
	Type         string `json:"type,omitempty"`
	SDP          string `json:"sdp,omitempty"`
	ICECandidate any    `json:"ice_candidate,omitempty"`
}

// LeavePayload carries the reason a participant was removed.
type LeavePayload struct {
	Reason string `json:"reason,omitempty"`
}

// ErrorPayload represents error messages from server.
type ErrorPayload struct {
	Error string `json:"error"`
}

// NewMessage builds a message with a JSON-encoded payload.
func NewMessage(t string, payload any) (*Message, error) {
	if payload == nil {
		return &Message{Type: t}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: t, Payload: b}, nil
}

// MustMessage is NewMessage for payloads that always encode.
func MustMessage(t string, payload any) *Message {
	msg, err := NewMessage(t, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// DecodePayload decodes the message payload into v.
func (m *Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
