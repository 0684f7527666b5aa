package signaling

import "log/slog"

// Handler routes incoming signaling messages to appropriate channels.
type Handler struct {
	client *Client
	Joined chan *ParticipantInfo
	Signal chan *SignalPayload
	Left   chan *LeavePayload
	Error  chan string

	// Closed is closed once the connection's incoming stream ends.
	Closed chan struct{}
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client: client,
		Joined: make(chan *ParticipantInfo, 1),
		Signal: make(chan *SignalPayload, 32),
		Left:   make(chan *LeavePayload, 1),
		Error:  make(chan string, 1),
		Closed: make(chan struct{}),
	}
}

// Start begins listening to incoming messages and routing them. It returns
// when the client's incoming channel is closed.
func (h *Handler) Start() {
	defer close(h.Closed)

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case MessageTypeJoin:
			h.handleJoin(msg)

		case MessageTypeSignal:
			h.handleSignal(msg)

		case MessageTypeLeave:
			h.handleLeave(msg)

		case MessageTypeError:
			h.handleError(msg)

		default:
			slog.Debug("ignoring signaling message", "type", msg.Type)
		}
	}
}

func (h *Handler) handleJoin(msg *Message) {
	var info ParticipantInfo
	if err := msg.DecodePayload(&info); err != nil {
		h.sendError("Failed to parse join payload")
		return
	}

	select {
	case h.Joined <- &info:
	default:
		slog.Warn("duplicate join message dropped", "sid", info.SID)
	}
}

// handleSignal parses the WebRTC signaling payload and sends it.
func (h *Handler) handleSignal(msg *Message) {
	var payload SignalPayload
	if err := msg.DecodePayload(&payload); err != nil {
		h.sendError("Failed to parse signal payload")
		return
	}

	select {
	case h.Signal <- &payload:
	default:
		slog.Warn("signal message dropped, no reader")
	}
}

func (h *Handler) handleLeave(msg *Message) {
	var payload LeavePayload
	_ = msg.DecodePayload(&payload)

	select {
	case h.Left <- &payload:
	default:
	}
}

// handleError parses the error message and sends it through the Error channel.
func (h *Handler) handleError(msg *Message) {
	var errPayload ErrorPayload
	if err := msg.DecodePayload(&errPayload); err != nil || errPayload.Error == "" {
		h.sendError("Unknown error from server")
		return
	}

	h.sendError(errPayload.Error)
}

func (h *Handler) sendError(text string) {
	select {
	case h.Error <- text:
	default:
		slog.Warn("signaling error dropped", "error", text)
	}
}
