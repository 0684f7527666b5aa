package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	pion "github.com/pion/webrtc/v4"

	"github.com/sekhar08/livekit-memory-chat/internal/signaling"
	"github.com/sekhar08/livekit-memory-chat/internal/webrtc"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum signaling message size, enough for SDP.
	maxMessageSize = 64 * 1024

	sendQueueSize = 256
	dataQueueSize = 64
)

// Participant is one websocket connection plus the server side peer
// connection carrying its data channel.
type Participant struct {
	hub  *Hub
	conn *websocket.Conn
	pc   *pion.PeerConnection
	Info signaling.ParticipantInfo

	// send carries signaling messages to writePump
	send chan *signaling.Message
	// frames carries relayed data to dataPump
	frames chan []byte

	candidates webrtc.CandidateBuffer
	peerGone   chan struct{}

	quit     chan struct{}
	quitOnce sync.Once
}

func newParticipant(hub *Hub, conn *websocket.Conn, pc *pion.PeerConnection, info signaling.ParticipantInfo) *Participant {
	return &Participant{
		hub:      hub,
		conn:     conn,
		pc:       pc,
		Info:     info,
		send:     make(chan *signaling.Message, sendQueueSize),
		frames:   make(chan []byte, dataQueueSize),
		peerGone: make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
}

func (p *Participant) info() signaling.ParticipantInfo { return p.Info }

func (p *Participant) notify(msg *signaling.Message) bool {
	select {
	case <-p.quit:
		return false
	default:
	}
	select {
	case p.send <- msg:
		return true
	default:
		return false
	}
}

func (p *Participant) deliver(frame []byte) bool {
	select {
	case <-p.quit:
		return false
	default:
	}
	select {
	case p.frames <- frame:
		return true
	default:
		return false
	}
}

func (p *Participant) close(reason string) {
	if reason != "" {
		p.notify(signaling.MustMessage(signaling.MessageTypeLeave, signaling.LeavePayload{Reason: reason}))
	}
	p.quitOnce.Do(func() {
		close(p.quit)
		go func() {
			if err := p.pc.Close(); err != nil {
				slog.Debug("close peer connection", "sid", p.Info.SID, "err", err)
			}
		}()
	})
}

// attachPeer wires the peer connection callbacks. Data channels opened by
// the participant feed the hub; relayed frames go out on the first one.
func (p *Participant) attachPeer() {
	webrtc.SetupICEHandlers(p.pc, p.sendSignal, p.peerGone)

	p.pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() != webrtc.DataChannelLabel {
			slog.Debug("ignoring data channel", "label", dc.Label(), "sid", p.Info.SID)
			return
		}
		dc.OnOpen(func() {
			slog.Debug("data channel open", "sid", p.Info.SID)
			go p.dataPump(dc)
		})
		dc.OnMessage(func(msg pion.DataChannelMessage) {
			frame, err := stampPacket(msg.Data, p.Info)
			if err != nil {
				slog.Warn("dropping malformed packet", "sid", p.Info.SID, "err", err)
				return
			}
			p.hub.Publish(p, frame)
		})
	})

	go func() {
		select {
		case <-p.peerGone:
			slog.Info("peer connection ended", "sid", p.Info.SID)
			p.conn.Close()
		case <-p.quit:
		}
	}()
}

// stampPacket rewrites the publisher fields so receivers cannot be misled
// about who sent a packet.
func stampPacket(data []byte, info signaling.ParticipantInfo) ([]byte, error) {
	pkt, err := webrtc.DecodePacket(data)
	if err != nil {
		return nil, err
	}
	pkt.Identity = info.Identity
	pkt.SID = info.SID
	return webrtc.EncodePacket(pkt)
}

func (p *Participant) sendSignal(payload *signaling.SignalPayload) error {
	msg, err := signaling.NewMessage(signaling.MessageTypeSignal, payload)
	if err != nil {
		return err
	}
	if !p.notify(msg) {
		return signaling.ErrClientClosed
	}
	return nil
}

// handleSignal answers offers and applies trickled candidates.
func (p *Participant) handleSignal(payload *signaling.SignalPayload) error {
	if payload.ICECandidate != nil {
		ice, err := webrtc.ParseICECandidate(payload)
		if err != nil {
			return err
		}
		return p.candidates.Add(p.pc, ice)
	}

	offer, err := webrtc.SessionDescription(payload)
	if err != nil {
		return err
	}
	if offer.Type != pion.SDPTypeOffer {
		return webrtc.WrapError("handle signal", webrtc.ErrUnexpectedSignal, payload.Type)
	}

	answer, err := webrtc.CreateAnswer(p.pc, offer)
	if err != nil {
		return err
	}
	if err := p.candidates.Flush(p.pc); err != nil {
		return err
	}
	return p.sendSignal(webrtc.DescriptionSignal(answer))
}

// ReadPump reads signaling messages until the connection ends, then
// unregisters the participant.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (p *Participant) ReadPump() {
	defer func() {
		p.hub.Unregister(p)
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg signaling.Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("participant read error", "sid", p.Info.SID, "err", err)
			}
			return
		}

		switch msg.Type {
		case signaling.MessageTypeSignal:
			var payload signaling.SignalPayload
			if err := msg.DecodePayload(&payload); err != nil {
				slog.Warn("invalid signal payload", "sid", p.Info.SID, "err", err)
				continue
			}
			if err := p.handleSignal(&payload); err != nil {
				slog.Warn("signal failed", "sid", p.Info.SID, "err", err)
				p.notify(signaling.MustMessage(signaling.MessageTypeError, signaling.ErrorPayload{Error: err.Error()}))
			}
		case signaling.MessageTypeLeave:
			slog.Debug("participant leaving", "sid", p.Info.SID)
			return
		default:
			slog.Debug("unknown message type", "type", msg.Type, "sid", p.Info.SID)
		}
	}
}

// WritePump writes queued signaling messages and keeps the connection alive
// with pings. On quit it flushes what is queued and closes the socket.
func (p *Participant) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case msg := <-p.send:
			if err := p.write(msg); err != nil {
				slog.Debug("write failed", "sid", p.Info.SID, "err", err)
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-p.quit:
			for {
				select {
				case msg := <-p.send:
					if err := p.write(msg); err != nil {
						return
					}
					continue
				default:
				}
				break
			}
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (p *Participant) write(msg *signaling.Message) error {
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(msg)
}

// dataPump sends relayed frames on dc until the participant quits.
func (p *Participant) dataPump(dc *pion.DataChannel) {
	for {
		select {
		case frame := <-p.frames:
			if err := dc.Send(frame); err != nil {
				slog.Debug("data send failed", "sid", p.Info.SID, "err", err)
			}
		case <-p.quit:
			return
		}
	}
}
