package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/sekhar08/livekit-memory-chat/internal/signaling"
	"github.com/sekhar08/livekit-memory-chat/internal/webrtc"
)

// RTCConnector joins rooms through the websocket signaling endpoint and
// exchanges data over a WebRTC data channel.
type RTCConnector struct {
	ICE webrtc.ICEConfig
}

func NewRTCConnector(ice webrtc.ICEConfig) *RTCConnector {
	return &RTCConnector{ICE: ice}
}

type rtcSession struct {
	client  *signaling.Client
	handler *signaling.Handler
	pc      *pion.PeerConnection
	dc      *pion.DataChannel
	info    signaling.ParticipantInfo
	onData  DataHandler

	candidates webrtc.CandidateBuffer
	opened     chan struct{}
	peerGone   chan struct{}
	lost       chan struct{}
	failed     chan error

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	openOnce  sync.Once
}

// Connect establishes a session. The returned error is a *ConnectionError.
// ctx bounds the whole handshake.
func (c *RTCConnector) Connect(ctx context.Context, serverURL, credential string, onData DataHandler) (Session, error) {
	if serverURL == "" {
		return nil, connectionError("connect", ErrEmptyServerURL)
	}

	client := signaling.NewClient(serverURL)
	if err := client.Connect(ctx, credential); err != nil {
		return nil, connectionError("connect to server", err)
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	s := &rtcSession{
		client:   client,
		handler:  handler,
		onData:   onData,
		opened:   make(chan struct{}),
		peerGone: make(chan struct{}, 1),
		lost:     make(chan struct{}),
		failed:   make(chan error, 1),
		done:     make(chan struct{}),
	}

	if err := s.awaitJoin(ctx); err != nil {
		s.Close()
		return nil, err
	}

	if err := s.negotiate(ctx, c.ICE); err != nil {
		s.Close()
		return nil, err
	}

	go s.monitor()

	slog.Info("session established", "room", s.info.Room, "identity", s.info.Identity, "sid", s.info.SID)
	return s, nil
}

// awaitJoin waits for the room service to accept the token.
func (s *rtcSession) awaitJoin(ctx context.Context) error {
	select {
	case info := <-s.handler.Joined:
		s.info = *info
		return nil
	case errMsg := <-s.handler.Error:
		return wrapConnectionError("join room", ErrRejected, errMsg)
	case <-s.handler.Closed:
		return connectionError("join room", webrtc.ErrPeerDisconnected)
	case <-ctx.Done():
		return wrapConnectionError("join room", webrtc.ErrTimeout, ctx.Err().Error())
	}
}

func (s *rtcSession) negotiate(ctx context.Context, ice webrtc.ICEConfig) error {
	pc, err := webrtc.NewPeerConnection(ice)
	if err != nil {
		return connectionError("negotiate", err)
	}
	s.pc = pc

	dc, err := webrtc.CreateDataChannel(pc, webrtc.DataChannelLabel)
	if err != nil {
		return connectionError("negotiate", err)
	}
	s.dc = dc

	dc.OnOpen(func() {
		s.openOnce.Do(func() { close(s.opened) })
	})
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		dispatch(msg.Data, s.onData)
	})

	webrtc.SetupICEHandlers(pc, s.sendSignal, s.peerGone)
	go func() {
		select {
		case <-s.peerGone:
			close(s.lost)
		case <-s.done:
		}
	}()

	go s.listenForSignals()

	offer, err := webrtc.CreateOffer(pc)
	if err != nil {
		return connectionError("negotiate", err)
	}
	if err := s.sendSignal(webrtc.DescriptionSignal(offer)); err != nil {
		return connectionError("send offer", err)
	}

	if err := s.waitOpen(ctx); err != nil {
		return connectionError("open data channel", err)
	}
	return nil
}

func (s *rtcSession) waitOpen(ctx context.Context) error {
	select {
	case <-s.opened:
		return nil
	case err := <-s.failed:
		return err
	case <-s.lost:
		return webrtc.ErrPeerDisconnected
	case <-s.handler.Closed:
		return webrtc.ErrPeerDisconnected
	case <-ctx.Done():
		return webrtc.WrapError("wait data channel", webrtc.ErrTimeout, ctx.Err().Error())
	}
}

func (s *rtcSession) sendSignal(payload *signaling.SignalPayload) error {
	msg, err := signaling.NewMessage(signaling.MessageTypeSignal, payload)
	if err != nil {
		return err
	}
	return s.client.SendMessage(msg)
}

// listenForSignals applies the answer and remote candidates, and watches
// for server-side rejection while the session lives.
func (s *rtcSession) listenForSignals() {
	for {
		select {
		case payload := <-s.handler.Signal:
			if err := s.handleSignal(payload); err != nil {
				slog.Warn("signal handling failed", "err", err)
				s.fail(err)
			}

		case errMsg := <-s.handler.Error:
			s.fail(wrapConnectionError("room service", ErrRejected, errMsg))

		case leave := <-s.handler.Left:
			slog.Info("removed from room", "reason", leave.Reason)
			s.fail(wrapConnectionError("room service", ErrSessionClosed, leave.Reason))

		case <-s.handler.Closed:
			return

		case <-s.done:
			return
		}
	}
}

func (s *rtcSession) handleSignal(payload *signaling.SignalPayload) error {
	if payload.SDP != "" {
		desc, err := webrtc.SessionDescription(payload)
		if err != nil {
			return err
		}
		if desc.Type != pion.SDPTypeAnswer {
			return webrtc.WrapError("handle signal", webrtc.ErrUnexpectedSignal, payload.Type)
		}
		if err := s.pc.SetRemoteDescription(*desc); err != nil {
			return webrtc.NewError("set remote description", err)
		}
		if err := s.candidates.Flush(s.pc); err != nil {
			return err
		}
	}

	if payload.ICECandidate != nil {
		ice, err := webrtc.ParseICECandidate(payload)
		if err != nil {
			return err
		}
		return s.candidates.Add(s.pc, ice)
	}
	return nil
}

// fail reports an error to a pending handshake, or ends an established session.
func (s *rtcSession) fail(err error) {
	select {
	case s.failed <- err:
	default:
	}
	select {
	case <-s.opened:
		s.markDone()
	default:
	}
}

// monitor ends the session when the transport drops.
func (s *rtcSession) monitor() {
	select {
	case <-s.lost:
		slog.Warn("peer connection lost", "sid", s.info.SID)
	case <-s.handler.Closed:
		slog.Warn("signaling connection lost", "sid", s.info.SID)
	case <-s.done:
		return
	}
	s.markDone()
}

func (s *rtcSession) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *rtcSession) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return sendError("send", err)
	}

	select {
	case <-s.done:
		return sendError("send", ErrSessionClosed)
	default:
	}

	if s.dc == nil || s.dc.ReadyState() != pion.DataChannelStateOpen {
		return sendError("send", webrtc.ErrChannelNotOpen)
	}

	data, err := EncodeText(text)
	if err != nil {
		return sendError("encode", err)
	}
	if err := s.dc.Send(data); err != nil {
		return sendError("publish", err)
	}
	return nil
}

func (s *rtcSession) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		if leave, err := signaling.NewMessage(signaling.MessageTypeLeave, nil); err == nil {
			_ = s.client.SendMessage(leave)
		}
		if s.pc != nil {
			if err := s.pc.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.client.Close()
		s.markDone()
	})
	return errors.Join(errs...)
}

func (s *rtcSession) Done() <-chan struct{} {
	return s.done
}

func (s *rtcSession) Info() signaling.ParticipantInfo {
	return s.info
}
