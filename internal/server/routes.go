package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sekhar08/livekit-memory-chat/internal/auth"
	"github.com/sekhar08/livekit-memory-chat/internal/signaling"
	"github.com/sekhar08/livekit-memory-chat/internal/webrtc"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// participants authenticate with the access token, not the origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes the hub over HTTP.
type Server struct {
	hub      *Hub
	verifier *auth.Verifier
	ice      webrtc.ICEConfig
}

func New(hub *Hub, verifier *auth.Verifier, ice webrtc.ICEConfig) *Server {
	return &Server{hub: hub, verifier: verifier, ice: ice}
}

// Routes returns the room service router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get(signaling.RTCPath, s.ServeRTC)
	r.Get("/health", s.HandleHealth)
	return r
}

// NewParticipantSID returns a fresh participant id.
func NewParticipantSID() string {
	return "PA_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ServeRTC authenticates the access token, upgrades to a websocket and
// starts the participant's pumps.
func (s *Server) ServeRTC(w http.ResponseWriter, r *http.Request) {
	claims, err := s.verifier.Verify(r.URL.Query().Get("access_token"))
	if err != nil {
		slog.Info("rejected participant", "remote", r.RemoteAddr, "err", err)
		writeJSON(w, http.StatusUnauthorized, signaling.ErrorPayload{Error: err.Error()})
		return
	}

	pc, err := webrtc.NewPeerConnection(s.ice)
	if err != nil {
		slog.Error("peer connection setup failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, signaling.ErrorPayload{Error: "peer connection unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade connection", "remote", r.RemoteAddr, "err", err)
		pc.Close()
		return
	}

	p := newParticipant(s.hub, conn, pc, signaling.ParticipantInfo{
		SID:      NewParticipantSID(),
		Identity: claims.Identity(),
		Room:     claims.Video.Room,
	})
	p.attachPeer()

	go p.WritePump()
	if err := s.hub.Register(p); err != nil {
		p.close("")
		return
	}
	go p.ReadPump()
}

// HandleHealth reports liveness plus room and participant counts.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.hub.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		Stats
	}{Status: "ok", Stats: stats})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "err", err)
	}
}
