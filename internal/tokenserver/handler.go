package tokenserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sekhar08/livekit-memory-chat/internal/auth"
	"github.com/sekhar08/livekit-memory-chat/internal/config"
)

const missingCredentials = "Missing LIVEKIT_API_KEY or LIVEKIT_API_SECRET"

type Handler struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
	validate  *validator.Validate
}

func NewHandler(apiKey, apiSecret string, ttl time.Duration) *Handler {
	return &Handler{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		ttl:       ttl,
		validate:  validator.New(),
	}
}

type tokenRequest struct {
	Identity string `validate:"required,max=128"`
	Room     string `validate:"required,max=128"`
}

type tokenResponse struct {
	Identity string `json:"identity"`
	Room     string `json:"room"`
	Token    string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleToken issues a room join token for ?identity=&room= (room defaults
// to "default").
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" || h.apiSecret == "" {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: missingCredentials})
		return
	}

	q := r.URL.Query()
	in := tokenRequest{
		Identity: q.Get("identity"),
		Room:     q.Get("room"),
	}
	if in.Room == "" {
		in.Room = config.DefaultRoom
	}

	if err := h.validate.Struct(in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "identity and room must be 1-128 characters"})
		return
	}

	token, err := auth.NewAccessToken(h.apiKey, h.apiSecret).
		SetIdentity(in.Identity).
		SetValidFor(h.ttl).
		AddGrant(&auth.VideoGrant{RoomJoin: true, Room: in.Room}).
		ToJWT()
	if err != nil {
		slog.Error("sign token", "identity", in.Identity, "room", in.Room, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not sign token"})
		return
	}

	slog.Info("token issued", "identity", in.Identity, "room", in.Room)
	writeJSON(w, http.StatusOK, tokenResponse{Identity: in.Identity, Room: in.Room, Token: token})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Token server is healthy."))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "err", err)
	}
}
