package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/sekhar08/livekit-memory-chat/internal/ai"
	"github.com/sekhar08/livekit-memory-chat/internal/chat"
	"github.com/sekhar08/livekit-memory-chat/internal/memory"
	"github.com/sekhar08/livekit-memory-chat/internal/session"
)

const (
	// FallbackReply is published when the model cannot answer.
	FallbackReply = "Sorry, I could not produce a response."

	RoleUser      = "user"
	RoleAssistant = "assistant"

	queueSize             = 32
	defaultReplyTimeout   = 30 * time.Second
	defaultConnectTimeout = 30 * time.Second
	defaultMemoryLimit    = 5
)

var ErrSessionEnded = errors.New("agent session ended")

// Config for one agent run.
type Config struct {
	ServerURL  string
	Credential string

	// MemoryLimit caps how many memories go into a prompt.
	MemoryLimit    int
	ReplyTimeout   time.Duration
	ConnectTimeout time.Duration
}

// Agent sits in a room and answers every message, personalised with what
// it remembers about the sender.
type Agent struct {
	connector session.Connector
	memory    memory.IStore
	model     ai.AI
	cfg       Config

	jobs chan session.Arrival
}

func New(connector session.Connector, store memory.IStore, model ai.AI, cfg Config) *Agent {
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = defaultMemoryLimit
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = defaultReplyTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	return &Agent{
		connector: connector,
		memory:    store,
		model:     model,
		cfg:       cfg,
		jobs:      make(chan session.Arrival, queueSize),
	}
}

// Run joins the room and answers messages one at a time until ctx is
// cancelled or the session ends.
func (a *Agent) Run(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
	sess, err := a.connector.Connect(connectCtx, a.cfg.ServerURL, a.cfg.Credential, a.enqueue)
	cancel()
	if err != nil {
		return fmt.Errorf("agent join: %w", err)
	}
	defer sess.Close()

	info := sess.Info()
	slog.Info("agent joined", "room", info.Room, "identity", info.Identity, "sid", info.SID)

	for {
		select {
		case arr := <-a.jobs:
			if err := a.Respond(ctx, sess, arr); err != nil {
				slog.Warn("reply failed", "to", chat.SenderName(arr), "err", err)
			}
		case <-sess.Done():
			return ErrSessionEnded
		case <-ctx.Done():
			slog.Info("agent shutting down")
			return nil
		}
	}
}

// enqueue runs on transport goroutines and must not block them.
func (a *Agent) enqueue(arr session.Arrival) {
	select {
	case a.jobs <- arr:
	default:
		slog.Warn("agent busy, dropping message", "from", chat.SenderName(arr))
	}
}

// Respond answers one message: recall, complete, remember, publish.
// Memory and model failures degrade the reply; only a failed publish is
// returned.
func (a *Agent) Respond(ctx context.Context, sess session.Session, arr session.Arrival) error {
	text := strings.TrimSpace(arr.Text)
	if text == "" {
		return nil
	}
	userID := chat.SenderName(arr)
	slog.Info("message received", "from", userID, "chars", len(text))

	ctx, cancel := context.WithTimeout(ctx, a.cfg.ReplyTimeout)
	defer cancel()

	memories, err := a.memory.Search(ctx, userID, text, a.cfg.MemoryLimit)
	if err != nil {
		slog.Warn("memory search failed", "user", userID, "err", err)
		memories = nil
	}

	reply, err := a.model.GetReply(ctx, []ai.Message{{Role: RoleUser, Text: BuildPrompt(userID, text, memories)}})
	if err != nil || strings.TrimSpace(reply) == "" {
		slog.Error("model call failed", "user", userID, "err", err)
		reply = FallbackReply
	}

	if err := a.memory.Add(ctx, userID, []memory.Turn{
		{Role: RoleUser, Content: text},
		{Role: RoleAssistant, Content: reply},
	}); err != nil {
		slog.Warn("memory add failed", "user", userID, "err", err)
	}

	if err := sess.Send(ctx, reply); err != nil {
		return err
	}
	slog.Debug("replied", "to", userID, "chars", len(reply))
	return nil
}

// BuildPrompt renders the single prompt sent to the model.
func BuildPrompt(userID, text string, memories []memory.Memory) string {
	var recalled string
	if len(memories) > 0 {
		lines := lo.Map(memories, func(m memory.Memory, _ int) string { return m.Content })
		recalled = "Memory:\n" + strings.Join(lines, "\n") + "\n---\n"
	}
	return fmt.Sprintf("You are a helpful assistant that personalizes replies using short memory.\n%s\nUser (%s): %s\nAssistant:",
		recalled, userID, text)
}
