package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"

	"github.com/sekhar08/livekit-memory-chat/internal/signaling"
)

var ErrHubStopped = errors.New("hub stopped")

const reasonDuplicateIdentity = "duplicate identity"

// Hub owns every room and participant. All state is touched only by the
// goroutine running Run.
type Hub struct {
	// Rooms maps room names to Room instances.
	Rooms map[string]*Room

	register   chan member
	unregister chan member
	publish    chan publication
	stats      chan chan Stats
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		register:   make(chan member),
		unregister: make(chan member),
		publish:    make(chan publication),
		stats:      make(chan chan Stats),
		done:       make(chan struct{}),
	}
}

// Register adds m to its room and sends it the join message.
func (h *Hub) Register(m member) error {
	select {
	case h.register <- m:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Unregister removes m. Members that are no longer registered are ignored.
func (h *Hub) Unregister(m member) {
	select {
	case h.unregister <- m:
	case <-h.done:
	}
}

// Publish relays frame to everyone else in the sender's room.
func (h *Hub) Publish(sender member, frame []byte) {
	select {
	case h.publish <- publication{sender: sender, frame: frame}:
	case <-h.done:
	}
}

// Stats reports room and participant counts.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Run processes hub events until ctx is cancelled, then closes every member.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, room := range h.Rooms {
				for _, m := range room.Members {
					m.close("server shutting down")
				}
			}
			h.Rooms = make(map[string]*Room)
			return

		case m := <-h.register:
			h.handleRegister(m)

		case m := <-h.unregister:
			h.handleUnregister(m)

		case p := <-h.publish:
			h.handlePublish(p)

		case reply := <-h.stats:
			reply <- Stats{
				Rooms: len(h.Rooms),
				Participants: lo.SumBy(lo.Values(h.Rooms), func(r *Room) int {
					return len(r.Members)
				}),
			}
		}
	}
}

func (h *Hub) handleRegister(m member) {
	info := m.info()
	room, ok := h.Rooms[info.Room]
	if !ok {
		room = newRoom(info.Room)
		h.Rooms[info.Room] = room
		slog.Info("room created", "room", info.Room)
	}

	// one connection per identity; the newer one wins
	if old, ok := room.byIdentity(info.Identity); ok {
		slog.Info("replacing participant with duplicate identity", "room", info.Room, "identity", info.Identity, "sid", old.info().SID)
		delete(room.Members, old.info().SID)
		old.close(reasonDuplicateIdentity)
	}

	room.Members[info.SID] = m
	m.notify(signaling.MustMessage(signaling.MessageTypeJoin, info))
	slog.Info("participant joined", "room", info.Room, "identity", info.Identity, "sid", info.SID, "participants", len(room.Members))
}

func (h *Hub) handleUnregister(m member) {
	info := m.info()
	room, ok := h.Rooms[info.Room]
	if !ok {
		return
	}
	if current, ok := room.Members[info.SID]; !ok || current != m {
		return
	}

	delete(room.Members, info.SID)
	m.close("")
	slog.Info("participant left", "room", info.Room, "identity", info.Identity, "sid", info.SID)

	if len(room.Members) == 0 {
		delete(h.Rooms, room.Name)
		slog.Info("room deleted", "room", room.Name)
	}
}

func (h *Hub) handlePublish(p publication) {
	info := p.sender.info()
	room, ok := h.Rooms[info.Room]
	if !ok {
		return
	}
	if current, ok := room.Members[info.SID]; !ok || current != p.sender {
		slog.Debug("dropping data from unregistered participant", "sid", info.SID)
		return
	}

	for _, target := range room.others(info.SID) {
		if !target.deliver(p.frame) {
			slog.Warn("data queue full, dropping packet", "room", info.Room, "to", target.info().SID)
		}
	}
}
