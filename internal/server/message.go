package server

import "github.com/sekhar08/livekit-memory-chat/internal/signaling"

// member is the hub's view of a connected participant. All methods except
// info are called from the hub goroutine only.
type member interface {
	info() signaling.ParticipantInfo

	// notify queues a signaling message; false when the queue is full or
	// the member is closed.
	notify(msg *signaling.Message) bool

	// deliver queues a data channel frame; false when it was dropped.
	deliver(frame []byte) bool

	// close ends the member's pumps. A non-empty reason is sent as a leave
	// message first.
	close(reason string)
}

// publication is a stamped data packet published by sender.
type publication struct {
	sender member
	frame  []byte
}

// Stats summarises the hub for the health endpoint.
type Stats struct {
	Rooms        int `json:"rooms"`
	Participants int `json:"participants"`
}
