package webrtc

const (
	// DataChannelLabel names the ordered, reliable channel chat packets use.
	DataChannelLabel = "_reliable"

	// PacketKindUser marks application payloads published by participants.
	PacketKindUser = "user"
)
