package webrtc

import "github.com/vmihailenco/msgpack/v5"

// DataPacket is the data channel envelope. Participants fill Kind and
// Payload; the room service stamps Identity and SID of the publisher before
// relaying. Payload is opaque to the transport.
type DataPacket struct {
	Kind     string `msgpack:"kind"`
	Identity string `msgpack:"identity,omitempty"`
	SID      string `msgpack:"sid,omitempty"`
	Payload  []byte `msgpack:"payload"`
}

// NewUserPacket wraps an application payload for publishing.
func NewUserPacket(payload []byte) DataPacket {
	return DataPacket{Kind: PacketKindUser, Payload: payload}
}

// EncodePacket serialises a packet for the data channel.
func EncodePacket(p DataPacket) ([]byte, error) {
	return msgpack.Marshal(&p)
}

// DecodePacket parses a data channel message.
func DecodePacket(data []byte) (DataPacket, error) {
	var p DataPacket
	if len(data) == 0 {
		return p, ErrEmptyPacket
	}
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return DataPacket{}, err
	}
	return p, nil
}
