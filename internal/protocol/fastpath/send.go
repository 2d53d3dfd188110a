package fastpath

import (
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/encoding"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
)

// InputEventPDU is an outbound fast-path input event packet
// (MS-RDPBCGR 2.2.8.1.2).
type InputEventPDU struct {
	Action    uint8
	NumEvents uint8
	Flags     uint8
	EventData []byte
}

// NewInputEventPDU returns a plaintext single-event input PDU.
func NewInputEventPDU(eventData []byte) *InputEventPDU {
	return &InputEventPDU{
		NumEvents: 1,
		EventData: eventData,
	}
}

// Serialize encodes the PDU to wire format. The declared length covers the
// header and length field themselves.
func (p *InputEventPDU) Serialize() []byte {
	s := stream.New(3 + len(p.EventData))

	s.WriteUint8(p.Action | p.NumEvents<<2 | p.Flags<<6)

	length := 1 + 1 + len(p.EventData)
	if length > 0x7F {
		length++ // two-byte length form
	}

	encoding.PerWriteLength(uint16(length), s) // #nosec G115 -- input events are far below 64K
	s.WriteBytes(p.EventData)

	return s.Bytes()
}
