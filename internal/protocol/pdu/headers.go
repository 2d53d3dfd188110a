package pdu

import (
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
)

// Header space reserved by the send path before the payload is written. The
// packet header covers TPKT, the X.224 data TPDU, and the MCS send-data
// header; the share headers follow the optional security header.
const (
	PacketHeaderMaxLength    = 15
	SecurityHeaderLength     = 4
	ShareControlHeaderLength = 6
	ShareDataHeaderLength    = 12
)

// ReadSecurityHeader reads the basic security header flag field and skips the
// reserved flagsHi field. The caller guarantees four bytes are available.
func ReadSecurityHeader(s *stream.Stream) (SecurityFlag, error) {
	flags, err := s.ReadUint16()
	if err != nil {
		return 0, err
	}

	if err = s.Skip(2); err != nil { // flagsHi (unused)
		return 0, err
	}

	return SecurityFlag(flags), nil
}

// WriteSecurityHeader writes the basic security header.
func WriteSecurityHeader(s *stream.Stream, flags SecurityFlag) {
	s.WriteUint16(uint16(flags))
	s.WriteUint16(0) // flagsHi (unused)
}

// ShareControlHeader is the decoded TS_SHARECONTROLHEADER.
type ShareControlHeader struct {
	TotalLength uint16
	PDUType     Type
	PDUSource   uint16
}

// ReadShareControlHeader decodes a share control header. The declared total
// length is validated against the bytes remaining in the buffer. Windows XP
// can send DEACTIVATE_ALL PDUs short enough to omit the source channel id, in
// which case it decodes as zero.
func ReadShareControlHeader(s *stream.Stream) (*ShareControlHeader, error) {
	header := &ShareControlHeader{}

	var err error

	header.TotalLength, err = s.ReadUint16()
	if err != nil {
		return nil, err
	}

	if int(header.TotalLength)-2 > s.Left() {
		return nil, stream.ErrTruncated
	}

	pduType, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}

	header.PDUType = Type(pduType & 0x0F) // type is in the 4 least significant bits

	if header.TotalLength > 4 {
		header.PDUSource, err = s.ReadUint16()
		if err != nil {
			return nil, err
		}
	}

	return header, nil
}

// WriteShareControlHeader encodes a share control header. The length given is
// the whole packet length; the packet header bytes that precede the share
// control header are excluded from the declared total.
func WriteShareControlHeader(s *stream.Stream, length uint16, pduType Type, channelID uint16) {
	length -= PacketHeaderMaxLength

	s.WriteUint16(length)                 // totalLength
	s.WriteUint16(uint16(pduType) | 0x10) // pduType, version 1 in the high nibble
	s.WriteUint16(channelID)              // pduSource
}

// ShareDataHeader is the decoded TS_SHAREDATAHEADER, excluding the enclosing
// share control header.
type ShareDataHeader struct {
	ShareID            uint32
	UncompressedLength uint16
	PDUType2           Type2
	CompressedType     uint8
	CompressedLength   uint16
}

// ReadShareDataHeader decodes the fixed 12-byte share data header.
func ReadShareDataHeader(s *stream.Stream) (*ShareDataHeader, error) {
	if s.Left() < ShareDataHeaderLength {
		return nil, stream.ErrTruncated
	}

	header := &ShareDataHeader{}

	header.ShareID, _ = s.ReadUint32()
	_ = s.Skip(1) // pad1
	_ = s.Skip(1) // streamId
	header.UncompressedLength, _ = s.ReadUint16()

	pduType2, _ := s.ReadUint8()
	header.PDUType2 = Type2(pduType2)

	header.CompressedType, _ = s.ReadUint8()
	header.CompressedLength, _ = s.ReadUint16()

	return header, nil
}

// WriteShareDataHeader encodes a share data header for uncompressed output.
// The length given is the whole packet length; every header that precedes the
// payload is excluded from the declared uncompressed length.
func WriteShareDataHeader(s *stream.Stream, length uint16, pduType2 Type2, shareID uint32) {
	length -= PacketHeaderMaxLength
	length -= ShareControlHeaderLength
	length -= ShareDataHeaderLength

	s.WriteUint32(shareID)
	s.WriteUint8(0) // pad1
	s.WriteUint8(StreamLow)
	s.WriteUint16(length) // uncompressedLength
	s.WriteUint8(uint8(pduType2))
	s.WriteUint8(0)  // compressedType: this codec never emits compressed output
	s.WriteUint16(0) // compressedLength
}
