// Package tpkt implements the TPKT transport framing (RFC 1006) used as the
// outer layer of slow-path RDP packets, including the version-byte check that
// distinguishes slow-path from fast-path framing.
package tpkt

import (
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
)

const (
	// Version is the TPKT version octet; the first byte of every
	// slow-path packet.
	Version uint8 = 3

	// HeaderLength is the fixed TPKT header size.
	HeaderLength = 4
)

// IsTPKT reports whether the buffer at the cursor starts with a TPKT header.
// A packet that does not is fast-path framed. The cursor is not advanced.
func IsTPKT(s *stream.Stream) bool {
	remaining := s.Remaining()

	return len(remaining) > 0 && remaining[0] == Version
}

// ReadHeader consumes the TPKT header and returns the declared total packet
// length. A length shorter than the header itself or longer than the valid
// region fails with stream.ErrTruncated.
func ReadHeader(s *stream.Stream) (uint16, error) {
	version, err := s.ReadUint8()
	if err != nil {
		return 0, err
	}

	if version != Version {
		return 0, ErrInvalidHeader
	}

	if err = s.Skip(1); err != nil { // reserved
		return 0, err
	}

	length, err := s.ReadUint16BE()
	if err != nil {
		return 0, err
	}

	if int(length) < HeaderLength || int(length)-HeaderLength > s.Left() {
		return 0, stream.ErrTruncated
	}

	return length, nil
}

// WriteHeader writes a TPKT header declaring the total packet length.
func WriteHeader(s *stream.Stream, length uint16) {
	s.WriteUint8(Version)
	s.WriteUint8(0) // reserved
	s.WriteUint16BE(length)
}
