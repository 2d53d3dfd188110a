// Package x224 implements the X.224 class 0 Data TPDU framing that sits
// between TPKT and the MCS layer on slow-path packets.
package x224

import (
	"errors"
	"fmt"

	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
)

const (
	// HeaderLength is the fixed Data TPDU header size.
	HeaderLength = 3

	codeData           uint8 = 0xF0
	codeConnectionReq  uint8 = 0xE0
	codeConnectionConf uint8 = 0xD0
	flagEOT            uint8 = 0x80
)

// RDP negotiation structure types carried in connection TPDUs
// (MS-RDPBCGR 2.2.1.1.1 and 2.2.1.2.1).
const (
	negTypeRequest  uint8 = 0x01
	negTypeResponse uint8 = 0x02
	negTypeFailure  uint8 = 0x03

	negStructLength uint16 = 8
)

// Security protocols negotiable in the connection request.
const (
	ProtocolRDP    uint32 = 0x00000000
	ProtocolSSL    uint32 = 0x00000001
	ProtocolHybrid uint32 = 0x00000002
)

// ErrInvalidHeader indicates the TPDU is not a class 0 Data TPDU.
var ErrInvalidHeader = errors.New("invalid x224 data tpdu")

// ErrNegotiationFailure indicates the peer rejected the requested security
// protocols.
var ErrNegotiationFailure = errors.New("x224 negotiation failure")

// ReadDataHeader consumes the Data TPDU header.
func ReadDataHeader(s *stream.Stream) error {
	if err := s.Skip(1); err != nil { // length indicator
		return err
	}

	code, err := s.ReadUint8()
	if err != nil {
		return err
	}

	if code&0xF0 != codeData {
		return ErrInvalidHeader
	}

	return s.Skip(1) // EOT
}

// WriteDataHeader writes a Data TPDU header with the end-of-TSDU mark set.
func WriteDataHeader(s *stream.Stream) {
	s.WriteUint8(2) // length indicator: remaining header bytes
	s.WriteUint8(codeData)
	s.WriteUint8(flagEOT)
}

// WriteConnectionRequest writes a Connection Request TPDU carrying an RDP
// negotiation request for the given security protocols.
func WriteConnectionRequest(s *stream.Stream, requestedProtocols uint32) {
	s.WriteUint8(6 + 8) // length indicator: remaining header + rdpNegReq
	s.WriteUint8(codeConnectionReq)
	s.WriteUint16(0) // dstRef
	s.WriteUint16(0) // srcRef
	s.WriteUint8(0)  // classOption

	s.WriteUint8(negTypeRequest)
	s.WriteUint8(0) // flags
	s.WriteUint16(negStructLength)
	s.WriteUint32(requestedProtocols)
}

// ReadConnectionConfirm consumes a Connection Confirm TPDU and returns the
// security protocol the peer selected. A confirm without a negotiation
// response selects plain RDP security.
func ReadConnectionConfirm(s *stream.Stream) (uint32, error) {
	indicator, err := s.ReadUint8()
	if err != nil {
		return 0, err
	}

	code, err := s.ReadUint8()
	if err != nil {
		return 0, err
	}

	if code&0xF0 != codeConnectionConf {
		return 0, ErrInvalidHeader
	}

	if err = s.Skip(5); err != nil { // dstRef, srcRef, classOption
		return 0, err
	}

	if indicator < 6+8 {
		return ProtocolRDP, nil
	}

	negType, err := s.ReadUint8()
	if err != nil {
		return 0, err
	}

	if err = s.Skip(3); err != nil { // flags, length
		return 0, err
	}

	selected, err := s.ReadUint32()
	if err != nil {
		return 0, err
	}

	if negType == negTypeFailure {
		return 0, fmt.Errorf("%w: code 0x%08X", ErrNegotiationFailure, selected)
	}

	return selected, nil
}
