// Package mcs implements the Multipoint Communication Service (T.125) domain
// PDU header codec used by slow-path RDP packets: the send-data request and
// indication framings plus the disconnect-provider ultimatum.
package mcs

import (
	"fmt"

	"github.com/umair-akbar/neutrino-rdp/internal/protocol/encoding"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
)

// Application identifies the DomainMCSPDU choice (T.125 7.1).
type Application uint8

const (
	ErectDomainRequest          Application = 1
	DisconnectProviderUltimatum Application = 8
	AttachUserRequest           Application = 10
	AttachUserConfirm           Application = 11
	ChannelJoinRequest          Application = 14
	ChannelJoinConfirm          Application = 15
	SendDataRequest             Application = 25
	SendDataIndication          Application = 26
)

const (
	// GlobalChannelID is the well-known MCS global channel (MCS_GLOBAL_CHANNEL_ID).
	GlobalChannelID uint16 = 1003

	// BaseChannelID is the minimum user channel id; the initiator field is
	// PER-encoded relative to it.
	BaseChannelID uint16 = 1001

	// DataHeaderLength is the fixed send-data header size: choice octet,
	// initiator, channel id, priority/segmentation octet, two-byte length.
	DataHeaderLength = 8

	// dataPriority + segmentation (begin|end) packed octet
	prioritySegmentation uint8 = 0x70
)

// Disconnect ultimatum reasons (T.125 Reason enumeration).
const (
	RNDomainDisconnected uint8 = iota
	RNProviderInitiated
	RNTokenPurged
	RNUserRequested
	RNChannelPurged
)

// DataHeader is the decoded send-data request/indication header.
type DataHeader struct {
	Initiator uint16
	ChannelID uint16

	// UserDataLength is the declared length of the PDU payload that follows.
	UserDataLength uint16
}

// ReadDataHeader decodes a send-data header, expecting the given application
// kind (request when the local endpoint is the server, indication when it is
// the client). A disconnect-provider ultimatum short-circuits with
// ErrDisconnect wrapping the decoded reason.
func ReadDataHeader(s *stream.Stream, expected Application) (*DataHeader, error) {
	choice, err := encoding.PerReadChoice(s)
	if err != nil {
		return nil, stream.ErrTruncated
	}

	application := Application(choice >> 2)

	if application == DisconnectProviderUltimatum {
		reason, err := encoding.PerReadEnumerates(s)
		if err != nil {
			return nil, stream.ErrTruncated
		}

		return nil, &DisconnectError{Reason: reason}
	}

	if application != expected {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedApplication, application, expected)
	}

	if s.Left() < 5 {
		return nil, stream.ErrTruncated
	}

	header := &DataHeader{}

	header.Initiator, err = encoding.PerReadInteger16(BaseChannelID, s)
	if err != nil {
		return nil, stream.ErrTruncated
	}

	header.ChannelID, err = encoding.PerReadInteger16(0, s)
	if err != nil {
		return nil, stream.ErrTruncated
	}

	if err = s.Skip(1); err != nil { // dataPriority + segmentation
		return nil, stream.ErrTruncated
	}

	length, err := encoding.PerReadLength(s)
	if err != nil {
		return nil, stream.ErrTruncated
	}

	if length > s.Left() {
		return nil, stream.ErrTruncated
	}

	header.UserDataLength = uint16(length) // #nosec G115 -- bounded by s.Left above

	return header, nil
}

// WriteDataHeader encodes a send-data header. The user-data length is always
// written in the two-byte PER form so the header width is fixed and can be
// reserved before the payload is produced.
func WriteDataHeader(s *stream.Stream, application Application, initiator, channelID, userDataLength uint16) {
	encoding.PerWriteChoice(uint8(application)<<2, s)
	encoding.PerWriteInteger16(initiator, BaseChannelID, s)
	encoding.PerWriteInteger16(channelID, 0, s)
	s.WriteUint8(prioritySegmentation)
	encoding.PerWriteLongLength(userDataLength, s)
}

// WriteDisconnectUltimatum encodes a disconnect-provider ultimatum with the
// given reason, used for orderly session teardown.
func WriteDisconnectUltimatum(s *stream.Stream, reason uint8) {
	encoding.PerWriteChoice(uint8(DisconnectProviderUltimatum)<<2, s)
	encoding.PerWriteEnumerates(reason, s)
}
