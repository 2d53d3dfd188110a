package mcs

import (
	"fmt"

	"github.com/umair-akbar/neutrino-rdp/internal/protocol/encoding"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
)

// ResultSuccessful is the rt-successful value of the T.125 Result
// enumeration.
const ResultSuccessful uint8 = 0

// choiceInitiatorPresent marks the optional initiator field in an attach
// user confirm choice octet.
const choiceInitiatorPresent uint8 = 0x02

// AttachUserConfirmPDU is the decoded attach user confirm.
type AttachUserConfirmPDU struct {
	Result    uint8
	Initiator uint16
}

// ReadAttachUserConfirm decodes an attach user confirm, starting at the
// DomainMCSPDU choice octet.
func ReadAttachUserConfirm(s *stream.Stream) (*AttachUserConfirmPDU, error) {
	choice, err := encoding.PerReadChoice(s)
	if err != nil {
		return nil, stream.ErrTruncated
	}

	if Application(choice>>2) != AttachUserConfirm {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedApplication, choice>>2, AttachUserConfirm)
	}

	pdu := &AttachUserConfirmPDU{}

	pdu.Result, err = encoding.PerReadEnumerates(s)
	if err != nil {
		return nil, stream.ErrTruncated
	}

	if pdu.Result != ResultSuccessful {
		return nil, fmt.Errorf("attach user confirm result %d", pdu.Result)
	}

	if choice&choiceInitiatorPresent != 0 {
		pdu.Initiator, err = encoding.PerReadInteger16(BaseChannelID, s)
		if err != nil {
			return nil, stream.ErrTruncated
		}
	}

	return pdu, nil
}

// ChannelJoinConfirmPDU is the decoded channel join confirm.
type ChannelJoinConfirmPDU struct {
	Result    uint8
	Initiator uint16
	Requested uint16
	ChannelID uint16
}

// ReadChannelJoinConfirm decodes a channel join confirm, starting at the
// DomainMCSPDU choice octet. The channel id field is optional on the wire;
// when absent the requested channel stands in for it.
func ReadChannelJoinConfirm(s *stream.Stream) (*ChannelJoinConfirmPDU, error) {
	choice, err := encoding.PerReadChoice(s)
	if err != nil {
		return nil, stream.ErrTruncated
	}

	if Application(choice>>2) != ChannelJoinConfirm {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedApplication, choice>>2, ChannelJoinConfirm)
	}

	pdu := &ChannelJoinConfirmPDU{}

	pdu.Result, err = encoding.PerReadEnumerates(s)
	if err != nil {
		return nil, stream.ErrTruncated
	}

	if pdu.Result != ResultSuccessful {
		return nil, fmt.Errorf("channel join confirm result %d", pdu.Result)
	}

	pdu.Initiator, err = encoding.PerReadInteger16(BaseChannelID, s)
	if err != nil {
		return nil, stream.ErrTruncated
	}

	pdu.Requested, err = encoding.PerReadInteger16(0, s)
	if err != nil {
		return nil, stream.ErrTruncated
	}

	if s.Left() >= 2 {
		pdu.ChannelID, err = encoding.PerReadInteger16(0, s)
		if err != nil {
			return nil, stream.ErrTruncated
		}
	} else {
		pdu.ChannelID = pdu.Requested
	}

	return pdu, nil
}

// WriteErectDomainRequest encodes an erect domain request with zero height
// and interval.
func WriteErectDomainRequest(s *stream.Stream) {
	encoding.PerWriteChoice(uint8(ErectDomainRequest)<<2, s)
	encoding.PerWriteInteger(0, s)
	encoding.PerWriteInteger(0, s)
}

// WriteAttachUserRequest encodes an attach user request.
func WriteAttachUserRequest(s *stream.Stream) {
	encoding.PerWriteChoice(uint8(AttachUserRequest)<<2, s)
}

// WriteAttachUserConfirm encodes an attach user confirm granting initiator.
func WriteAttachUserConfirm(s *stream.Stream, initiator uint16) {
	encoding.PerWriteChoice(uint8(AttachUserConfirm)<<2|choiceInitiatorPresent, s)
	encoding.PerWriteEnumerates(ResultSuccessful, s)
	encoding.PerWriteInteger16(initiator, BaseChannelID, s)
}

// WriteChannelJoinRequest encodes a channel join request for channelID by
// initiator.
func WriteChannelJoinRequest(s *stream.Stream, initiator, channelID uint16) {
	encoding.PerWriteChoice(uint8(ChannelJoinRequest)<<2, s)
	encoding.PerWriteInteger16(initiator, BaseChannelID, s)
	encoding.PerWriteInteger16(channelID, 0, s)
}

// WriteChannelJoinConfirm encodes a successful channel join confirm.
func WriteChannelJoinConfirm(s *stream.Stream, initiator, channelID uint16) {
	encoding.PerWriteChoice(uint8(ChannelJoinConfirm)<<2, s)
	encoding.PerWriteEnumerates(ResultSuccessful, s)
	encoding.PerWriteInteger16(initiator, BaseChannelID, s)
	encoding.PerWriteInteger16(channelID, 0, s)
	encoding.PerWriteInteger16(channelID, 0, s)
}
