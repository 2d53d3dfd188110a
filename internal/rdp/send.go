package rdp

import (
	"fmt"

	"github.com/umair-akbar/neutrino-rdp/internal/protocol/fastpath"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/mcs"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/pdu"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/tpkt"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/x224"
)

const sendStreamSize = 2048

// SendStreamInit returns a send buffer positioned past the packet header and
// any security envelope space, so the caller writes only its payload. The
// headers are backfilled by Send once the payload length is known.
func (s *Session) SendStreamInit() *stream.Stream {
	st := s.transport.SendStreamInit(sendStreamSize)
	st.Seek(pdu.PacketHeaderMaxLength)
	s.securityStreamInit(st)

	return st
}

// PduInit returns a send buffer additionally reserving share control header
// space, for use with SendPdu.
func (s *Session) PduInit() *stream.Stream {
	st := s.SendStreamInit()
	st.Seek(pdu.ShareControlHeaderLength)

	return st
}

// DataPduInit returns a send buffer additionally reserving share control and
// share data header space, for use with SendDataPdu.
func (s *Session) DataPduInit() *stream.Stream {
	st := s.PduInit()
	st.Seek(pdu.ShareDataHeaderLength)

	return st
}

// writePacketHeader backfills the TPKT, X.224, and MCS send-data headers at
// the start of the buffer. The declared lengths account for any pad bytes the
// security transform will add.
func (s *Session) writePacketHeader(st *stream.Stream, length int, channelID uint16) {
	application := mcs.SendDataRequest
	if s.role == RoleServer {
		application = mcs.SendDataIndication
	}

	if s.secFlags&pdu.SecEncrypt != 0 && s.encryptionMethod == EncryptionFIPS {
		bodyLength := length - pdu.PacketHeaderMaxLength - (pdu.SecurityHeaderLength + 4 + macLength)
		length += int((8 - bodyLength%8) & 7)
	}

	tpkt.WriteHeader(st, uint16(length)) // #nosec G115 -- packet lengths fit 16 bits
	x224.WriteDataHeader(st)
	mcs.WriteDataHeader(st, application, s.userID, channelID,
		uint16(length-pdu.PacketHeaderMaxLength)) // #nosec G115
}

// Send finalizes and transmits a raw packet built on a SendStreamInit buffer:
// it rewinds, backfills the packet header, applies the security transform
// over the completed payload, and hands the buffer to the transport in a
// single write.
func (s *Session) Send(st *stream.Stream, channelID uint16) error {
	length := st.Length()
	st.Rewind()

	s.writePacketHeader(st, length, channelID)

	pad, err := s.securityStreamOut(st, length)
	if err != nil {
		return err
	}

	length += pad
	st.SetPos(length)

	if err := s.transport.Write(st); err != nil {
		return fmt.Errorf("rdp send: %w", err)
	}

	return nil
}

// SendPdu finalizes and transmits a single PDU built on a PduInit buffer,
// backfilling the share control header between the security envelope and the
// payload.
func (s *Session) SendPdu(st *stream.Stream, pduType pdu.Type, channelID uint16) error {
	length := st.Length()
	st.Rewind()

	s.writePacketHeader(st, length, mcs.GlobalChannelID)

	secBytes := s.secBytes()
	secHold := st.Pos()
	st.Seek(secBytes)

	pdu.WriteShareControlHeader(st, uint16(length-secBytes), pduType, channelID) // #nosec G115

	st.SetPos(secHold)

	pad, err := s.securityStreamOut(st, length)
	if err != nil {
		return err
	}

	length += pad
	st.SetPos(length)

	if err := s.transport.Write(st); err != nil {
		return fmt.Errorf("rdp send pdu: %w", err)
	}

	return nil
}

// SendDataPdu finalizes and transmits a data PDU built on a DataPduInit
// buffer, backfilling both share headers.
func (s *Session) SendDataPdu(st *stream.Stream, pduType2 pdu.Type2, channelID uint16) error {
	length := st.Length()
	st.Rewind()

	s.writePacketHeader(st, length, mcs.GlobalChannelID)

	secBytes := s.secBytes()
	secHold := st.Pos()
	st.Seek(secBytes)

	pdu.WriteShareControlHeader(st, uint16(length-secBytes), pdu.TypeData, channelID) // #nosec G115
	pdu.WriteShareDataHeader(st, uint16(length-secBytes), pduType2, s.shareID)        // #nosec G115

	st.SetPos(secHold)

	pad, err := s.securityStreamOut(st, length)
	if err != nil {
		return err
	}

	length += pad
	st.SetPos(length)

	if err := s.transport.Write(st); err != nil {
		return fmt.Errorf("rdp send data pdu: %w", err)
	}

	return nil
}

// SendSynchronize sends a synchronize data PDU targeting the peer user id.
func (s *Session) SendSynchronize(targetUser uint16) error {
	st := s.DataPduInit()
	st.WriteUint16(1) // SYNCMSGTYPE_SYNC
	st.WriteUint16(targetUser)

	return s.SendDataPdu(st, pdu.Type2Synchronize, s.userID)
}

// SendControl sends a control data PDU with the given action.
func (s *Session) SendControl(action uint16) error {
	st := s.DataPduInit()
	st.WriteUint16(action)
	st.WriteUint16(0) // grantId
	st.WriteUint32(0) // controlId

	return s.SendDataPdu(st, pdu.Type2Control, s.userID)
}

// SendFrameAcknowledge acknowledges a rendered frame.
func (s *Session) SendFrameAcknowledge(frame uint32) error {
	st := s.DataPduInit()
	st.WriteUint32(frame)

	return s.SendDataPdu(st, pdu.Type2FrameAcknowledge, s.userID)
}

// SendRefreshRect asks the peer to resend the given screen region.
func (s *Session) SendRefreshRect(left, top, right, bottom uint16) error {
	st := s.DataPduInit()
	st.WriteUint8(1) // numberOfAreas
	st.Zero(3)       // pad3Octets
	st.WriteUint16(left)
	st.WriteUint16(top)
	st.WriteUint16(right)
	st.WriteUint16(bottom)

	return s.SendDataPdu(st, pdu.Type2RefreshRect, s.userID)
}

// SendSuppressOutput toggles display updates; when allowDisplayUpdates is
// true the given region is repainted.
func (s *Session) SendSuppressOutput(allowDisplayUpdates bool, left, top, right, bottom uint16) error {
	st := s.DataPduInit()

	if allowDisplayUpdates {
		st.WriteUint32(1)
		st.WriteUint16(left)
		st.WriteUint16(top)
		st.WriteUint16(right)
		st.WriteUint16(bottom)
	} else {
		st.WriteUint32(0)
	}

	return s.SendDataPdu(st, pdu.Type2SuppressOutput, s.userID)
}

// SendShutdownRequest asks the peer to close the session.
func (s *Session) SendShutdownRequest() error {
	st := s.DataPduInit()

	return s.SendDataPdu(st, pdu.Type2ShutdownRequest, s.userID)
}

// SendChannelData sends an opaque payload on a static virtual channel.
func (s *Session) SendChannelData(channelID uint16, data []byte) error {
	st := s.SendStreamInit()
	st.WriteBytes(data)

	return s.Send(st, channelID)
}

// SendInputEvent sends a plaintext fast-path input event, bypassing the
// slow-path packet header.
func (s *Session) SendInputEvent(eventData []byte) error {
	packet := fastpath.NewInputEventPDU(eventData).Serialize()

	st := s.transport.SendStreamInit(len(packet))
	st.WriteBytes(packet)
	st.Rewind()

	return s.transport.Write(st)
}
