package rdp

import (
	"errors"
	"fmt"

	"github.com/umair-akbar/neutrino-rdp/internal/logging"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/fastpath"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/mcs"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/pdu"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/tpkt"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/x224"
)

// Recv reads one packet from the transport and processes it.
func (s *Session) Recv() error {
	st := s.transport.RecvStreamInit(s.streamSize)

	if err := s.transport.Read(st); err != nil {
		return fmt.Errorf("rdp recv: %w", err)
	}

	return s.ProcessPacket(st)
}

// ProcessPacket routes one inbound packet according to the connection phase.
// During connection setup each phase has a dedicated step handler; once
// finalizing or active, packets flow through the top-level PDU dispatch. An
// error return is fatal to the session.
func (s *Session) ProcessPacket(st *stream.Stream) error {
	if s.disconnect {
		return ErrDisconnect
	}

	switch s.state {
	case StateNegotiation:
		return s.connectStep(st, ConnectSequence.RecvMCSConnectResponse)

	case StateMCSAttachUser:
		return s.connectStep(st, ConnectSequence.RecvAttachUserConfirm)

	case StateMCSChannelJoin:
		return s.connectStep(st, ConnectSequence.RecvChannelJoinConfirm)

	case StateLicensing:
		return s.connectStep(st, ConnectSequence.RecvLicense)

	case StateCapabilities:
		return s.connectStep(st, ConnectSequence.RecvDemandActive)

	case StateFinalization:
		if err := s.recvPdu(st); err != nil {
			return err
		}

		if s.finalize == finalizeComplete {
			s.TransitionTo(StateActive)
		}

		return nil

	case StateActive:
		return s.recvPdu(st)

	default:
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.state)
	}
}

func (s *Session) connectStep(st *stream.Stream, step func(ConnectSequence, *Session, *stream.Stream) error) error {
	if s.connectSequence == nil {
		return fmt.Errorf("%w: no connect sequence handler in state %s", ErrInvalidPhase, s.state)
	}

	return step(s.connectSequence, s, st)
}

// recvPdu classifies the packet framing by its first byte and decodes
// accordingly.
func (s *Session) recvPdu(st *stream.Stream) error {
	if tpkt.IsTPKT(st) {
		return s.recvTpktPdu(st)
	}

	return s.recvFastPathPdu(st)
}

// recvTpktPdu decodes a slow-path packet: outer headers, optional security
// envelope, then the walk over concatenated share-control PDUs. The declared
// length of each PDU is authoritative; the cursor is clamped to the next PDU
// regardless of what its handler consumed, so a misbehaving sub-decoder
// cannot desynchronize the walk.
func (s *Session) recvTpktPdu(st *stream.Stream) error {
	if _, err := tpkt.ReadHeader(st); err != nil {
		return err
	}

	if err := x224.ReadDataHeader(st); err != nil {
		return err
	}

	expected := mcs.SendDataIndication
	if s.role == RoleServer {
		expected = mcs.SendDataRequest
	}

	header, err := mcs.ReadDataHeader(st, expected)
	if err != nil {
		var disconnect *mcs.DisconnectError
		if errors.As(err, &disconnect) {
			logging.Info("rdp: %v", disconnect)
			s.disconnect = true

			return ErrDisconnect
		}

		return err
	}

	length := int(header.UserDataLength)

	if s.encryptionMethod != EncryptionNone {
		securityFlags, err := pdu.ReadSecurityHeader(st)
		if err != nil {
			return err
		}

		if securityFlags&(pdu.SecEncrypt|pdu.SecRedirectionPkt) != 0 {
			if err = s.decrypt(st, length-pdu.SecurityHeaderLength, securityFlags); err != nil {
				return err
			}
		}

		if securityFlags&pdu.SecRedirectionPkt != 0 {
			// Standard security redirection packets carry neither a
			// share control header nor the 2-byte pad.
			st.SetPos(st.Pos() - 2)

			return s.recvRedirection(st)
		}
	}

	if header.ChannelID != mcs.GlobalChannelID {
		if s.channelHandler == nil {
			logging.Debug("rdp: no handler for channel %d, dropping %d bytes", header.ChannelID, st.Left())
			return nil
		}

		return s.channelHandler.HandleChannelData(header.ChannelID, st)
	}

	for st.Left() > 3 {
		mark := st.Pos()

		control, err := pdu.ReadShareControlHeader(st)
		if err != nil {
			return err
		}

		next := mark + int(control.TotalLength)
		if next <= mark {
			// A declared length that cannot advance the walk would spin
			// it forever on the same header.
			return stream.ErrTruncated
		}

		s.pduSource = control.PDUSource

		switch control.PDUType {
		case pdu.TypeData:
			if err = s.recvDataPdu(st); err != nil {
				return err
			}

		case pdu.TypeDeactivateAll:
			if err = s.recvDeactivateAll(st); err != nil {
				return err
			}

		case pdu.TypeServerRedirection:
			if err = s.recvRedirection(st); err != nil {
				return err
			}

		default:
			logging.Warn("rdp: incorrect PDU type: 0x%04X", uint16(control.PDUType))
		}

		st.SetPos(next)
	}

	return nil
}

// recvFastPathPdu decodes a fast-path packet and hands its updates to the
// update decoder.
func (s *Session) recvFastPathPdu(st *stream.Stream) error {
	header, length, err := fastpath.ReadHeader(st)
	if err != nil {
		return err
	}

	if header.IsEncrypted() {
		var securityFlags pdu.SecurityFlag
		if header.IsSecureChecksum() {
			securityFlags = pdu.SecSecureChecksum
		}

		if err = s.decrypt(st, length, securityFlags); err != nil {
			return err
		}
	}

	if s.fastpathDecoder == nil {
		logging.Debug("rdp: no fastpath update handler, dropping %d bytes", st.Left())
		return nil
	}

	return s.fastpathDecoder.RecvUpdates(st)
}

// recvDataPdu decodes a share data header, decompresses the payload when the
// compressed bit is set, and dispatches by subtype. Unknown subtypes are
// accepted as no-ops so optional PDUs never abort the connection.
func (s *Session) recvDataPdu(st *stream.Stream) error {
	header, err := pdu.ReadShareDataHeader(st)
	if err != nil {
		return err
	}

	payload := st

	if header.CompressedType&pdu.PacketCompressed != 0 {
		if s.decompressor == nil {
			return fmt.Errorf("%w: no decompressor", ErrDecompressFailure)
		}

		compressedLength := int(header.CompressedLength) -
			pdu.ShareControlHeaderLength - pdu.ShareDataHeaderLength
		if compressedLength < 0 || compressedLength > st.Left() {
			return stream.ErrTruncated
		}

		// The decompressed output is a borrowed view into the
		// decompressor's history buffer, valid only for this dispatch.
		data, err := s.decompressor.Decompress(st.Range(st.Pos(), compressedLength), header.CompressedType)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecompressFailure, err)
		}

		payload = stream.Wrap(data)
	}

	if handler, ok := s.dataHandlers[header.PDUType2]; ok {
		if err := handler(payload); err != nil {
			return fmt.Errorf("data pdu %s: %w", header.PDUType2, err)
		}

		return nil
	}

	switch header.PDUType2 {
	case pdu.Type2Synchronize:
		return s.recvSynchronizePdu(payload)

	case pdu.Type2Control:
		return s.recvControlPdu(payload)

	case pdu.Type2Fontmap:
		return s.recvFontMapPdu(payload)

	case pdu.Type2ErrorInfo:
		return s.recvErrorInfoPdu(payload)

	case pdu.Type2SaveSessionInfo:
		logging.Debug("rdp: save session info")
		return nil

	default:
		logging.Debug("rdp: ignoring %s data PDU (0x%02X), length %d",
			header.PDUType2, uint8(header.PDUType2), header.UncompressedLength)
		return nil
	}
}

// RecvOutOfSequencePdu handles a share-control PDU that arrives outside the
// normal walk, during connection finalization.
func (s *Session) RecvOutOfSequencePdu(st *stream.Stream) error {
	control, err := pdu.ReadShareControlHeader(st)
	if err != nil {
		return err
	}

	switch control.PDUType {
	case pdu.TypeData:
		return s.recvDataPdu(st)

	case pdu.TypeServerRedirection:
		return s.recvRedirection(st)

	default:
		return fmt.Errorf("%w: out of sequence PDU type 0x%X", ErrInvalidPhase, uint16(control.PDUType))
	}
}

func (s *Session) recvDeactivateAll(st *stream.Stream) error {
	shareID, err := st.ReadUint32()
	if err != nil {
		// Windows XP sends short deactivate-all PDUs with no body.
		logging.Debug("rdp: short deactivate all")
	} else {
		s.shareID = shareID
	}

	logging.Info("rdp: deactivate all, returning to capability exchange")
	s.finalize = 0
	s.TransitionTo(StateCapabilities)

	return nil
}

func (s *Session) recvRedirection(st *stream.Stream) error {
	if s.redirectionHandler == nil {
		logging.Warn("rdp: server redirection ignored: no handler")
		return nil
	}

	return s.redirectionHandler.HandleRedirection(st)
}

func (s *Session) recvSynchronizePdu(st *stream.Stream) error {
	if err := st.Skip(2); err != nil { // messageType
		return err
	}

	if err := st.Skip(2); err != nil { // targetUser
		return err
	}

	s.finalize |= finalizeSynchronize

	return nil
}

// Control PDU actions (MS-RDPBCGR 2.2.1.15.1).
const (
	controlActionGrantedControl uint16 = 0x0002
	controlActionCooperate      uint16 = 0x0004
)

func (s *Session) recvControlPdu(st *stream.Stream) error {
	action, err := st.ReadUint16()
	if err != nil {
		return err
	}

	switch action {
	case controlActionCooperate:
		s.finalize |= finalizeControlCooperate
	case controlActionGrantedControl:
		s.finalize |= finalizeControlGranted
	}

	return nil
}

func (s *Session) recvFontMapPdu(st *stream.Stream) error {
	// numberEntries, totalNumEntries, mapFlags, entrySize: informational.
	s.finalize |= finalizeFontMap

	return nil
}

func (s *Session) recvErrorInfoPdu(st *stream.Stream) error {
	errorInfo, err := st.ReadUint32()
	if err != nil {
		return err
	}

	s.errorInfo = errorInfo

	if errorInfo != 0 {
		logging.Error("rdp: server error info: %s (0x%08X)", errorInfoString(errorInfo), errorInfo)
	}

	return nil
}
