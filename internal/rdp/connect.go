package rdp

import (
	"fmt"

	"github.com/umair-akbar/neutrino-rdp/internal/logging"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/mcs"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/pdu"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/tpkt"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/x224"
)

// controlActionRequestControl TS_CONTROL_PDU CTRLACTION_REQUEST_CONTROL
const controlActionRequestControl uint16 = 0x0001

// ClientConnectSequence drives the connection-setup phases of a client
// endpoint. It handles the MCS channel plumbing itself and delegates
// capability content: ConfirmActive, when set, is invoked after the demand
// active is recorded so the integration can answer with its capability sets.
type ClientConnectSequence struct {
	// StaticChannels lists channel ids to join in addition to the user
	// channel and the global channel.
	StaticChannels []uint16

	// ConfirmActive answers the server's demand active. Left nil, the
	// sequence proceeds straight to finalization.
	ConfirmActive func(sess *Session) error

	pendingJoins int
}

// RecvMCSConnectResponse consumes the MCS connect response and advances to
// user attachment. The GCC conference payload carries negotiation content
// handled by the integration before the session loop starts, so only the
// framing is validated here.
func (c *ClientConnectSequence) RecvMCSConnectResponse(sess *Session, st *stream.Stream) error {
	if err := readConnectFraming(st); err != nil {
		return fmt.Errorf("mcs connect response: %w", err)
	}

	if err := sess.SendDomainPDU(mcs.WriteErectDomainRequest); err != nil {
		return err
	}

	if err := sess.SendDomainPDU(mcs.WriteAttachUserRequest); err != nil {
		return err
	}

	sess.TransitionTo(StateMCSAttachUser)

	return nil
}

// RecvAttachUserConfirm records the user channel id and requests the channel
// joins.
func (c *ClientConnectSequence) RecvAttachUserConfirm(sess *Session, st *stream.Stream) error {
	if err := readConnectFraming(st); err != nil {
		return fmt.Errorf("attach user confirm: %w", err)
	}

	confirm, err := mcs.ReadAttachUserConfirm(st)
	if err != nil {
		return fmt.Errorf("attach user confirm: %w", err)
	}

	sess.SetUserID(confirm.Initiator)

	channels := append([]uint16{confirm.Initiator, mcs.GlobalChannelID}, c.StaticChannels...)
	c.pendingJoins = len(channels)

	for _, channel := range channels {
		err = sess.SendDomainPDU(func(s *stream.Stream) {
			mcs.WriteChannelJoinRequest(s, confirm.Initiator, channel)
		})
		if err != nil {
			return err
		}
	}

	sess.TransitionTo(StateMCSChannelJoin)

	return nil
}

// RecvChannelJoinConfirm counts off the outstanding joins and advances to
// licensing once the last confirm arrives.
func (c *ClientConnectSequence) RecvChannelJoinConfirm(sess *Session, st *stream.Stream) error {
	if err := readConnectFraming(st); err != nil {
		return fmt.Errorf("channel join confirm: %w", err)
	}

	confirm, err := mcs.ReadChannelJoinConfirm(st)
	if err != nil {
		return fmt.Errorf("channel join confirm: %w", err)
	}

	logging.Debug("rdp: joined channel %d", confirm.ChannelID)

	c.pendingJoins--
	if c.pendingJoins <= 0 {
		sess.TransitionTo(StateLicensing)
	}

	return nil
}

// RecvLicense consumes a licensing packet. Only the license error packet
// with STATUS_VALID_CLIENT is expected here; its content is skipped either
// way and the session proceeds to capability exchange.
func (c *ClientConnectSequence) RecvLicense(sess *Session, st *stream.Stream) error {
	if _, err := sess.readSlowPathEnvelope(st); err != nil {
		return fmt.Errorf("license: %w", err)
	}

	flags, err := pdu.ReadSecurityHeader(st)
	if err != nil {
		return fmt.Errorf("license: %w", err)
	}

	if flags&pdu.SecLicensePkt == 0 {
		return fmt.Errorf("license: unexpected security flags 0x%04X", uint16(flags))
	}

	sess.TransitionTo(StateCapabilities)

	return nil
}

// RecvDemandActive records the share id and PDU source from the server's
// demand active, lets the integration confirm, and starts finalization.
func (c *ClientConnectSequence) RecvDemandActive(sess *Session, st *stream.Stream) error {
	header, err := sess.readSlowPathEnvelope(st)
	if err != nil {
		return fmt.Errorf("demand active: %w", err)
	}

	if sess.encryptionMethod != EncryptionNone {
		securityFlags, err := pdu.ReadSecurityHeader(st)
		if err != nil {
			return fmt.Errorf("demand active: %w", err)
		}

		if securityFlags&pdu.SecEncrypt != 0 {
			length := int(header.UserDataLength) - pdu.SecurityHeaderLength
			if err = sess.decrypt(st, length, securityFlags); err != nil {
				return fmt.Errorf("demand active: %w", err)
			}
		}
	}

	control, err := pdu.ReadShareControlHeader(st)
	if err != nil {
		return fmt.Errorf("demand active: %w", err)
	}

	if !control.PDUType.IsDemandActive() {
		// Late licensing or monitor layout packets can trail in; skip.
		logging.Debug("rdp: ignoring PDU type 0x%X before demand active", uint16(control.PDUType))
		return nil
	}

	shareID, err := st.ReadUint32()
	if err != nil {
		return fmt.Errorf("demand active: %w", err)
	}

	sess.SetShareID(shareID)
	sess.pduSource = control.PDUSource

	if c.ConfirmActive != nil {
		if err = c.ConfirmActive(sess); err != nil {
			return fmt.Errorf("confirm active: %w", err)
		}
	}

	if err = sess.sendFinalization(); err != nil {
		return err
	}

	sess.TransitionTo(StateFinalization)

	return nil
}

// readConnectFraming strips the TPKT and X.224 headers of a connect-phase
// packet.
func readConnectFraming(st *stream.Stream) error {
	if _, err := tpkt.ReadHeader(st); err != nil {
		return err
	}

	return x224.ReadDataHeader(st)
}

// readSlowPathEnvelope strips the outer headers of a slow-path packet down
// to the MCS send-data payload.
func (s *Session) readSlowPathEnvelope(st *stream.Stream) (*mcs.DataHeader, error) {
	if err := readConnectFraming(st); err != nil {
		return nil, err
	}

	expected := mcs.SendDataIndication
	if s.role == RoleServer {
		expected = mcs.SendDataRequest
	}

	return mcs.ReadDataHeader(st, expected)
}

// SendDomainPDU sends a bare MCS domain PDU, framed by TPKT and X.224 but
// outside the send-data path, as the connect-phase requests are.
func (s *Session) SendDomainPDU(write func(*stream.Stream)) error {
	body := stream.New(16)
	write(body)

	total := tpkt.HeaderLength + x224.HeaderLength + body.Length()

	st := s.transport.SendStreamInit(total)
	tpkt.WriteHeader(st, uint16(total)) // #nosec G115 -- connect PDUs are tiny
	x224.WriteDataHeader(st)
	st.WriteBytes(body.Bytes())
	st.Rewind()

	return s.transport.Write(st)
}

// sendFinalization sends the client finalization train: synchronize, control
// cooperate, control request, font list.
func (s *Session) sendFinalization() error {
	if err := s.SendSynchronize(s.pduSource); err != nil {
		return err
	}

	if err := s.SendControl(controlActionCooperate); err != nil {
		return err
	}

	if err := s.SendControl(controlActionRequestControl); err != nil {
		return err
	}

	return s.SendFontList()
}

// fontListFirstAndLast TS_FONT_LIST_PDU listFlags: FONTLIST_FIRST | FONTLIST_LAST
const fontListFirstAndLast uint16 = 0x0003

// SendFontList sends an empty font list, closing the client's half of
// finalization.
func (s *Session) SendFontList() error {
	st := s.DataPduInit()

	st.WriteUint16(0)                    // numberFonts
	st.WriteUint16(0)                    // totalNumFonts
	st.WriteUint16(fontListFirstAndLast) // listFlags
	st.WriteUint16(0x0032)               // entrySize

	return s.SendDataPdu(st, pdu.Type2Fontlist, s.userID)
}
