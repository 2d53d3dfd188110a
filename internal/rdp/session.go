// Package rdp implements the framing, security-transform, and dispatch core
// of an RDP endpoint: it classifies inbound packets as slow-path or
// fast-path, strips and verifies the per-packet security envelope, walks the
// concatenated PDUs of a slow-path packet, routes each to its handler, and
// drives the connection-phase state machine.
package rdp

import (
	"github.com/umair-akbar/neutrino-rdp/internal/config"
	"github.com/umair-akbar/neutrino-rdp/internal/logging"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/fastpath"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/mcs"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/pdu"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/tpkt"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/x224"
)

// Role is the part the local endpoint plays. Several wire fields change
// meaning with the role: which MCS send-data kind is read and written, and
// who acts as the MCS initiator.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// EncryptionMethod selects the per-packet security envelope.
type EncryptionMethod int

const (
	EncryptionNone EncryptionMethod = iota
	EncryptionStandard
	EncryptionFIPS
)

// State is the connection phase. Transitions are linear; only the active
// state self-loops.
type State int

const (
	StateNegotiation State = iota
	StateMCSAttachUser
	StateMCSChannelJoin
	StateLicensing
	StateCapabilities
	StateFinalization
	StateActive
	StateDisconnected
)

var stateNames = map[State]string{
	StateNegotiation:    "negotiation",
	StateMCSAttachUser:  "mcs attach user",
	StateMCSChannelJoin: "mcs channel join",
	StateLicensing:      "licensing",
	StateCapabilities:   "capabilities",
	StateFinalization:   "finalization",
	StateActive:         "active",
	StateDisconnected:   "disconnected",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// Finalization sub-protocol completion bits. The finalizing phase transitions
// to active only once all of them are set.
const (
	finalizeSynchronize      uint8 = 0x01
	finalizeControlCooperate uint8 = 0x02
	finalizeControlGranted   uint8 = 0x04
	finalizeFontMap          uint8 = 0x08

	finalizeComplete = finalizeSynchronize | finalizeControlCooperate | finalizeControlGranted | finalizeFontMap
)

const defaultStreamSize = 4 * 1024

// Session is the per-connection protocol core. It is single-threaded: one
// inbound packet is fully parsed and dispatched before the next read, and
// send/receive share the pending security flags, so a multi-threaded host
// must serialize both directions externally.
type Session struct {
	role  Role
	state State

	transport    Transport
	crypto       CryptoSuite
	decompressor Decompressor

	channelHandler     ChannelHandler
	redirectionHandler RedirectionHandler
	connectSequence    ConnectSequence
	dataHandlers       map[pdu.Type2]DataHandler

	fastpathDecoder *fastpath.Decoder

	encryptionMethod EncryptionMethod
	secureChecksum   bool
	strictMAC        bool

	// secFlags are the pending outbound security flags, armed between
	// stream init and send finalize, cleared after every send.
	secFlags pdu.SecurityFlag
	doCrypt  bool

	disconnect bool

	userID    uint16
	shareID   uint32
	pduSource uint16

	finalize  uint8
	errorInfo uint32

	streamSize int
}

// NewSession returns a Session in the negotiation phase.
func NewSession(role Role, transport Transport, opts ...Option) *Session {
	sess := &Session{
		role:         role,
		state:        StateNegotiation,
		transport:    transport,
		dataHandlers: make(map[pdu.Type2]DataHandler),
		streamSize:   defaultStreamSize,
	}

	for _, opt := range opts {
		opt(sess)
	}

	return sess
}

// Option configures a Session at construction.
type Option func(*Session)

// WithCryptoSuite installs the cryptographic collaborator.
func WithCryptoSuite(suite CryptoSuite) Option {
	return func(s *Session) { s.crypto = suite }
}

// WithDecompressor installs the bulk decompression collaborator.
func WithDecompressor(d Decompressor) Option {
	return func(s *Session) { s.decompressor = d }
}

// WithChannelHandler installs the static virtual channel collaborator.
func WithChannelHandler(h ChannelHandler) Option {
	return func(s *Session) { s.channelHandler = h }
}

// WithRedirectionHandler installs the server redirection collaborator.
func WithRedirectionHandler(h RedirectionHandler) Option {
	return func(s *Session) { s.redirectionHandler = h }
}

// WithConnectSequence installs the connection-setup step collaborator.
func WithConnectSequence(c ConnectSequence) Option {
	return func(s *Session) { s.connectSequence = c }
}

// WithUpdateHandler installs the fast-path update collaborator.
func WithUpdateHandler(h fastpath.UpdateHandler) Option {
	return func(s *Session) { s.fastpathDecoder = fastpath.NewDecoder(h) }
}

// WithSecurity applies the security section of the configuration.
func WithSecurity(cfg config.SecurityConfig) Option {
	return func(s *Session) {
		switch cfg.EncryptionMethod {
		case "standard":
			s.encryptionMethod = EncryptionStandard
		case "fips":
			s.encryptionMethod = EncryptionFIPS
		default:
			s.encryptionMethod = EncryptionNone
		}

		s.secureChecksum = cfg.SecureChecksum
		s.strictMAC = cfg.StrictMACValidation
	}
}

// RegisterDataHandler routes a data PDU subtype to handler, replacing any
// built-in routing for that subtype.
func (s *Session) RegisterDataHandler(t pdu.Type2, handler DataHandler) {
	s.dataHandlers[t] = handler
}

// TransitionTo advances the connection phase. Called by the session itself
// and by connection-setup step collaborators when their step completes.
func (s *Session) TransitionTo(state State) {
	logging.Debug("rdp: state %s -> %s", s.state, state)
	s.state = state
}

// State returns the current connection phase.
func (s *Session) State() State { return s.state }

// Role returns the local endpoint's role.
func (s *Session) Role() Role { return s.role }

// SetUserID records the MCS user id allocated during attach.
func (s *Session) SetUserID(id uint16) { s.userID = id }

// UserID returns the MCS user id.
func (s *Session) UserID() uint16 { return s.userID }

// SetShareID records the share id learned during capability exchange.
func (s *Session) SetShareID(id uint32) { s.shareID = id }

// ShareID returns the share id.
func (s *Session) ShareID() uint32 { return s.shareID }

// PDUSource returns the source channel id of the PDU currently dispatched.
func (s *Session) PDUSource() uint16 { return s.pduSource }

// ErrorInfo returns the last server-supplied error code, surfaced as
// session-end diagnostic information.
func (s *Session) ErrorInfo() uint32 { return s.errorInfo }

// ArmEncryption enables the security envelope on subsequent sends, once key
// material has been exchanged.
func (s *Session) ArmEncryption(method EncryptionMethod) {
	s.encryptionMethod = method
	s.doCrypt = method != EncryptionNone
}

// AddSecurityFlags arms non-encryption security flags (license, info,
// exchange) for the next send. Pending flags are cleared when the packet is
// finalized.
func (s *Session) AddSecurityFlags(flags pdu.SecurityFlag) {
	s.secFlags |= flags
}

// SetBlocking toggles the transport's blocking mode.
func (s *Session) SetBlocking(blocking bool) {
	s.transport.SetBlocking(blocking)
}

// Disconnected reports whether the peer requested teardown.
func (s *Session) Disconnected() bool { return s.disconnect }

// Close requests orderly teardown, notifying the peer with a disconnect
// ultimatum when the session is still active.
func (s *Session) Close() error {
	if s.state == StateActive && !s.disconnect {
		st := s.transport.SendStreamInit(16)
		tpkt.WriteHeader(st, tpkt.HeaderLength+x224.HeaderLength+2)
		x224.WriteDataHeader(st)
		mcs.WriteDisconnectUltimatum(st, mcs.RNUserRequested)

		if err := s.transport.Write(st); err != nil {
			logging.Debug("rdp: disconnect ultimatum write failed: %v", err)
		}
	}

	s.state = StateDisconnected

	return s.transport.Close()
}
