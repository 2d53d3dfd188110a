package rdp

import (
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
)

// Transport abstracts the byte-stream transport under the session. The
// session performs no I/O waits itself; it is driven by whoever owns the
// transport's read loop.
type Transport interface {
	// RecvStreamInit returns an empty receive buffer sized for one packet.
	RecvStreamInit(sizeHint int) *stream.Stream
	// Read fills the buffer with exactly one framed packet.
	Read(s *stream.Stream) error
	// SendStreamInit returns an empty send buffer sized for one packet.
	SendStreamInit(sizeHint int) *stream.Stream
	// Write sends the buffer's valid region in a single write.
	Write(s *stream.Stream) error
	// SetBlocking toggles the transport's blocking mode.
	SetBlocking(blocking bool)

	Close() error
}

// CryptoSuite performs the cryptographic primitives of the per-packet
// security envelope, in place over byte ranges, keyed by session key
// material held by the implementation.
type CryptoSuite interface {
	// Encrypt and Decrypt apply the standard-mode stream cipher.
	Encrypt(b []byte) error
	Decrypt(b []byte) error

	// MAC computes the 8-byte standard MAC over data.
	MAC(data []byte) ([8]byte, error)
	// SaltedMAC computes the salted MAC variant; encrypting reports which
	// direction's counter salts the digest.
	SaltedMAC(data []byte, encrypting bool) ([8]byte, error)

	// FIPSEncrypt and FIPSDecrypt apply the FIPS block cipher; lengths
	// must be a multiple of the cipher block size.
	FIPSEncrypt(b []byte) error
	FIPSDecrypt(b []byte) error
	// FIPSSign computes the 8-byte FIPS signature for an outbound packet.
	FIPSSign(data []byte) ([8]byte, error)
	// FIPSVerify checks the signature of an inbound packet. The send and
	// receive directions keep separate use counters, so verification is
	// not FIPSSign over the same bytes.
	FIPSVerify(data, signature []byte) (bool, error)
}

// Decompressor reverses bulk compression of data PDU payloads. The returned
// slice is a borrowed view into the decompressor's history buffer, valid only
// until the next call.
type Decompressor interface {
	Decompress(data []byte, compressedType uint8) ([]byte, error)
}

// ChannelHandler consumes packets addressed to a static virtual channel
// other than the global channel. The buffer is positioned at the channel
// payload.
type ChannelHandler interface {
	HandleChannelData(channelID uint16, s *stream.Stream) error
}

// RedirectionHandler consumes server redirection PDUs.
type RedirectionHandler interface {
	HandleRedirection(s *stream.Stream) error
}

// DataHandler consumes the payload of one data PDU subtype. The buffer is
// positioned past the share data header (or at the start of the decompressed
// payload).
type DataHandler func(s *stream.Stream) error

// ConnectSequence supplies the receive handler for each connection-setup
// phase. Implementations advance the session phase via TransitionTo once
// their step completes; a returned error is fatal to the session.
type ConnectSequence interface {
	RecvMCSConnectResponse(sess *Session, s *stream.Stream) error
	RecvAttachUserConfirm(sess *Session, s *stream.Stream) error
	RecvChannelJoinConfirm(sess *Session, s *stream.Stream) error
	RecvLicense(sess *Session, s *stream.Stream) error
	RecvDemandActive(sess *Session, s *stream.Stream) error
}
