package rdp

import "errors"

var (
	// ErrCryptoFailure indicates the security envelope could not be
	// reversed. Fatal to the packet.
	ErrCryptoFailure = errors.New("crypto failure")

	// ErrSignatureInvalid indicates a FIPS packet signature mismatch, or a
	// standard-mode mismatch under strict validation. Fatal to the packet.
	ErrSignatureInvalid = errors.New("invalid packet signature")

	// ErrDecompressFailure indicates the bulk decompressor rejected a
	// compressed data PDU. Fatal to the PDU.
	ErrDecompressFailure = errors.New("decompression failure")

	// ErrInvalidPhase indicates a packet arrived in a connection phase
	// where no receive handler is legal. Fatal to the session.
	ErrInvalidPhase = errors.New("invalid connection phase")

	// ErrDisconnect signals orderly session teardown requested by the
	// peer. Not a parse failure.
	ErrDisconnect = errors.New("disconnect requested")
)
