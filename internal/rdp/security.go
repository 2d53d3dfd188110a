package rdp

import (
	"bytes"
	"fmt"

	"github.com/umair-akbar/neutrino-rdp/internal/logging"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/pdu"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
)

// FIPS security header constants (MS-RDPBCGR 2.2.8.1.1.2.3).
const (
	fipsHeaderLength uint16 = 0x10
	fipsVersion      uint8  = 0x1
)

const macLength = 8

// securityStreamInit reserves header space for the security envelope of the
// next outbound packet and arms the matching flags. Called by the stream-init
// helpers before the caller writes its payload.
func (s *Session) securityStreamInit(st *stream.Stream) {
	if s.doCrypt {
		st.Seek(pdu.SecurityHeaderLength + macLength)

		if s.encryptionMethod == EncryptionFIPS {
			st.Seek(4) // length, version, pad octet is 4 bytes with the 2-byte length field
		}

		s.secFlags |= pdu.SecEncrypt

		if s.secureChecksum {
			s.secFlags |= pdu.SecSecureChecksum
		}
	} else if s.secFlags != 0 {
		st.Seek(pdu.SecurityHeaderLength)
	}
}

// secBytes returns the security header space the pending flags occupy.
func (s *Session) secBytes() int {
	if s.secFlags&pdu.SecEncrypt != 0 {
		if s.encryptionMethod == EncryptionFIPS {
			return pdu.SecurityHeaderLength + 4 + macLength
		}

		return pdu.SecurityHeaderLength + macLength
	}

	if s.secFlags != 0 {
		return pdu.SecurityHeaderLength
	}

	return 0
}

// securityStreamOut applies the pending security envelope over the complete
// packet. The cursor must sit just past the packet header; length is the
// packet length before padding. Returns the number of FIPS pad bytes added,
// which the caller must fold into the final packet length. Pending flags are
// cleared.
func (s *Session) securityStreamOut(st *stream.Stream, length int) (int, error) {
	secFlags := s.secFlags
	if secFlags == 0 {
		return 0, nil
	}

	pad := 0

	pdu.WriteSecurityHeader(st, secFlags)

	if secFlags&pdu.SecEncrypt != 0 {
		if s.crypto == nil {
			return 0, fmt.Errorf("%w: no crypto suite", ErrCryptoFailure)
		}

		if s.encryptionMethod == EncryptionFIPS {
			dataPos := st.Pos() + 4 + macLength
			bodyLength := length - dataPos

			pad = int((8 - bodyLength%8) & 7)

			st.WriteUint16(fipsHeaderLength)
			st.WriteUint8(fipsVersion)
			st.WriteUint8(uint8(pad)) // #nosec G115 -- pad is in [0,7]

			sigPos := st.Pos()

			// Zero the pad region at the tail before encrypting over it.
			st.SetPos(dataPos + bodyLength)
			st.Zero(pad)
			st.SetPos(sigPos)

			sig, err := s.crypto.FIPSSign(st.Range(dataPos, bodyLength))
			if err != nil {
				return 0, fmt.Errorf("%w: fips sign: %v", ErrCryptoFailure, err)
			}

			st.WriteBytes(sig[:])

			if err = s.crypto.FIPSEncrypt(st.Range(dataPos, bodyLength+pad)); err != nil {
				return 0, fmt.Errorf("%w: fips encrypt: %v", ErrCryptoFailure, err)
			}
		} else {
			dataPos := st.Pos() + macLength
			bodyLength := length - dataPos
			body := st.Range(dataPos, bodyLength)

			var (
				mac [macLength]byte
				err error
			)

			if secFlags&pdu.SecSecureChecksum != 0 {
				mac, err = s.crypto.SaltedMAC(body, true)
			} else {
				mac, err = s.crypto.MAC(body)
			}

			if err != nil {
				return 0, fmt.Errorf("%w: mac: %v", ErrCryptoFailure, err)
			}

			st.WriteBytes(mac[:])

			if err = s.crypto.Encrypt(st.Range(st.Pos(), bodyLength)); err != nil {
				return 0, fmt.Errorf("%w: encrypt: %v", ErrCryptoFailure, err)
			}
		}
	}

	s.secFlags = 0

	return pad, nil
}

// decrypt reverses the security envelope in place. length is the number of
// envelope-plus-payload bytes after the basic security header. On success the
// cursor sits at the start of the plaintext payload; for FIPS the buffer's
// valid length is shrunk by the pad.
//
// A standard-mode MAC mismatch is logged but does not abort processing unless
// strict validation is configured: standard RDP signing cannot stop a capable
// attacker, and lenient handling is required to interoperate with peers that
// produce invalid signatures.
func (s *Session) decrypt(st *stream.Stream, length int, securityFlags pdu.SecurityFlag) error {
	if s.crypto == nil {
		return fmt.Errorf("%w: no crypto suite", ErrCryptoFailure)
	}

	if s.encryptionMethod == EncryptionFIPS {
		fipsLength, err := st.ReadUint16()
		if err != nil {
			return err
		}

		version, err := st.ReadUint8()
		if err != nil {
			return err
		}

		if fipsLength != fipsHeaderLength || version != fipsVersion {
			logging.Warn("rdp: unexpected fips header: length 0x%X version %d", fipsLength, version)
		}

		pad, err := st.ReadUint8()
		if err != nil {
			return err
		}

		sig, err := st.ReadBytes(macLength)
		if err != nil {
			return err
		}

		length -= 4 + macLength

		if length < int(pad) || length > st.Left() {
			return stream.ErrTruncated
		}

		body := st.Range(st.Pos(), length)

		if err = s.crypto.FIPSDecrypt(body); err != nil {
			return fmt.Errorf("%w: fips decrypt: %v", ErrCryptoFailure, err)
		}

		ok, err := s.crypto.FIPSVerify(body[:length-int(pad)], sig)
		if err != nil {
			return fmt.Errorf("%w: fips verify: %v", ErrCryptoFailure, err)
		}

		if !ok {
			return ErrSignatureInvalid
		}

		st.ShrinkLength(int(pad))

		return nil
	}

	wmac, err := st.ReadBytes(macLength)
	if err != nil {
		return err
	}

	length -= macLength

	if length < 0 || length > st.Left() {
		return stream.ErrTruncated
	}

	body := st.Range(st.Pos(), length)

	if err = s.crypto.Decrypt(body); err != nil {
		return fmt.Errorf("%w: decrypt: %v", ErrCryptoFailure, err)
	}

	var cmac [macLength]byte

	if securityFlags&pdu.SecSecureChecksum != 0 {
		cmac, err = s.crypto.SaltedMAC(body, false)
	} else {
		cmac, err = s.crypto.MAC(body)
	}

	if err != nil {
		return fmt.Errorf("%w: mac: %v", ErrCryptoFailure, err)
	}

	if !bytes.Equal(wmac, cmac[:]) {
		logging.Warn("rdp: invalid packet signature")

		if s.strictMAC {
			return ErrSignatureInvalid
		}
	}

	return nil
}
