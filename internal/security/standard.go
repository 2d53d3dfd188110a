// Package security implements the cryptographic primitives of the RDP
// per-packet security envelope: the standard (RC4 plus keyed MAC) and FIPS
// (3DES plus HMAC signature) suites of MS-RDPBCGR 5.3. All operations work
// in place over byte ranges, keyed by session key material fixed at
// construction.
package security

import (
	"crypto/md5"  // #nosec G501 -- mandated by the RDP standard security MAC
	"crypto/rc4"  // #nosec G503 -- mandated by RDP standard security
	"crypto/sha1" // #nosec G505 -- mandated by the RDP standard security MAC
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnsupported indicates the suite does not implement the requested mode.
var ErrUnsupported = errors.New("operation not supported by this security suite")

var (
	pad1 = bytes36(40)
	pad2 = bytes5C(48)
)

func bytes36(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0x36
	}
	return b
}

func bytes5C(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0x5C
	}
	return b
}

// keyUpdateInterval is the packet count after which the RC4 session keys are
// re-derived (MS-RDPBCGR 5.3.7).
const keyUpdateInterval = 4096

// StandardSuite implements RDP standard security: RC4 stream encryption and
// the SHA-1/MD5 packet MAC.
type StandardSuite struct {
	macKey []byte

	encryptKey       []byte
	encryptUpdateKey []byte
	encryptRC4       *rc4.Cipher
	encryptUseCount  uint32

	decryptKey       []byte
	decryptUpdateKey []byte
	decryptRC4       *rc4.Cipher
	decryptUseCount  uint32

	encryptChecksumUseCount uint32
	decryptChecksumUseCount uint32
}

// NewStandardSuite builds a suite from the session keys derived during the
// security exchange. Key length is 5 (40-bit), 8 (56-bit) or 16 (128-bit).
func NewStandardSuite(macKey, encryptKey, decryptKey []byte) (*StandardSuite, error) {
	s := &StandardSuite{
		macKey:           macKey,
		encryptKey:       append([]byte(nil), encryptKey...),
		encryptUpdateKey: append([]byte(nil), encryptKey...),
		decryptKey:       append([]byte(nil), decryptKey...),
		decryptUpdateKey: append([]byte(nil), decryptKey...),
	}

	var err error

	if s.encryptRC4, err = rc4.NewCipher(s.encryptKey); err != nil {
		return nil, fmt.Errorf("encrypt key: %w", err)
	}

	if s.decryptRC4, err = rc4.NewCipher(s.decryptKey); err != nil {
		return nil, fmt.Errorf("decrypt key: %w", err)
	}

	return s, nil
}

// Encrypt applies the outbound RC4 keystream in place, re-deriving the
// session key every 4096 packets.
func (s *StandardSuite) Encrypt(b []byte) error {
	if s.encryptUseCount >= keyUpdateInterval {
		if err := s.updateKey(&s.encryptKey, s.encryptUpdateKey, &s.encryptRC4); err != nil {
			return err
		}

		s.encryptUseCount = 0
	}

	s.encryptRC4.XORKeyStream(b, b)
	s.encryptUseCount++
	s.encryptChecksumUseCount++

	return nil
}

// Decrypt applies the inbound RC4 keystream in place.
func (s *StandardSuite) Decrypt(b []byte) error {
	if s.decryptUseCount >= keyUpdateInterval {
		if err := s.updateKey(&s.decryptKey, s.decryptUpdateKey, &s.decryptRC4); err != nil {
			return err
		}

		s.decryptUseCount = 0
	}

	s.decryptRC4.XORKeyStream(b, b)
	s.decryptUseCount++
	s.decryptChecksumUseCount++

	return nil
}

// MAC computes the standard 8-byte packet signature (MS-RDPBCGR 5.3.6.1).
func (s *StandardSuite) MAC(data []byte) ([8]byte, error) {
	return s.mac(data, nil), nil
}

// SaltedMAC computes the salted signature variant, folding in the packet
// counter of the matching direction (MS-RDPBCGR 5.3.6.1.1). An outbound
// signature salts with the counter value the receiver will hold when it
// checks, which is after its decrypt has already advanced it by one.
func (s *StandardSuite) SaltedMAC(data []byte, encrypting bool) ([8]byte, error) {
	count := s.decryptChecksumUseCount
	if encrypting {
		count = s.encryptChecksumUseCount + 1
	}

	var salt [4]byte
	binary.LittleEndian.PutUint32(salt[:], count)

	return s.mac(data, salt[:]), nil
}

func (s *StandardSuite) mac(data, salt []byte) [8]byte {
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(data))) // #nosec G115

	sha := sha1.New() // #nosec G401
	sha.Write(s.macKey)
	sha.Write(pad1)
	sha.Write(length[:])
	sha.Write(data)
	sha.Write(salt)
	shaDigest := sha.Sum(nil)

	md := md5.New() // #nosec G401
	md.Write(s.macKey)
	md.Write(pad2)
	md.Write(shaDigest)
	digest := md.Sum(nil)

	var mac [8]byte
	copy(mac[:], digest)

	return mac
}

// updateKey re-derives an RC4 session key from its update key
// (MS-RDPBCGR 5.3.7).
func (s *StandardSuite) updateKey(key *[]byte, updateKey []byte, cipher **rc4.Cipher) error {
	keyLength := len(*key)

	sha := sha1.New() // #nosec G401
	sha.Write(updateKey)
	sha.Write(pad1)
	sha.Write(*key)
	shaDigest := sha.Sum(nil)

	md := md5.New() // #nosec G401
	md.Write(updateKey)
	md.Write(pad2)
	md.Write(shaDigest)
	digest := md.Sum(nil)

	next := digest[:keyLength]

	scratch, err := rc4.NewCipher(next)
	if err != nil {
		return err
	}

	scratch.XORKeyStream(next, next)

	if keyLength == 5 {
		// 40-bit keys keep the fixed salt prefix.
		copy(next, []byte{0xD1, 0x26, 0x9E})
	}

	*key = next

	*cipher, err = rc4.NewCipher(next)

	return err
}

// FIPSEncrypt is not available in the standard suite.
func (s *StandardSuite) FIPSEncrypt([]byte) error { return ErrUnsupported }

// FIPSDecrypt is not available in the standard suite.
func (s *StandardSuite) FIPSDecrypt([]byte) error { return ErrUnsupported }

// FIPSSign is not available in the standard suite.
func (s *StandardSuite) FIPSSign([]byte) ([8]byte, error) { return [8]byte{}, ErrUnsupported }

// FIPSVerify is not available in the standard suite.
func (s *StandardSuite) FIPSVerify([]byte, []byte) (bool, error) { return false, ErrUnsupported }
