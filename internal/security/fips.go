package security

import (
	"crypto/cipher"
	"crypto/des" // #nosec G502 -- mandated by RDP FIPS security
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 -- mandated by RDP FIPS signatures
	"crypto/subtle"
	"encoding/binary"
	"fmt"
)

// fipsIV is the fixed 3DES initialization vector of MS-RDPBCGR 5.3.6.2.
var fipsIV = []byte{0x12, 0x34, 0x56, 0x78, 0x90, 0xAB, 0xCD, 0xEF}

// FIPSSuite implements RDP FIPS security: 3DES-CBC encryption and the
// HMAC-SHA1 packet signature.
type FIPSSuite struct {
	signKey []byte

	encrypter cipher.BlockMode
	decrypter cipher.BlockMode

	signUseCount   uint32
	verifyUseCount uint32
}

// NewFIPSSuite builds a suite from the 24-byte 3DES keys and the HMAC
// signing key negotiated during the security exchange.
func NewFIPSSuite(signKey, encryptKey, decryptKey []byte) (*FIPSSuite, error) {
	encBlock, err := des.NewTripleDESCipher(encryptKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt key: %w", err)
	}

	decBlock, err := des.NewTripleDESCipher(decryptKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt key: %w", err)
	}

	return &FIPSSuite{
		signKey:   append([]byte(nil), signKey...),
		encrypter: cipher.NewCBCEncrypter(encBlock, fipsIV),
		decrypter: cipher.NewCBCDecrypter(decBlock, fipsIV),
	}, nil
}

// FIPSEncrypt encrypts b in place. The caller pads b to the 3DES block size
// beforehand.
func (s *FIPSSuite) FIPSEncrypt(b []byte) error {
	if len(b)%des.BlockSize != 0 {
		return fmt.Errorf("payload length %d not a multiple of the 3DES block size", len(b))
	}

	s.encrypter.CryptBlocks(b, b)

	return nil
}

// FIPSDecrypt decrypts b in place.
func (s *FIPSSuite) FIPSDecrypt(b []byte) error {
	if len(b)%des.BlockSize != 0 {
		return fmt.Errorf("payload length %d not a multiple of the 3DES block size", len(b))
	}

	s.decrypter.CryptBlocks(b, b)

	return nil
}

// FIPSSign computes the outbound packet signature over the cleartext body.
// The send and receive directions keep separate use counters.
func (s *FIPSSuite) FIPSSign(data []byte) ([8]byte, error) {
	s.signUseCount++

	return s.sign(data, s.signUseCount), nil
}

// FIPSVerify checks the signature of an inbound packet.
func (s *FIPSSuite) FIPSVerify(data, signature []byte) (bool, error) {
	s.verifyUseCount++
	expected := s.sign(data, s.verifyUseCount)

	return subtle.ConstantTimeCompare(expected[:], signature) == 1, nil
}

func (s *FIPSSuite) sign(data []byte, useCount uint32) [8]byte {
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], useCount)

	mac := hmac.New(sha1.New, s.signKey)
	mac.Write(data)
	mac.Write(count[:])
	digest := mac.Sum(nil)

	var sig [8]byte
	copy(sig[:], digest)

	return sig
}

// Encrypt is not available in the FIPS suite.
func (s *FIPSSuite) Encrypt([]byte) error { return ErrUnsupported }

// Decrypt is not available in the FIPS suite.
func (s *FIPSSuite) Decrypt([]byte) error { return ErrUnsupported }

// MAC is not available in the FIPS suite.
func (s *FIPSSuite) MAC([]byte) ([8]byte, error) { return [8]byte{}, ErrUnsupported }

// SaltedMAC is not available in the FIPS suite.
func (s *FIPSSuite) SaltedMAC([]byte, bool) ([8]byte, error) { return [8]byte{}, ErrUnsupported }
