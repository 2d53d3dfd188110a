// Package fastpath implements the RDP Fast-Path framing as specified in
// MS-RDPBCGR 2.2.9.1.2. Fast-Path trades the generality of the slow-path
// TPKT/MCS stack for a compact two-or-three byte header.
package fastpath

// Encryption flags carried in the two high bits of the fast-path header octet.
const (
	// SecureChecksum FASTPATH_OUTPUT_SECURE_CHECKSUM
	SecureChecksum uint8 = 0x1

	// Encrypted FASTPATH_OUTPUT_ENCRYPTED
	Encrypted uint8 = 0x2
)

// UpdateCode identifies a fast-path update PDU (MS-RDPBCGR 2.2.9.1.2.1).
type UpdateCode uint8

const (
	UpdateCodeOrders      UpdateCode = 0x0
	UpdateCodeBitmap      UpdateCode = 0x1
	UpdateCodePalette     UpdateCode = 0x2
	UpdateCodeSynchronize UpdateCode = 0x3
	UpdateCodeSurfaceCmds UpdateCode = 0x4
	UpdateCodePtrNull     UpdateCode = 0x5
	UpdateCodePtrDefault  UpdateCode = 0x6
	UpdateCodePtrPosition UpdateCode = 0x8
	UpdateCodeColor       UpdateCode = 0x9
	UpdateCodeCached      UpdateCode = 0xA
	UpdateCodePointer     UpdateCode = 0xB
)

// Fragmentation values of the update header (MS-RDPBCGR 2.2.9.1.2.1).
const (
	fragmentSingle uint8 = 0x0
	fragmentLast   uint8 = 0x1
	fragmentFirst  uint8 = 0x2
	fragmentNext   uint8 = 0x3
)

// compressionUsed marks the presence of the compressionFlags octet.
const compressionUsed uint8 = 0x2

// Header is the decoded fast-path header octet.
type Header struct {
	Action          uint8
	NumberEvents    uint8
	EncryptionFlags uint8
}

// IsEncrypted reports whether the payload carries the per-packet security
// envelope.
func (h Header) IsEncrypted() bool {
	return h.EncryptionFlags&Encrypted != 0
}

// IsSecureChecksum reports whether the salted MAC variant applies.
func (h Header) IsSecureChecksum() bool {
	return h.EncryptionFlags&SecureChecksum != 0
}

const maxUpdateDataSize = 64 * 1024
