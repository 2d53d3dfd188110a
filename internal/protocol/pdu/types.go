// Package pdu implements the RDP security, share control, and share data
// header codecs used by slow-path framing, as specified in MS-RDPBCGR
// 2.2.8.1.1.1 and 2.2.9.1.1.
package pdu

// SecurityFlag is the basic security header flag bitfield (MS-RDPBCGR 2.2.8.1.1.2.1).
type SecurityFlag uint16

const (
	// SecExchangePkt SEC_EXCHANGE_PKT
	SecExchangePkt SecurityFlag = 0x0001

	// SecEncrypt SEC_ENCRYPT
	SecEncrypt SecurityFlag = 0x0008

	// SecResetSeqno SEC_RESET_SEQNO
	SecResetSeqno SecurityFlag = 0x0010

	// SecIgnoreSeqno SEC_IGNORE_SEQNO
	SecIgnoreSeqno SecurityFlag = 0x0020

	// SecInfoPkt SEC_INFO_PKT
	SecInfoPkt SecurityFlag = 0x0040

	// SecLicensePkt SEC_LICENSE_PKT
	SecLicensePkt SecurityFlag = 0x0080

	// SecLicenseEncryptCS SEC_LICENSE_ENCRYPT_CS
	SecLicenseEncryptCS SecurityFlag = 0x0200

	// SecRedirectionPkt SEC_REDIRECTION_PKT
	SecRedirectionPkt SecurityFlag = 0x0400

	// SecSecureChecksum SEC_SECURE_CHECKSUM
	SecSecureChecksum SecurityFlag = 0x0800
)

// Type represents the 4-bit PDU type field in share control headers
// (MS-RDPBCGR 2.2.8.1.1.1.1). On the wire the upper bits carry a protocol
// version tag which the codec masks off on read and sets on write.
type Type uint16

const (
	// TypeDemandActive PDUTYPE_DEMANDACTIVEPDU
	TypeDemandActive Type = 0x1

	// TypeConfirmActive PDUTYPE_CONFIRMACTIVEPDU
	TypeConfirmActive Type = 0x3

	// TypeDeactivateAll PDUTYPE_DEACTIVATEALLPDU
	TypeDeactivateAll Type = 0x6

	// TypeData PDUTYPE_DATAPDU
	TypeData Type = 0x7

	// TypeServerRedirection PDUTYPE_SERVER_REDIR_PKT
	TypeServerRedirection Type = 0xA
)

// IsDemandActive returns true if the PDU type is Demand Active.
func (t Type) IsDemandActive() bool {
	return t == TypeDemandActive
}

// IsConfirmActive returns true if the PDU type is Confirm Active.
func (t Type) IsConfirmActive() bool {
	return t == TypeConfirmActive
}

// IsDeactivateAll returns true if the PDU type is Deactivate All.
func (t Type) IsDeactivateAll() bool {
	return t == TypeDeactivateAll
}

// IsData returns true if the PDU type is Data.
func (t Type) IsData() bool {
	return t == TypeData
}

// IsServerRedirection returns true if the PDU type is Server Redirection.
func (t Type) IsServerRedirection() bool {
	return t == TypeServerRedirection
}

// Type2 represents the data PDU subtype field in share data headers
// (MS-RDPBCGR 2.2.8.1.1.1.2).
type Type2 uint8

const (
	// Type2Update PDUTYPE2_UPDATE
	Type2Update Type2 = 0x02

	// Type2Control PDUTYPE2_CONTROL
	Type2Control Type2 = 0x14

	// Type2Pointer PDUTYPE2_POINTER
	Type2Pointer Type2 = 0x1B

	// Type2Input PDUTYPE2_INPUT
	Type2Input Type2 = 0x1C

	// Type2Synchronize PDUTYPE2_SYNCHRONIZE
	Type2Synchronize Type2 = 0x1F

	// Type2RefreshRect PDUTYPE2_REFRESH_RECT
	Type2RefreshRect Type2 = 0x21

	// Type2PlaySound PDUTYPE2_PLAY_SOUND
	Type2PlaySound Type2 = 0x22

	// Type2SuppressOutput PDUTYPE2_SUPPRESS_OUTPUT
	Type2SuppressOutput Type2 = 0x23

	// Type2ShutdownRequest PDUTYPE2_SHUTDOWN_REQUEST
	Type2ShutdownRequest Type2 = 0x24

	// Type2ShutdownDenied PDUTYPE2_SHUTDOWN_DENIED
	Type2ShutdownDenied Type2 = 0x25

	// Type2SaveSessionInfo PDUTYPE2_SAVE_SESSION_INFO
	Type2SaveSessionInfo Type2 = 0x26

	// Type2Fontlist PDUTYPE2_FONTLIST
	Type2Fontlist Type2 = 0x27

	// Type2Fontmap PDUTYPE2_FONTMAP
	Type2Fontmap Type2 = 0x28

	// Type2SetKeyboardIndicators PDUTYPE2_SET_KEYBOARD_INDICATORS
	Type2SetKeyboardIndicators Type2 = 0x29

	// Type2BitmapCachePersistentList PDUTYPE2_BITMAPCACHE_PERSISTENT_LIST
	Type2BitmapCachePersistentList Type2 = 0x2B

	// Type2BitmapCacheError PDUTYPE2_BITMAPCACHE_ERROR_PDU
	Type2BitmapCacheError Type2 = 0x2C

	// Type2SetKeyboardImeStatus PDUTYPE2_SET_KEYBOARD_IME_STATUS
	Type2SetKeyboardImeStatus Type2 = 0x2D

	// Type2OffscreenCacheError PDUTYPE2_OFFSCRCACHE_ERROR_PDU
	Type2OffscreenCacheError Type2 = 0x2E

	// Type2ErrorInfo PDUTYPE2_SET_ERROR_INFO_PDU
	Type2ErrorInfo Type2 = 0x2F

	// Type2DrawNineGridError PDUTYPE2_DRAWNINEGRID_ERROR_PDU
	Type2DrawNineGridError Type2 = 0x30

	// Type2DrawGdiPlusError PDUTYPE2_DRAWGDIPLUS_ERROR_PDU
	Type2DrawGdiPlusError Type2 = 0x31

	// Type2ArcStatus PDUTYPE2_ARC_STATUS_PDU
	Type2ArcStatus Type2 = 0x32

	// Type2StatusInfo PDUTYPE2_STATUS_INFO_PDU
	Type2StatusInfo Type2 = 0x36

	// Type2MonitorLayout PDUTYPE2_MONITOR_LAYOUT_PDU
	Type2MonitorLayout Type2 = 0x37

	// Type2FrameAcknowledge PDUTYPE2_FRAME_ACKNOWLEDGE
	Type2FrameAcknowledge Type2 = 0x38
)

var type2Names = map[Type2]string{
	Type2Update:                    "Update",
	Type2Control:                   "Control",
	Type2Pointer:                   "Pointer",
	Type2Input:                     "Input",
	Type2Synchronize:               "Synchronize",
	Type2RefreshRect:               "Refresh Rect",
	Type2PlaySound:                 "Play Sound",
	Type2SuppressOutput:            "Suppress Output",
	Type2ShutdownRequest:           "Shutdown Request",
	Type2ShutdownDenied:            "Shutdown Denied",
	Type2SaveSessionInfo:           "Save Session Info",
	Type2Fontlist:                  "Font List",
	Type2Fontmap:                   "Font Map",
	Type2SetKeyboardIndicators:     "Set Keyboard Indicators",
	Type2BitmapCachePersistentList: "Bitmap Cache Persistent List",
	Type2BitmapCacheError:          "Bitmap Cache Error",
	Type2SetKeyboardImeStatus:      "Set Keyboard IME Status",
	Type2OffscreenCacheError:       "Offscreen Cache Error",
	Type2ErrorInfo:                 "Set Error Info",
	Type2DrawNineGridError:         "Draw Nine Grid Error",
	Type2DrawGdiPlusError:          "Draw GDI+ Error",
	Type2ArcStatus:                 "ARC Status",
	Type2StatusInfo:                "Status Info",
	Type2MonitorLayout:             "Monitor Layout",
	Type2FrameAcknowledge:          "Frame Acknowledge",
}

// String returns the MS-RDPBCGR name of the data PDU subtype.
func (t Type2) String() string {
	if name, ok := type2Names[t]; ok {
		return name
	}

	return "Unknown"
}

// Compression fields of the share data header (MS-RDPBCGR 3.1.8.2.1).
const (
	// CompressionTypeMask masks the compression package id.
	CompressionTypeMask uint8 = 0x0F

	// PacketCompressed PACKET_COMPRESSED
	PacketCompressed uint8 = 0x20

	// PacketAtFront PACKET_AT_FRONT
	PacketAtFront uint8 = 0x40

	// PacketFlushed PACKET_FLUSHED
	PacketFlushed uint8 = 0x80
)

// StreamLow is the low-priority stream id written in outbound share data headers.
const StreamLow uint8 = 0x01
