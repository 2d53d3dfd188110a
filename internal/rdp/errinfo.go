package rdp

import "fmt"

// Server-supplied error info codes (MS-RDPBCGR 2.2.5.1.1). Only the codes
// commonly seen in the field are named; everything else is reported raw.
var errorInfoNames = map[uint32]string{
	0x00000001: "disconnected by administrator",
	0x00000002: "disconnected by user",
	0x00000003: "idle timeout reached",
	0x00000004: "logon timeout reached",
	0x00000005: "replaced by another connection",
	0x00000006: "out of memory",
	0x00000007: "server denied connection",
	0x00000009: "insufficient access privileges",
	0x0000000A: "fresh credentials required",
	0x0000000B: "disconnected by user logoff",
	0x0000000C: "logon failed or warning",
	0x00000100: "licensing: no license server",
	0x00000101: "licensing: no license",
	0x00000102: "licensing: bad client message",
	0x00000103: "licensing: hwid doesn't match license",
	0x00000104: "licensing: bad client license",
	0x00000105: "licensing: can't finish protocol",
	0x00000106: "licensing: client ended protocol",
	0x00000107: "licensing: bad client encryption",
	0x00000108: "licensing: can't upgrade license",
	0x00000109: "licensing: no remote connections",
	0x000010C9: "unknown pdu type2",
	0x000010CA: "unknown pdu type",
	0x000010CB: "data pdu sequence error",
	0x000010CD: "control pdu sequence error",
	0x00001192: "decrypt failed",
	0x00001194: "encrypt failed",
}

func errorInfoString(code uint32) string {
	if name, ok := errorInfoNames[code]; ok {
		return name
	}

	return fmt.Sprintf("unknown error 0x%08X", code)
}
