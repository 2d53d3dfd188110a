package tpkt

import "errors"

// ErrInvalidHeader indicates the packet does not start with the TPKT version octet.
var ErrInvalidHeader = errors.New("invalid tpkt header")
