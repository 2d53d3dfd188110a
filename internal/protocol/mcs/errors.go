package mcs

import (
	"errors"
	"fmt"
)

// ErrUnexpectedApplication indicates a DomainMCSPDU choice other than the
// send-data kind legal for the local endpoint's role.
var ErrUnexpectedApplication = errors.New("unexpected mcs application")

// DisconnectError signals an orderly disconnect-provider ultimatum from the
// peer. It is a teardown signal, not a parse failure.
type DisconnectError struct {
	Reason uint8
}

func (e *DisconnectError) Error() string {
	return fmt.Sprintf("mcs disconnect provider ultimatum: %s", reasonString(e.Reason))
}

func reasonString(reason uint8) string {
	switch reason {
	case RNDomainDisconnected:
		return "domain disconnected"
	case RNProviderInitiated:
		return "provider initiated"
	case RNTokenPurged:
		return "token purged"
	case RNUserRequested:
		return "user requested"
	case RNChannelPurged:
		return "channel purged"
	default:
		return fmt.Sprintf("unknown (%d)", reason)
	}
}
