package fastpath

import (
	"fmt"

	"github.com/umair-akbar/neutrino-rdp/internal/logging"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/encoding"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
)

// UpdateHandler consumes one reassembled fast-path update payload.
type UpdateHandler interface {
	HandleUpdate(code UpdateCode, data []byte) error
}

// Decoder walks fast-path update PDUs, reassembling fragmented updates before
// handing them to the update handler.
type Decoder struct {
	handler UpdateHandler

	fragmentData []byte
	fragmented   bool
}

// NewDecoder returns a Decoder dispatching to handler.
func NewDecoder(handler UpdateHandler) *Decoder {
	return &Decoder{
		handler:      handler,
		fragmentData: make([]byte, 0, maxUpdateDataSize),
	}
}

// ReadHeader decodes the fast-path header octet and the one-or-two byte
// length field, returning the header and the number of payload bytes that
// follow. A zero or over-long declared length is a hard parse failure.
func ReadHeader(s *stream.Stream) (Header, int, error) {
	var header Header

	octet, err := s.ReadUint8()
	if err != nil {
		return header, 0, err
	}

	header.Action = octet & 0x03
	header.NumberEvents = (octet & 0x3C) >> 2
	header.EncryptionFlags = (octet & 0xC0) >> 6

	length, err := encoding.PerReadLength(s)
	if err != nil {
		return header, 0, stream.ErrTruncated
	}

	// The declared length covers the header bytes already consumed.
	length -= s.Pos()

	if length <= 0 || length > s.Left() {
		return header, 0, stream.ErrTruncated
	}

	return header, length, nil
}

// RecvUpdates walks the update PDUs in the decrypted payload. Unknown update
// codes are skipped; the declared size of every update is authoritative.
func (d *Decoder) RecvUpdates(s *stream.Stream) error {
	for s.Left() >= 3 {
		if err := d.recvUpdateData(s); err != nil {
			return err
		}
	}

	return nil
}

func (d *Decoder) recvUpdateData(s *stream.Stream) error {
	updateHeader, err := s.ReadUint8()
	if err != nil {
		return err
	}

	code := UpdateCode(updateHeader & 0x0F)
	fragmentation := (updateHeader >> 4) & 0x03
	compression := (updateHeader >> 6) & 0x03

	if compression&compressionUsed != 0 {
		if err = s.Skip(1); err != nil { // compressionFlags
			return err
		}
	}

	size, err := s.ReadUint16()
	if err != nil {
		return err
	}

	data, err := s.ReadBytes(int(size))
	if err != nil {
		return err
	}

	switch fragmentation {
	case fragmentSingle:
		return d.dispatch(code, data)

	case fragmentFirst:
		d.fragmentData = append(d.fragmentData[:0], data...)
		d.fragmented = true

	case fragmentNext:
		if !d.fragmented {
			return ErrUnexpectedFragment
		}

		d.fragmentData = append(d.fragmentData, data...)

	case fragmentLast:
		if !d.fragmented {
			return ErrUnexpectedFragment
		}

		d.fragmentData = append(d.fragmentData, data...)
		d.fragmented = false

		return d.dispatch(code, d.fragmentData)
	}

	return nil
}

func (d *Decoder) dispatch(code UpdateCode, data []byte) error {
	if d.handler == nil {
		logging.Debug("fastpath: no update handler, dropping update 0x%X (%d bytes)", uint8(code), len(data))
		return nil
	}

	if err := d.handler.HandleUpdate(code, data); err != nil {
		return fmt.Errorf("fastpath update 0x%X: %w", uint8(code), err)
	}

	return nil
}
