// Package encoding implements the PER (ASN.1 Packed Encoding Rules)
// length/integer primitives used by the MCS session layer, as specified in
// T.125 and MS-RDPBCGR.
package encoding

import (
	"encoding/binary"
	"io"
)

// PER reading functions

func PerReadChoice(r io.Reader) (uint8, error) {
	var choice uint8
	err := binary.Read(r, binary.BigEndian, &choice)

	return choice, err
}

func PerReadLength(r io.Reader) (int, error) {
	var (
		octet uint8
		size  int
		err   error
	)

	if err = binary.Read(r, binary.BigEndian, &octet); err != nil {
		return 0, err
	}

	if octet&0x80 != 0x80 {
		return int(octet), nil
	}

	octet &^= 0x80
	size = int(octet) << 8

	if err = binary.Read(r, binary.BigEndian, &octet); err != nil {
		return 0, err
	}

	size += int(octet)

	return size, nil
}

func PerReadInteger16(minimum uint16, r io.Reader) (uint16, error) {
	var num uint16

	if err := binary.Read(r, binary.BigEndian, &num); err != nil {
		return 0, err
	}

	num += minimum

	return num, nil
}

func PerReadEnumerates(r io.Reader) (uint8, error) {
	var num uint8
	err := binary.Read(r, binary.BigEndian, &num)

	return num, err
}

func PerReadInteger(r io.Reader) (uint32, error) {
	size, err := PerReadLength(r)
	if err != nil {
		return 0, err
	}

	switch size {
	case 0:
		return 0, nil
	case 1:
		var v uint8
		if err = binary.Read(r, binary.BigEndian, &v); err != nil {
			return 0, err
		}

		return uint32(v), nil
	case 2:
		var v uint16
		if err = binary.Read(r, binary.BigEndian, &v); err != nil {
			return 0, err
		}

		return uint32(v), nil
	default:
		var v uint32
		if err = binary.Read(r, binary.BigEndian, &v); err != nil {
			return 0, err
		}

		return v, nil
	}
}

// PER writing functions

func PerWriteChoice(choice uint8, w io.Writer) {
	_, _ = w.Write([]byte{
		choice,
	})
}

func PerWriteLength(value uint16, w io.Writer) {
	if value > 0x7f {
		_ = binary.Write(w, binary.BigEndian, value|0x8000)
		return
	}

	_, _ = w.Write([]byte{uint8(value)})
}

// PerWriteLongLength always uses the two-byte length form, even for values
// that would fit in one byte. The header width stays fixed so it can be
// reserved up front and backfilled once the payload length is known.
func PerWriteLongLength(value uint16, w io.Writer) {
	_ = binary.Write(w, binary.BigEndian, value|0x8000)
}

func PerWriteInteger16(value, minimum uint16, w io.Writer) {
	value -= minimum

	_ = binary.Write(w, binary.BigEndian, value)
}

func PerWriteEnumerates(num uint8, w io.Writer) {
	_, _ = w.Write([]byte{num})
}

func PerWriteInteger(value uint32, w io.Writer) {
	switch {
	case value <= 0xFF:
		PerWriteLength(1, w)
		_, _ = w.Write([]byte{uint8(value)}) // #nosec G115
	case value <= 0xFFFF:
		PerWriteLength(2, w)
		_ = binary.Write(w, binary.BigEndian, uint16(value)) // #nosec G115
	default:
		PerWriteLength(4, w)
		_ = binary.Write(w, binary.BigEndian, value)
	}
}
