// Package stream implements the mutable packet buffer used by every framing
// layer: a growable byte region with an explicit read/write position, so
// headers can be backfilled after the payload length is known and payloads
// can be decrypted in place.
package stream

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrTruncated indicates a read past the end of the valid region. A declared
// length that exceeds the available bytes is always fatal to the packet.
var ErrTruncated = errors.New("truncated packet")

// Stream is a byte buffer with a cursor. The zero value is not usable;
// construct with New or Wrap. A Stream is owned by a single call chain and
// must not be shared between goroutines.
type Stream struct {
	data []byte
	pos  int
}

// New returns a Stream with the given capacity and zero length.
func New(size int) *Stream {
	return &Stream{data: make([]byte, 0, size)}
}

// Wrap returns a Stream reading from data. The length of data is the valid
// region; the cursor starts at 0.
func Wrap(data []byte) *Stream {
	return &Stream{data: data}
}

// Pos returns the current cursor position.
func (s *Stream) Pos() int { return s.pos }

// SetPos moves the cursor to an absolute position, growing the valid region
// if pos exceeds it.
func (s *Stream) SetPos(pos int) {
	s.ensure(pos)
	s.pos = pos
}

// Seek advances the cursor by n bytes, growing the valid region as needed.
func (s *Stream) Seek(n int) {
	s.SetPos(s.pos + n)
}

// Rewind moves the cursor back to position 0.
func (s *Stream) Rewind() { s.pos = 0 }

// Left returns the number of valid bytes after the cursor.
func (s *Stream) Left() int { return len(s.data) - s.pos }

// Length returns the total valid length of the buffer.
func (s *Stream) Length() int { return len(s.data) }

// ShrinkLength reduces the valid length by n bytes (used to drop block
// padding after decryption).
func (s *Stream) ShrinkLength(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[:len(s.data)-n]
	if s.pos > len(s.data) {
		s.pos = len(s.data)
	}
}

// Bytes returns the whole valid region.
func (s *Stream) Bytes() []byte { return s.data }

// Remaining returns the valid region after the cursor without consuming it.
func (s *Stream) Remaining() []byte { return s.data[s.pos:] }

// Range returns the valid sub-region [from, from+n). It is a view over the
// underlying buffer, used for in-place cryptographic transforms.
func (s *Stream) Range(from, n int) []byte { return s.data[from : from+n] }

func (s *Stream) ensure(end int) {
	if end <= len(s.data) {
		return
	}
	if end <= cap(s.data) {
		s.data = s.data[:end]
		return
	}
	grown := make([]byte, end, end*2)
	copy(grown, s.data)
	s.data = grown
}

// ReadUint8 reads one byte at the cursor.
func (s *Stream) ReadUint8() (uint8, error) {
	if s.Left() < 1 {
		return 0, ErrTruncated
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// ReadUint16 reads a little-endian uint16.
func (s *Stream) ReadUint16() (uint16, error) {
	if s.Left() < 2 {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

// ReadUint16BE reads a big-endian uint16.
func (s *Stream) ReadUint16BE() (uint16, error) {
	if s.Left() < 2 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

// ReadUint32 reads a little-endian uint32.
func (s *Stream) ReadUint32() (uint32, error) {
	if s.Left() < 4 {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

// ReadBytes consumes and returns n bytes.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if s.Left() < n {
		return nil, ErrTruncated
	}
	b := s.data[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

// Skip consumes n bytes without returning them.
func (s *Stream) Skip(n int) error {
	if s.Left() < n {
		return ErrTruncated
	}
	s.pos += n
	return nil
}

// WriteUint8 writes one byte at the cursor.
func (s *Stream) WriteUint8(v uint8) {
	s.ensure(s.pos + 1)
	s.data[s.pos] = v
	s.pos++
}

// WriteUint16 writes a little-endian uint16.
func (s *Stream) WriteUint16(v uint16) {
	s.ensure(s.pos + 2)
	binary.LittleEndian.PutUint16(s.data[s.pos:], v)
	s.pos += 2
}

// WriteUint16BE writes a big-endian uint16.
func (s *Stream) WriteUint16BE(v uint16) {
	s.ensure(s.pos + 2)
	binary.BigEndian.PutUint16(s.data[s.pos:], v)
	s.pos += 2
}

// WriteUint32 writes a little-endian uint32.
func (s *Stream) WriteUint32(v uint32) {
	s.ensure(s.pos + 4)
	binary.LittleEndian.PutUint32(s.data[s.pos:], v)
	s.pos += 4
}

// WriteBytes writes b at the cursor.
func (s *Stream) WriteBytes(b []byte) {
	s.ensure(s.pos + len(b))
	copy(s.data[s.pos:], b)
	s.pos += len(b)
}

// Zero writes n zero bytes at the cursor.
func (s *Stream) Zero(n int) {
	s.ensure(s.pos + n)
	for i := 0; i < n; i++ {
		s.data[s.pos+i] = 0
	}
	s.pos += n
}

// Read implements io.Reader over the valid region after the cursor.
func (s *Stream) Read(p []byte) (int, error) {
	if s.Left() == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += n
	return n, nil
}

// ReadByte implements io.ByteReader.
func (s *Stream) ReadByte() (byte, error) {
	if s.Left() == 0 {
		return 0, io.EOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// Write implements io.Writer at the cursor.
func (s *Stream) Write(p []byte) (int, error) {
	s.WriteBytes(p)
	return len(p), nil
}

// WriteByte implements io.ByteWriter.
func (s *Stream) WriteByte(b byte) error {
	s.WriteUint8(b)
	return nil
}
