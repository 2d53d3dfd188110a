package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBounds(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(s *Stream) error
	}{
		{
			name: "uint8 on empty",
			data: []byte{},
			read: func(s *Stream) error { _, err := s.ReadUint8(); return err },
		},
		{
			name: "uint16 on one byte",
			data: []byte{0x01},
			read: func(s *Stream) error { _, err := s.ReadUint16(); return err },
		},
		{
			name: "uint32 on three bytes",
			data: []byte{0x01, 0x02, 0x03},
			read: func(s *Stream) error { _, err := s.ReadUint32(); return err },
		},
		{
			name: "bytes past end",
			data: []byte{0x01, 0x02},
			read: func(s *Stream) error { _, err := s.ReadBytes(3); return err },
		},
		{
			name: "skip past end",
			data: []byte{0x01},
			read: func(s *Stream) error { return s.Skip(2) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(Wrap(tt.data))
			assert.ErrorIs(t, err, ErrTruncated)
		})
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	s := New(16)
	s.WriteUint8(0xAB)
	s.WriteUint16(0x1234)
	s.WriteUint16BE(0x5678)
	s.WriteUint32(0xDEADBEEF)

	s.Rewind()

	v8, err := s.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), v8)

	v16, err := s.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v16)

	v16be, err := s.ReadUint16BE()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x5678), v16be)

	v32, err := s.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v32)

	assert.Equal(t, 0, s.Left())
}

func TestBackfill(t *testing.T) {
	s := New(16)
	s.Seek(4) // reserve header space
	s.WriteBytes([]byte{0xAA, 0xBB})

	length := s.Length()
	require.Equal(t, 6, length)

	s.Rewind()
	s.WriteUint16BE(uint16(length))
	s.WriteUint16BE(0xFFFF)
	s.SetPos(length)

	assert.Equal(t, []byte{0x00, 0x06, 0xFF, 0xFF, 0xAA, 0xBB}, s.Bytes())
	assert.Equal(t, length, s.Pos())
}

func TestShrinkLength(t *testing.T) {
	s := Wrap([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	s.SetPos(2)

	s.ShrinkLength(3)

	assert.Equal(t, 5, s.Length())
	assert.Equal(t, 3, s.Left())
}

func TestRange(t *testing.T) {
	s := Wrap([]byte{1, 2, 3, 4, 5})

	view := s.Range(1, 3)
	assert.Equal(t, []byte{2, 3, 4}, view)

	// The view aliases the backing array.
	view[0] = 0xFF
	assert.Equal(t, []byte{1, 0xFF, 3, 4, 5}, s.Bytes())
}

func TestSeekGrows(t *testing.T) {
	s := New(2)
	s.Seek(10)

	assert.Equal(t, 10, s.Length())
	assert.Equal(t, 10, s.Pos())

	s.WriteUint8(0x42)
	assert.Equal(t, 11, s.Length())
}

func TestIoInterfaces(t *testing.T) {
	s := New(8)

	n, err := s.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.WriteByte(4))

	s.Rewind()

	buf := make([]byte, 2)
	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{1, 2}, buf)

	b, err := s.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(3), b)
}
