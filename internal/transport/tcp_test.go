package transport

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
)

// pipe returns a framing transport over one end of an in-memory connection
// and a writer feeding the other end from a goroutine.
func pipe(t *testing.T) (*TCP, func(data []byte)) {
	t.Helper()

	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	feed := func(data []byte) {
		go func() {
			_, _ = server.Write(data)
		}()
	}

	return NewTCP(client, 0), feed
}

func TestReadTPKTFrame(t *testing.T) {
	tr, feed := pipe(t)

	packet := []byte{0x03, 0x00, 0x00, 0x09, 0x02, 0xF0, 0x80, 0x20, 0x03}
	feed(packet)

	s := tr.RecvStreamInit(64)
	require.NoError(t, tr.Read(s))

	assert.Equal(t, packet, s.Bytes())
	assert.Equal(t, 0, s.Pos())
}

func TestReadSplitsConsecutiveFrames(t *testing.T) {
	tr, feed := pipe(t)

	first := []byte{0x03, 0x00, 0x00, 0x05, 0xAA}
	second := []byte{0x03, 0x00, 0x00, 0x06, 0xBB, 0xCC}
	feed(append(append([]byte(nil), first...), second...))

	s := tr.RecvStreamInit(64)
	require.NoError(t, tr.Read(s))
	assert.Equal(t, first, s.Bytes())

	s = tr.RecvStreamInit(64)
	require.NoError(t, tr.Read(s))
	assert.Equal(t, second, s.Bytes())
}

func TestReadFastPathShortFrame(t *testing.T) {
	tr, feed := pipe(t)

	packet := []byte{0x00, 0x05, 0x04, 0xAB, 0xCD}
	feed(packet)

	s := tr.RecvStreamInit(64)
	require.NoError(t, tr.Read(s))

	assert.Equal(t, packet, s.Bytes())
}

func TestReadFastPathLongFrame(t *testing.T) {
	tr, feed := pipe(t)

	body := make([]byte, 0x90-3)
	for i := range body {
		body[i] = byte(i)
	}

	packet := append([]byte{0x00, 0x80, 0x90}, body...)
	feed(packet)

	s := tr.RecvStreamInit(256)
	require.NoError(t, tr.Read(s))

	assert.Equal(t, packet, s.Bytes())
	assert.Equal(t, 0x90, s.Length())
}

func TestReadTPKTFrameTooShort(t *testing.T) {
	tr, feed := pipe(t)

	feed([]byte{0x03, 0x00, 0x00, 0x02})

	s := tr.RecvStreamInit(64)
	err := tr.Read(s)
	require.ErrorIs(t, err, ErrFrameTooShort)
}

func TestReadFastPathFrameTooShort(t *testing.T) {
	tr, feed := pipe(t)

	feed([]byte{0x00, 0x01})

	s := tr.RecvStreamInit(64)
	err := tr.Read(s)
	require.ErrorIs(t, err, ErrFrameTooShort)
}

func TestWriteSendsValidRegion(t *testing.T) {
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	tr := NewTCP(client, 0)

	received := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := server.Read(buf)
		received <- buf[:n]
	}()

	s := stream.New(16)
	s.WriteBytes([]byte{0x01, 0x02, 0x03})
	s.Rewind()

	require.NoError(t, tr.Write(s))
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, <-received)
}
