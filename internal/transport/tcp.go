// Package transport provides the TCP byte-stream transport underneath an
// RDP session. It frames inbound traffic into whole packets, using the TPKT
// header for slow-path packets and the fast-path length encoding for
// everything else.
package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/tpkt"
)

const (
	dialTimeout    = 15 * time.Second
	readBufferSize = 64 * 1024
)

// ErrFrameTooShort indicates a framed packet whose declared length cannot
// hold its own header.
var ErrFrameTooShort = errors.New("transport: framed packet shorter than its header")

// TCP frames RDP packets over a TCP connection. It satisfies the session's
// Transport contract.
type TCP struct {
	conn        net.Conn
	reader      *bufio.Reader
	readTimeout time.Duration
	blocking    bool
}

// Dial connects to addr and returns a framing transport over the
// connection. readTimeout bounds non-blocking reads; zero disables it.
func Dial(addr string, readTimeout time.Duration) (*TCP, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("tcp connect: %w", err)
	}

	return NewTCP(conn, readTimeout), nil
}

// NewTCP wraps an established connection. The caller keeps responsibility
// for any TLS upgrade before handing the connection over.
func NewTCP(conn net.Conn, readTimeout time.Duration) *TCP {
	return &TCP{
		conn:        conn,
		reader:      bufio.NewReaderSize(conn, readBufferSize),
		readTimeout: readTimeout,
		blocking:    true,
	}
}

// RecvStreamInit returns an empty receive buffer sized for one packet.
func (t *TCP) RecvStreamInit(sizeHint int) *stream.Stream {
	return stream.New(sizeHint)
}

// SendStreamInit returns an empty send buffer sized for one packet.
func (t *TCP) SendStreamInit(sizeHint int) *stream.Stream {
	return stream.New(sizeHint)
}

// Read fills s with exactly one framed packet and rewinds it. The frame
// boundary comes from the TPKT header for slow-path packets and from the
// fast-path length encoding otherwise.
func (t *TCP) Read(s *stream.Stream) error {
	if !t.blocking && t.readTimeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		defer t.conn.SetReadDeadline(time.Time{}) //nolint:errcheck
	}

	first, err := t.reader.ReadByte()
	if err != nil {
		return fmt.Errorf("read packet: %w", err)
	}

	s.WriteUint8(first)

	var total int

	if first == tpkt.Version {
		var header [3]byte
		if _, err = io.ReadFull(t.reader, header[:]); err != nil {
			return fmt.Errorf("read tpkt header: %w", err)
		}

		s.WriteBytes(header[:])

		total = int(header[1])<<8 | int(header[2])
		if total < tpkt.HeaderLength {
			return ErrFrameTooShort
		}
	} else {
		length, err := t.readFastPathLength(s)
		if err != nil {
			return err
		}

		total = length
	}

	if remaining := total - s.Length(); remaining > 0 {
		body := make([]byte, remaining)
		if _, err = io.ReadFull(t.reader, body); err != nil {
			return fmt.Errorf("read packet body: %w", err)
		}

		s.WriteBytes(body)
	} else if remaining < 0 {
		return ErrFrameTooShort
	}

	s.Rewind()

	return nil
}

// readFastPathLength consumes the one or two byte fast-path length field,
// appending it to s, and returns the declared total packet length.
func (t *TCP) readFastPathLength(s *stream.Stream) (int, error) {
	b, err := t.reader.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("read fastpath length: %w", err)
	}

	s.WriteUint8(b)

	length := int(b)
	if b&0x80 != 0 {
		low, err := t.reader.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("read fastpath length: %w", err)
		}

		s.WriteUint8(low)

		length = (length &^ 0x80) << 8
		length |= int(low)
	}

	if length < s.Length() {
		return 0, ErrFrameTooShort
	}

	return length, nil
}

// Write sends the buffer's valid region in a single write.
func (t *TCP) Write(s *stream.Stream) error {
	if _, err := t.conn.Write(s.Bytes()); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}

	return nil
}

// SetBlocking toggles whether reads wait indefinitely or honor the
// configured timeout.
func (t *TCP) SetBlocking(blocking bool) {
	t.blocking = blocking
}

// Close shuts the connection down.
func (t *TCP) Close() error {
	return t.conn.Close()
}
