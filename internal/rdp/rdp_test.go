package rdp

import (
	"io"

	"github.com/umair-akbar/neutrino-rdp/internal/protocol/fastpath"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
)

// fakeTransport queues inbound packets and captures outbound ones.
type fakeTransport struct {
	inbound  [][]byte
	sent     [][]byte
	blocking bool
	closed   bool
}

func (t *fakeTransport) RecvStreamInit(sizeHint int) *stream.Stream {
	return stream.New(sizeHint)
}

func (t *fakeTransport) Read(s *stream.Stream) error {
	if len(t.inbound) == 0 {
		return io.EOF
	}

	s.WriteBytes(t.inbound[0])
	s.Rewind()
	t.inbound = t.inbound[1:]

	return nil
}

func (t *fakeTransport) SendStreamInit(sizeHint int) *stream.Stream {
	return stream.New(sizeHint)
}

func (t *fakeTransport) Write(s *stream.Stream) error {
	t.sent = append(t.sent, append([]byte(nil), s.Bytes()...))

	return nil
}

func (t *fakeTransport) SetBlocking(blocking bool) { t.blocking = blocking }

func (t *fakeTransport) Close() error {
	t.closed = true

	return nil
}

func (t *fakeTransport) queue(packets ...[]byte) {
	t.inbound = append(t.inbound, packets...)
}

func (t *fakeTransport) lastSent() []byte {
	if len(t.sent) == 0 {
		return nil
	}

	return t.sent[len(t.sent)-1]
}

func newTestStream(data []byte) *stream.Stream {
	s := stream.New(len(data) + 16)
	s.WriteBytes(data)
	s.Rewind()

	return s
}

// fakeCrypto is a deterministic stand-in for the cryptographic collaborator:
// a XOR stream cipher and an additive checksum.
type fakeCrypto struct {
	xorKey      byte
	fipsLengths []int
}

func (c *fakeCrypto) xor(b []byte) {
	for i := range b {
		b[i] ^= c.xorKey
	}
}

func (c *fakeCrypto) sum(data []byte, salt byte) [8]byte {
	total := salt

	for _, b := range data {
		total += b
	}

	var mac [8]byte
	for i := range mac {
		mac[i] = total + byte(i)
	}

	return mac
}

func (c *fakeCrypto) Encrypt(b []byte) error { c.xor(b); return nil }
func (c *fakeCrypto) Decrypt(b []byte) error { c.xor(b); return nil }

func (c *fakeCrypto) MAC(data []byte) ([8]byte, error) {
	return c.sum(data, 0), nil
}

func (c *fakeCrypto) SaltedMAC(data []byte, encrypting bool) ([8]byte, error) {
	return c.sum(data, 1), nil
}

func (c *fakeCrypto) FIPSEncrypt(b []byte) error {
	c.fipsLengths = append(c.fipsLengths, len(b))
	c.xor(b)

	return nil
}

func (c *fakeCrypto) FIPSDecrypt(b []byte) error {
	c.xor(b)

	return nil
}

func (c *fakeCrypto) FIPSSign(data []byte) ([8]byte, error) {
	return c.sum(data, 2), nil
}

func (c *fakeCrypto) FIPSVerify(data, signature []byte) (bool, error) {
	expected := c.sum(data, 2)

	for i := range expected {
		if signature[i] != expected[i] {
			return false, nil
		}
	}

	return true, nil
}

// fakeChannelHandler records virtual channel payloads.
type fakeChannelHandler struct {
	channelIDs []uint16
	payloads   [][]byte
}

func (h *fakeChannelHandler) HandleChannelData(channelID uint16, s *stream.Stream) error {
	h.channelIDs = append(h.channelIDs, channelID)
	h.payloads = append(h.payloads, append([]byte(nil), s.Remaining()...))

	return nil
}

// fakeRedirectionHandler records redirection deliveries.
type fakeRedirectionHandler struct {
	calls int
}

func (h *fakeRedirectionHandler) HandleRedirection(s *stream.Stream) error {
	h.calls++

	return nil
}

// fakeUpdateHandler records fast-path updates.
type fakeUpdateHandler struct {
	codes   []uint8
	updates [][]byte
}

func (h *fakeUpdateHandler) HandleUpdate(code fastpath.UpdateCode, data []byte) error {
	h.codes = append(h.codes, uint8(code))
	h.updates = append(h.updates, append([]byte(nil), data...))

	return nil
}
