package fastpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umair-akbar/neutrino-rdp/internal/protocol/stream"
)

func TestInputEventPDUSerialize(t *testing.T) {
	tests := []struct {
		name     string
		pdu      *InputEventPDU
		expected []byte
	}{
		{
			name:     "single event",
			pdu:      NewInputEventPDU([]byte{0x01, 0x02}),
			expected: []byte{0x04, 0x04, 0x01, 0x02},
		},
		{
			name: "encryption flags set",
			pdu: &InputEventPDU{
				NumEvents: 1,
				Flags:     Encrypted | SecureChecksum,
				EventData: []byte{0x30, 0x35, 0x6B},
			},
			expected: []byte{0xC4, 0x05, 0x30, 0x35, 0x6B},
		},
		{
			name: "multiple events",
			pdu: &InputEventPDU{
				NumEvents: 3,
				EventData: []byte{0xAA, 0xBB, 0xCC},
			},
			expected: []byte{0x0C, 0x05, 0xAA, 0xBB, 0xCC},
		},
		{
			name:     "empty event data",
			pdu:      &InputEventPDU{},
			expected: []byte{0x00, 0x02},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.pdu.Serialize())
		})
	}
}

func TestInputEventPDUSerializeLongForm(t *testing.T) {
	data := make([]byte, 0x80)
	pdu := NewInputEventPDU(data)

	wire := pdu.Serialize()

	// 1 header + 2 length + 0x80 payload; the declared length covers all
	// of them.
	require.Len(t, wire, 3+0x80)
	assert.Equal(t, uint8(0x04), wire[0])
	assert.Equal(t, uint8(0x80), wire[1]&0x80)
	assert.Equal(t, 3+0x80, int(wire[1]&0x7F)<<8|int(wire[2]))
}

func TestReadHeader(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		header  Header
		length  int
		wantErr bool
	}{
		{
			name:   "plain update",
			data:   []byte{0x00, 0x05, 0xAA, 0xBB, 0xCC},
			header: Header{},
			length: 3,
		},
		{
			name:   "encrypted with events",
			data:   []byte{0x84, 0x04, 0x11, 0x22},
			header: Header{NumberEvents: 1, EncryptionFlags: Encrypted},
			length: 2,
		},
		{
			name:   "two byte length",
			data:   append([]byte{0x00, 0x80, 0x07}, make([]byte, 4)...),
			header: Header{},
			length: 4,
		},
		{
			name:    "zero declared length",
			data:    []byte{0x00, 0x00, 0xAA},
			wantErr: true,
		},
		{
			name:    "declared length beyond buffer",
			data:    []byte{0x00, 0x10, 0xAA},
			wantErr: true,
		},
		{
			name:    "length only covers header",
			data:    []byte{0x00, 0x02},
			wantErr: true,
		},
		{
			name:    "empty",
			data:    []byte{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, length, err := ReadHeader(stream.Wrap(tt.data))
			if tt.wantErr {
				assert.ErrorIs(t, err, stream.ErrTruncated)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.header, header)
			assert.Equal(t, tt.length, length)
		})
	}
}

type captureHandler struct {
	codes   []UpdateCode
	updates [][]byte
	err     error
}

func (h *captureHandler) HandleUpdate(code UpdateCode, data []byte) error {
	h.codes = append(h.codes, code)
	h.updates = append(h.updates, append([]byte(nil), data...))

	return h.err
}

func updateData(code UpdateCode, fragmentation uint8, data []byte) []byte {
	out := []byte{uint8(code) | fragmentation<<4, uint8(len(data)), uint8(len(data) >> 8)}

	return append(out, data...)
}

func TestRecvUpdatesSingle(t *testing.T) {
	handler := &captureHandler{}
	d := NewDecoder(handler)

	payload := updateData(UpdateCodeBitmap, fragmentSingle, []byte{1, 2, 3})
	payload = append(payload, updateData(UpdateCodeSynchronize, fragmentSingle, nil)...)

	require.NoError(t, d.RecvUpdates(stream.Wrap(payload)))

	require.Len(t, handler.codes, 2)
	assert.Equal(t, UpdateCodeBitmap, handler.codes[0])
	assert.Equal(t, []byte{1, 2, 3}, handler.updates[0])
	assert.Equal(t, UpdateCodeSynchronize, handler.codes[1])
}

func TestRecvUpdatesReassembly(t *testing.T) {
	handler := &captureHandler{}
	d := NewDecoder(handler)

	payload := updateData(UpdateCodeOrders, fragmentFirst, []byte{1, 2})
	payload = append(payload, updateData(UpdateCodeOrders, fragmentNext, []byte{3})...)
	payload = append(payload, updateData(UpdateCodeOrders, fragmentLast, []byte{4, 5})...)

	require.NoError(t, d.RecvUpdates(stream.Wrap(payload)))

	require.Len(t, handler.updates, 1)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, handler.updates[0])
}

func TestRecvUpdatesUnexpectedFragment(t *testing.T) {
	d := NewDecoder(&captureHandler{})

	payload := updateData(UpdateCodeOrders, fragmentNext, []byte{1})

	err := d.RecvUpdates(stream.Wrap(payload))
	assert.ErrorIs(t, err, ErrUnexpectedFragment)
}

func TestRecvUpdatesCompressionFlagsSkipped(t *testing.T) {
	handler := &captureHandler{}
	d := NewDecoder(handler)

	// compression present bit, one compressionFlags octet before the size.
	payload := []byte{uint8(UpdateCodePalette) | compressionUsed<<6, 0x21, 0x02, 0x00, 0xAB, 0xCD}

	require.NoError(t, d.RecvUpdates(stream.Wrap(payload)))

	require.Len(t, handler.updates, 1)
	assert.Equal(t, UpdateCodePalette, handler.codes[0])
	assert.Equal(t, []byte{0xAB, 0xCD}, handler.updates[0])
}

func TestRecvUpdatesTruncatedSize(t *testing.T) {
	d := NewDecoder(&captureHandler{})

	// Declared update size exceeds the remaining payload.
	payload := []byte{uint8(UpdateCodeBitmap), 0x10, 0x00, 0xAA}

	err := d.RecvUpdates(stream.Wrap(payload))
	assert.ErrorIs(t, err, stream.ErrTruncated)
}
