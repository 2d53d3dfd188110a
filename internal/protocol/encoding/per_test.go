package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerReadLength(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected int
		wantErr  bool
	}{
		{
			name:     "short form",
			input:    []byte{0x2A},
			expected: 0x2A,
		},
		{
			name:     "short form maximum",
			input:    []byte{0x7F},
			expected: 0x7F,
		},
		{
			name:     "long form",
			input:    []byte{0x81, 0x90},
			expected: 0x0190,
		},
		{
			name:     "long form small value",
			input:    []byte{0x80, 0x08},
			expected: 0x08,
		},
		{
			name:    "empty",
			input:   []byte{},
			wantErr: true,
		},
		{
			name:    "long form truncated",
			input:   []byte{0x81},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			length, err := PerReadLength(bytes.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, length)
		})
	}
}

func TestPerWriteLength(t *testing.T) {
	tests := []struct {
		name     string
		value    uint16
		expected []byte
	}{
		{
			name:     "one byte form",
			value:    0x7F,
			expected: []byte{0x7F},
		},
		{
			name:     "two byte form",
			value:    0x80,
			expected: []byte{0x80, 0x80},
		},
		{
			name:     "large value",
			value:    0x0190,
			expected: []byte{0x81, 0x90},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			PerWriteLength(tt.value, buf)
			assert.Equal(t, tt.expected, buf.Bytes())
		})
	}
}

func TestPerWriteLongLength(t *testing.T) {
	buf := new(bytes.Buffer)
	PerWriteLongLength(0x08, buf)

	// Always two bytes so the field width can be reserved up front.
	assert.Equal(t, []byte{0x80, 0x08}, buf.Bytes())
}

func TestPerInteger16RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		value   uint16
		minimum uint16
		wire    []byte
	}{
		{
			name:    "user channel relative to base",
			value:   1007,
			minimum: 1001,
			wire:    []byte{0x00, 0x06},
		},
		{
			name:    "global channel absolute",
			value:   1003,
			minimum: 0,
			wire:    []byte{0x03, 0xEB},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			PerWriteInteger16(tt.value, tt.minimum, buf)
			require.Equal(t, tt.wire, buf.Bytes())

			got, err := PerReadInteger16(tt.minimum, bytes.NewReader(tt.wire))
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestPerIntegerRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		wire  []byte
	}{
		{
			name:  "one byte",
			value: 0,
			wire:  []byte{0x01, 0x00},
		},
		{
			name:  "two bytes",
			value: 0x1234,
			wire:  []byte{0x02, 0x12, 0x34},
		},
		{
			name:  "four bytes",
			value: 0x00112233,
			wire:  []byte{0x04, 0x00, 0x11, 0x22, 0x33},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			PerWriteInteger(tt.value, buf)
			require.Equal(t, tt.wire, buf.Bytes())

			got, err := PerReadInteger(bytes.NewReader(tt.wire))
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestPerChoiceAndEnumerates(t *testing.T) {
	buf := new(bytes.Buffer)
	PerWriteChoice(0x68, buf)
	PerWriteEnumerates(0x03, buf)

	r := bytes.NewReader(buf.Bytes())

	choice, err := PerReadChoice(r)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x68), choice)

	num, err := PerReadEnumerates(r)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x03), num)
}
