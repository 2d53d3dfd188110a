package rdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionDefaults(t *testing.T) {
	tr := &fakeTransport{}
	sess := NewSession(RoleClient, tr)

	assert.Equal(t, StateNegotiation, sess.State())
	assert.Equal(t, RoleClient, sess.Role())
	assert.False(t, sess.Disconnected())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "negotiation", StateNegotiation.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestTransitionTo(t *testing.T) {
	sess := NewSession(RoleClient, &fakeTransport{})

	sess.TransitionTo(StateFinalization)
	assert.Equal(t, StateFinalization, sess.State())

	sess.TransitionTo(StateActive)
	assert.Equal(t, StateActive, sess.State())
}

func TestProcessPacketWithoutConnectSequence(t *testing.T) {
	sess := NewSession(RoleClient, &fakeTransport{})

	err := sess.ProcessPacket(newTestStream(nil))
	require.ErrorIs(t, err, ErrInvalidPhase)
}

func TestProcessPacketAfterDisconnect(t *testing.T) {
	sess := NewSession(RoleClient, &fakeTransport{})
	sess.disconnect = true

	err := sess.ProcessPacket(newTestStream(nil))
	require.ErrorIs(t, err, ErrDisconnect)
}

func TestCloseWhenActiveSendsUltimatum(t *testing.T) {
	tr := &fakeTransport{}
	sess := NewSession(RoleClient, tr)
	sess.TransitionTo(StateActive)

	require.NoError(t, sess.Close())

	require.Len(t, tr.sent, 1)
	assert.Equal(t, []byte{
		0x03, 0x00, 0x00, 0x09, // TPKT
		0x02, 0xF0, 0x80, // X.224 data TPDU
		0x20, 0x03, // disconnect provider ultimatum, user requested
	}, tr.sent[0])

	assert.Equal(t, StateDisconnected, sess.State())
	assert.True(t, tr.closed)
}

func TestCloseBeforeActiveIsSilent(t *testing.T) {
	tr := &fakeTransport{}
	sess := NewSession(RoleClient, tr)

	require.NoError(t, sess.Close())

	assert.Empty(t, tr.sent)
	assert.Equal(t, StateDisconnected, sess.State())
	assert.True(t, tr.closed)
}

func TestSessionAccessors(t *testing.T) {
	sess := NewSession(RoleServer, &fakeTransport{})

	sess.SetUserID(1007)
	assert.Equal(t, uint16(1007), sess.UserID())

	sess.SetShareID(0x12345)
	assert.Equal(t, uint32(0x12345), sess.ShareID())

	sess.SetBlocking(true)
	assert.True(t, sess.transport.(*fakeTransport).blocking)
}
