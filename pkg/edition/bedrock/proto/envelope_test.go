package proto

import (
	"testing"

	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeFlags(t *testing.T) {
	original := &packet.Text{Message: "hi"}
	e := NewEnvelope(ServerBound, original, []byte{0x09})
	require.Equal(t, ServerBound, e.Direction())
	require.Same(t, original, e.Packet())
	require.False(t, e.Cancelled())
	require.False(t, e.Intercepted())
	require.False(t, e.Modified())

	e.Intercept()
	require.True(t, e.Intercepted())
	require.False(t, e.Cancelled(), "intercept does not drop")

	replacement := &packet.Text{Message: "bye"}
	e.SetPacket(replacement)
	require.True(t, e.Modified())
	require.Same(t, replacement, e.Packet())

	e.SetPacket(nil)
	require.Same(t, replacement, e.Packet(), "nil packets are ignored")

	e.Cancel()
	require.True(t, e.Cancelled())
}

func TestEnvelopeSnapshot(t *testing.T) {
	original := &packet.Text{Message: "hi"}
	e := NewEnvelope(ClientBound, original, nil)
	restore := e.Snapshot()

	e.Cancel()
	e.Intercept()
	e.SetPacket(&packet.Text{})
	restore()

	assert.False(t, e.Cancelled())
	assert.False(t, e.Intercepted())
	assert.False(t, e.Modified())
	assert.Same(t, original, e.Packet())
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "ClientBound", ClientBound.String())
	assert.Equal(t, "ServerBound", ServerBound.String())
	assert.Equal(t, "UnknownBound", Direction(7).String())
	assert.Equal(t, ServerBound, ClientBound.Opposite())
	assert.Equal(t, ClientBound, ServerBound.Opposite())
}

func TestName(t *testing.T) {
	assert.Equal(t, "MovePlayer", Name(&packet.MovePlayer{}))
	assert.Equal(t, "", Name(nil))
}
