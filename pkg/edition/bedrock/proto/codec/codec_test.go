package codec

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-logr/logr"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmc/veil/pkg/edition/bedrock/proto"
	"github.com/veilmc/veil/pkg/util/errs"
)

func TestRoundTrip(t *testing.T) {
	enc := NewEncoder(proto.ServerBound, 0, logr.Discard())
	dec := NewDecoder(proto.ServerBound, 0, logr.Discard())

	in := &packet.MovePlayer{
		EntityRuntimeID: 1,
		Position:        mgl32.Vec3{1, 2, 3},
		Pitch:           10,
		Yaw:             20,
		HeadYaw:         20,
		OnGround:        true,
	}
	b, err := enc.Encode(in)
	require.NoError(t, err)

	out, err := dec.Decode(b)
	require.NoError(t, err)
	mp, ok := out.(*packet.MovePlayer)
	require.True(t, ok)
	assert.Equal(t, in.EntityRuntimeID, mp.EntityRuntimeID)
	assert.Equal(t, in.Position, mp.Position)
	assert.True(t, mp.OnGround)
}

func TestDecodeDirectionPools(t *testing.T) {
	b, err := NewEncoder(proto.ClientBound, 0, logr.Discard()).Encode(&packet.SetActorMotion{EntityRuntimeID: 5})
	require.NoError(t, err)

	pk, err := NewDecoder(proto.ClientBound, 0, logr.Discard()).Decode(b)
	require.NoError(t, err)
	require.IsType(t, &packet.SetActorMotion{}, pk)
}

func TestDecodeUnknown(t *testing.T) {
	dec := NewDecoder(proto.ServerBound, 0, logr.Discard())
	// 0x3ff is the largest id the header can hold and no packet uses it.
	_, err := dec.Decode([]byte{0xff, 0x07})
	require.Error(t, err)
	assert.True(t, errors.Is(err, proto.ErrUnknownPacket))
	assert.False(t, errs.IsSilent(err))
}

func TestDecodeMalformed(t *testing.T) {
	enc := NewEncoder(proto.ServerBound, 0, logr.Discard())
	b, err := enc.Encode(&packet.Text{TextType: packet.TextTypeChat, SourceName: "steve", Message: "hello world"})
	require.NoError(t, err)

	dec := NewDecoder(proto.ServerBound, 0, logr.Discard())
	pk, err := dec.Decode(b[:len(b)-8])
	require.Error(t, err)
	assert.Nil(t, pk)
	assert.True(t, errs.IsSilent(err))
}

func TestDecodeLeftBytes(t *testing.T) {
	enc := NewEncoder(proto.ServerBound, 0, logr.Discard())
	b, err := enc.Encode(&packet.MovePlayer{EntityRuntimeID: 1})
	require.NoError(t, err)

	dec := NewDecoder(proto.ServerBound, 0, logr.Discard())
	pk, err := dec.Decode(append(b, 1, 2, 3))
	require.NotNil(t, pk)
	assert.True(t, errors.Is(err, proto.ErrDecoderLeftBytes))
}

func TestDecodeEmpty(t *testing.T) {
	_, err := NewDecoder(proto.ClientBound, 0, logr.Discard()).Decode(nil)
	require.Error(t, err)
	assert.True(t, errs.IsSilent(err))
}
