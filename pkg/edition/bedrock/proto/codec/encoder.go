package codec

import (
	"bytes"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-logr/logr"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"

	"github.com/veilmc/veil/pkg/edition/bedrock/proto"
)

// Encoder encodes packets sent to one leg of a connection.
type Encoder struct {
	shieldID  int32
	log       logr.Logger
	direction proto.Direction
}

// NewEncoder returns an Encoder for packets bound to direction.
func NewEncoder(direction proto.Direction, shieldID int32, log logr.Logger) *Encoder {
	return &Encoder{
		shieldID:  shieldID,
		log:       log,
		direction: direction,
	}
}

// Encode encodes pk into its packet id + data form.
func (e *Encoder) Encode(pk packet.Packet) (b []byte, err error) {
	buf := bytes.NewBuffer(make([]byte, 0, 64))
	header := packet.Header{PacketID: pk.ID()}
	if err = header.Write(buf); err != nil {
		return nil, err
	}

	// The protocol writer panics on values it cannot represent.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("error encoding packet (type: %T, direction: %s): %v", pk, e.direction, r)
			b = nil
		}
	}()
	pk.Marshal(protocol.NewWriter(buf, e.shieldID))

	if log := e.log.V(2); log.Enabled() {
		log.Info("encoded packet", "direction", e.direction, "dump", spew.Sdump(pk))
	}
	return buf.Bytes(), nil
}
