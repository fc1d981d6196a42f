// Package codec decodes and encodes single Bedrock packets using the gophertunnel packet pools.
package codec

import (
	"bytes"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-logr/logr"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"

	"github.com/veilmc/veil/pkg/edition/bedrock/proto"
	"github.com/veilmc/veil/pkg/util/errs"
)

// Decoder decodes packets received from one leg of a connection.
type Decoder struct {
	pool      packet.Pool
	shieldID  int32
	log       logr.Logger
	direction proto.Direction
}

// NewDecoder returns a Decoder for packets bound to direction.
// Packets received from a client are ServerBound and decoded with the client packet pool,
// packets received from a server are ClientBound and decoded with the server packet pool.
// The shieldID is the item runtime ID of the shield, which the protocol encodes specially.
func NewDecoder(direction proto.Direction, shieldID int32, log logr.Logger) *Decoder {
	pool := packet.NewServerPool()
	if direction == proto.ServerBound {
		pool = packet.NewClientPool()
	}
	return &Decoder{
		pool:      pool,
		shieldID:  shieldID,
		log:       log,
		direction: direction,
	}
}

// Direction returns the direction of the decoded packets.
func (d *Decoder) Direction() proto.Direction { return d.direction }

// Decode decodes the packet id + data in payload.
//
// It returns an error wrapping proto.ErrUnknownPacket if the packet ID is not known,
// and an errs.SilentError if the packet is known but could not be decoded.
func (d *Decoder) Decode(payload []byte) (pk packet.Packet, err error) {
	buf := bytes.NewBuffer(payload)

	// Decode packet header containing the ID
	var header packet.Header
	if err = header.Read(buf); err != nil {
		return nil, errs.NewSilentErr("error reading packet header: %w", err)
	}

	// Try find and create packet from the id.
	factory, ok := d.pool[header.PacketID]
	if !ok {
		// Packet id is unknown in this pool,
		// the payload is forwarded as is.
		return nil, fmt.Errorf("%w %s (direction: %s)", proto.ErrUnknownPacket, proto.PacketID(header.PacketID), d.direction)
	}
	pk = factory()

	// The protocol reader panics on invalid data.
	defer func() {
		if r := recover(); r != nil {
			err = errs.NewSilentErr("error decoding packet (type: %T, id: %s, direction: %s): %v",
				pk, proto.PacketID(header.PacketID), d.direction, r)
			pk = nil
		}
	}()
	pk.Marshal(protocol.NewReader(buf, d.shieldID, false))

	// Payload buffer should now be empty.
	if buf.Len() != 0 {
		// packet decoder did not read all of the packet's data!
		d.log.V(1).Info("Packet's decoder did not read all of packet's data",
			"type", proto.Name(pk),
			"direction", d.direction,
			"decodedBytes", len(payload)-buf.Len(),
			"unreadBytes", buf.Len())
		return pk, errs.WrapSilent(proto.ErrDecoderLeftBytes)
	}

	if log := d.log.V(2); log.Enabled() {
		log.Info("decoded packet", "direction", d.direction, "dump", spew.Sdump(pk))
	}
	return pk, nil
}
