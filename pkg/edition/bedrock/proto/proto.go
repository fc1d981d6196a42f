// Package proto contains the relay's view of a single Bedrock packet in flight.
package proto

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// ErrDecoderLeftBytes indicates a packet was known and successfully decoded by its registered decoder,
// but the decoder has not read all the packet's bytes.
//
// This may happen in cases where
//   - the remote server runs a newer protocol than the codec knows
//   - someone (server/client) has sent valid bytes in the beginning of the packet's data that the packet's
//     decoder could successfully decode, but then the data contains even more bytes (the left bytes)
var ErrDecoderLeftBytes = errors.New("decoder did not read all bytes of packet")

// ErrUnknownPacket indicates the packet ID is not known by the codec's packet pool.
// Such packets are forwarded as is.
var ErrUnknownPacket = errors.New("unknown packet id")

// Direction is the direction a packet is bound to.
//   - Receiving a packet from a client is ServerBound (outbound).
//   - Receiving a packet from a server is ClientBound (inbound).
//   - Sending a packet to a client is ClientBound.
//   - Sending a packet to a server is ServerBound.
type Direction uint8

// Available packet bound directions.
const (
	ClientBound Direction = iota // A packet is bound to a client.
	ServerBound                  // A packet is bound to a server.
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case ServerBound:
		return "ServerBound"
	case ClientBound:
		return "ClientBound"
	}
	return "UnknownBound"
}

// Opposite returns the direction packets travel back.
func (d Direction) Opposite() Direction {
	if d == ServerBound {
		return ClientBound
	}
	return ServerBound
}

// PacketID identifies a packet type of the Bedrock protocol.
type PacketID uint32

// String implements fmt.Stringer.
func (id PacketID) String() string {
	return fmt.Sprintf("%#x", uint32(id))
}

// Name returns the type name of a packet, e.g. "MovePlayer".
func Name(pk packet.Packet) string {
	if pk == nil {
		return ""
	}
	t := reflect.TypeOf(pk)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
