package proto

import (
	"fmt"

	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// Envelope wraps one decoded packet travelling through the relay.
//
// Handlers may replace the packet, mark it intercepted or cancel it.
// The relay pipeline is the only reader of the flags.
// An Envelope is not safe for concurrent use, it is owned by the leg that decoded it.
type Envelope struct {
	direction Direction
	payload   []byte // The received packet id + data.

	packet      packet.Packet
	modified    bool
	cancelled   bool
	intercepted bool
}

// NewEnvelope wraps pk received as payload bound to direction.
func NewEnvelope(direction Direction, pk packet.Packet, payload []byte) *Envelope {
	return &Envelope{direction: direction, packet: pk, payload: payload}
}

// Direction returns the direction the packet is bound to.
func (e *Envelope) Direction() Direction { return e.direction }

// Packet returns the packet that will be forwarded.
func (e *Envelope) Packet() packet.Packet { return e.packet }

// SetPacket replaces the packet that will be forwarded.
func (e *Envelope) SetPacket(pk packet.Packet) {
	if pk == nil {
		return
	}
	e.packet = pk
	e.modified = true
}

// Modified reports whether SetPacket was called.
func (e *Envelope) Modified() bool { return e.modified }

// Payload returns the packet id + data as it was received.
func (e *Envelope) Payload() []byte { return e.payload }

// Intercept marks the packet as intercepted. Relay state still reflects the packet,
// only modules consult this flag for their own bookkeeping.
func (e *Envelope) Intercept() { e.intercepted = true }

// Intercepted reports whether Intercept was called.
func (e *Envelope) Intercepted() bool { return e.intercepted }

// Cancel marks the packet to be dropped after all handlers ran.
func (e *Envelope) Cancel() { e.cancelled = true }

// Cancelled reports whether the packet is going to be dropped.
func (e *Envelope) Cancelled() bool { return e.cancelled }

// Snapshot captures the flags and packet reference and returns a func
// restoring them.
func (e *Envelope) Snapshot() (restore func()) {
	pk, modified, cancelled, intercepted := e.packet, e.modified, e.cancelled, e.intercepted
	return func() {
		e.packet, e.modified, e.cancelled, e.intercepted = pk, modified, cancelled, intercepted
	}
}

// String implements fmt.Stringer.
func (e *Envelope) String() string {
	return fmt.Sprintf("Envelope:direction=%s,PacketType=%s,Payloadlen=%d,"+
		"Modified=%t,Cancelled=%t,Intercepted=%t",
		e.direction, Name(e.packet), len(e.payload), e.modified, e.cancelled, e.intercepted)
}
