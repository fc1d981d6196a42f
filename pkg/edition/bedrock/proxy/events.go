package proxy

import (
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"

	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/edition/bedrock/proto"
	"github.com/veilmc/veil/pkg/edition/bedrock/world"
)

// PacketEvent is implemented by PacketInboundEvent and PacketOutboundEvent.
type PacketEvent interface {
	Session() *Session
	Envelope() *proto.Envelope
	Packet() packet.Packet
	Direction() proto.Direction
	// Cancel drops the packet once all handlers ran.
	Cancel()
	Cancelled() bool
}

type packetEvent struct {
	session  *Session
	envelope *proto.Envelope
}

func (e *packetEvent) Session() *Session          { return e.session }
func (e *packetEvent) Envelope() *proto.Envelope  { return e.envelope }
func (e *packetEvent) Packet() packet.Packet      { return e.envelope.Packet() }
func (e *packetEvent) Direction() proto.Direction { return e.envelope.Direction() }
func (e *packetEvent) Cancel()                    { e.envelope.Cancel() }
func (e *packetEvent) Cancelled() bool            { return e.envelope.Cancelled() }
func (e *packetEvent) Snapshot() (restore func()) { return e.envelope.Snapshot() }

// PacketInboundEvent is emitted for every packet the server sends to the client.
type PacketInboundEvent struct{ packetEvent }

// PacketOutboundEvent is emitted for every packet the client sends to the server.
type PacketOutboundEvent struct{ packetEvent }

func newPacketEvent(s *Session, env *proto.Envelope) PacketEvent {
	pe := packetEvent{session: s, envelope: env}
	if env.Direction() == proto.ClientBound {
		return &PacketInboundEvent{pe}
	}
	return &PacketOutboundEvent{pe}
}

// TickEvent is emitted at the relay's fixed tick cadence while the session is active.
type TickEvent struct {
	session *Session
	tick    uint64
}

func (e *TickEvent) Session() *Session { return e.session }

// Tick returns the number of ticks since the session started, starting at 1.
func (e *TickEvent) Tick() uint64 { return e.tick }

// ModuleToggleEvent is emitted on every session when a module was enabled or disabled.
type ModuleToggleEvent struct {
	session *Session
	module  module.Module
	enabled bool
}

func (e *ModuleToggleEvent) Session() *Session     { return e.session }
func (e *ModuleToggleEvent) Module() module.Module { return e.module }
func (e *ModuleToggleEvent) Enabled() bool         { return e.enabled }

// InventorySlotUpdateEvent is emitted after a mirrored inventory slot changed.
type InventorySlotUpdateEvent struct {
	session   *Session
	inventory *world.Inventory
	slot      int
	oldItem   protocol.ItemInstance
	newItem   protocol.ItemInstance
}

func (e *InventorySlotUpdateEvent) Session() *Session              { return e.session }
func (e *InventorySlotUpdateEvent) Inventory() *world.Inventory    { return e.inventory }
func (e *InventorySlotUpdateEvent) Slot() int                      { return e.slot }
func (e *InventorySlotUpdateEvent) OldItem() protocol.ItemInstance { return e.oldItem }
func (e *InventorySlotUpdateEvent) NewItem() protocol.ItemInstance { return e.newItem }

//
// Events fired on the host event manager.
//

// SessionStartedEvent is fired when both legs of a connection are established.
type SessionStartedEvent struct{ session *Session }

func (e *SessionStartedEvent) Session() *Session { return e.session }

// SessionClosedEvent is fired after a session was closed and all its handlers removed.
type SessionClosedEvent struct {
	session *Session
	cause   error
}

func (e *SessionClosedEvent) Session() *Session { return e.session }

// Cause returns why the session was closed, nil if the client left.
func (e *SessionClosedEvent) Cause() error { return e.cause }

// ConnectionStateChangeEvent is fired on every connection state transition.
type ConnectionStateChangeEvent struct {
	id       string
	from, to State
}

// ID returns the connection id.
func (e *ConnectionStateChangeEvent) ID() string  { return e.id }
func (e *ConnectionStateChangeEvent) From() State { return e.from }
func (e *ConnectionStateChangeEvent) To() State   { return e.to }
