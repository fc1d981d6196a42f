package proxy

import (
	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/runtime/event"
)

// PacketHandler is implemented by modules inspecting every packet
// relayed in either direction.
type PacketHandler interface {
	// BeforePacketBound is called before the packet is forwarded.
	// Cancelling the event drops the packet.
	BeforePacketBound(e PacketEvent)
}

// SessionBinder is implemented by modules subscribing to session events.
// BindSession is called once per session the module is bound to.
type SessionBinder interface {
	BindSession(b *Binding)
}

// Binding is a module bound to one session.
// All handlers registered through a Binding are removed together when the
// module is disabled or the session closes.
type Binding struct {
	session *Session
	module  module.Module
}

// Session returns the bound session.
func (b *Binding) Session() *Session { return b.session }

// Module returns the bound module.
func (b *Binding) Module() module.Module { return b.module }

func (b *Binding) bind() {
	if h, ok := b.module.(PacketHandler); ok {
		Handle(b, func(e *PacketInboundEvent) { h.BeforePacketBound(e) })
		Handle(b, func(e *PacketOutboundEvent) { h.BeforePacketBound(e) })
	}
	if binder, ok := b.module.(SessionBinder); ok {
		binder.BindSession(b)
	}
}

// Handle registers fn for events of type E on the bound session's bus.
// fn is only called while the module is enabled.
func Handle[E event.Event](b *Binding, fn func(E)) event.Handle {
	m := b.module
	return event.Subscribe(b.session.bus, m.Name(), func(e E) {
		if m.Enabled() {
			fn(e)
		}
	})
}
