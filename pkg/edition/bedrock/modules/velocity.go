package modules

import (
	"fmt"

	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"

	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/edition/bedrock/proto"
	"github.com/veilmc/veil/pkg/edition/bedrock/proxy"
	"github.com/veilmc/veil/pkg/edition/bedrock/world"
)

// Velocity scales the knockback the server applies to the player.
type Velocity struct {
	*module.Base
	horizontal module.Value[float64]
	vertical   module.Value[float64]
}

var _ proxy.PacketHandler = (*Velocity)(nil)

// NewVelocity returns a disabled Velocity module cancelling all knockback.
func NewVelocity() *Velocity {
	m := &Velocity{Base: module.NewBase("Velocity", module.Motion, "Reduces knockback taken from the server")}
	m.horizontal = m.Settings().Float("horizontal", 0, 0, 100)
	m.vertical = m.Settings().Float("vertical", 0, 0, 100)
	return m
}

func (m *Velocity) StatusInfo() string {
	return fmt.Sprintf("H%.0f%% V%.0f%%", m.horizontal.Get(), m.vertical.Get())
}

func (m *Velocity) BeforePacketBound(e proxy.PacketEvent) {
	motion, ok := e.Packet().(*packet.SetActorMotion)
	if !ok || e.Direction() != proto.ClientBound {
		return
	}
	var self bool
	e.Session().View(func(p *world.LocalPlayer, _ *world.Level) {
		self = p.RuntimeID == motion.EntityRuntimeID
	})
	if !self {
		return
	}

	h, v := float32(m.horizontal.Get()/100), float32(m.vertical.Get()/100)
	if h == 0 && v == 0 {
		e.Cancel()
		return
	}
	scaled := *motion
	scaled.Velocity[0] *= h
	scaled.Velocity[1] *= v
	scaled.Velocity[2] *= h
	e.Envelope().SetPacket(&scaled)
}
