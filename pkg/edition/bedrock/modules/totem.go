package modules

import (
	"github.com/sandertv/gophertunnel/minecraft/protocol"

	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/edition/bedrock/proxy"
	"github.com/veilmc/veil/pkg/edition/bedrock/world"
)

// TotemItem is the name of the totem of undying item.
const TotemItem = "minecraft:totem_of_undying"

// OffhandTotem keeps a totem of undying in the offhand slot.
type OffhandTotem struct {
	*module.Base
	delay module.Value[int]
}

var _ proxy.SessionBinder = (*OffhandTotem)(nil)

// NewOffhandTotem returns a disabled OffhandTotem module.
func NewOffhandTotem() *OffhandTotem {
	m := &OffhandTotem{Base: module.NewBase("OffhandTotem", module.Player,
		"Moves a totem of undying into the empty offhand")}
	m.delay = m.Settings().Int("delay", 2, 0, 20)
	return m
}

func (m *OffhandTotem) BindSession(b *proxy.Binding) {
	s := b.Session()
	totem, ok := s.ItemID(TotemItem)
	if !ok {
		s.Logger().V(1).Info("remote server has no totem item, offhand totem is inactive")
		return
	}
	var last uint64
	proxy.Handle(b, func(e *proxy.TickEvent) {
		if e.Tick()-last < uint64(m.delay.Get()) {
			return
		}
		var (
			inv  *world.Inventory
			slot = -1
		)
		s.View(func(p *world.LocalPlayer, _ *world.Level) {
			if p.OpenContainer != nil {
				return
			}
			if off, _ := p.Inventory.Item(world.SlotOffhand); !world.IsAir(off) {
				return
			}
			inv = p.Inventory
			slot, _ = inv.Find(func(it protocol.ItemInstance) bool {
				return it.Stack.NetworkID == totem
			})
		})
		if slot < 0 || slot >= world.MainSize {
			return
		}
		last = e.Tick()
		if err := s.MoveItem(inv, slot, inv, world.SlotOffhand); err != nil {
			s.Logger().Error(err, "error moving totem to offhand", "slot", slot)
		}
	})
}
