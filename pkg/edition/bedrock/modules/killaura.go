package modules

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"

	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/edition/bedrock/proxy"
	"github.com/veilmc/veil/pkg/edition/bedrock/world"
)

// KillAura target modes.
const (
	KillAuraSingle = "Single" // Attack the closest target.
	KillAuraMulti  = "Multi"  // Attack every target in range.
)

// KillAura attacks entities around the player at a limited click rate.
type KillAura struct {
	*module.Base
	cps         module.Value[int]
	reach       module.Value[float64]
	mode        module.Value[string]
	playersOnly module.Value[bool]
	antiBot     module.Value[bool]

	bots *AntiBot // may be nil
}

var _ proxy.SessionBinder = (*KillAura)(nil)

// NewKillAura returns a disabled KillAura module skipping players flagged by bots.
func NewKillAura(bots *AntiBot) *KillAura {
	m := &KillAura{
		Base: module.NewBase("KillAura", module.Combat, "Attacks entities in range"),
		bots: bots,
	}
	m.cps = m.Settings().Int("cps", 8, 1, 20)
	m.reach = m.Settings().Float("range", 3.5, 1, 8)
	m.mode = m.Settings().Choice("mode", KillAuraSingle, KillAuraSingle, KillAuraMulti)
	m.playersOnly = m.Settings().Bool("playersOnly", true)
	m.antiBot = m.Settings().Bool("antiBot", true)
	return m
}

func (m *KillAura) StatusInfo() string {
	return fmt.Sprintf("%s %d", m.mode.Get(), m.cps.Get())
}

func (m *KillAura) BindSession(b *proxy.Binding) {
	limiter := module.NewClickLimiter(m.cps.Get())
	s := b.Session()
	proxy.Handle(b, func(e *proxy.TickEvent) {
		limiter.SetCPS(m.cps.Get())
		if !limiter.Allow() {
			return
		}
		for _, pk := range m.attack(s) {
			if err := s.SendPacket(pk); err != nil {
				s.Logger().V(1).Info("could not send attack", "error", err)
				return
			}
		}
	})
}

// attack returns the packets attacking the current targets.
func (m *KillAura) attack(s *proxy.Session) []packet.Packet {
	var pks []packet.Packet
	s.View(func(p *world.LocalPlayer, l *world.Level) {
		targets := m.targets(p, l)
		if len(targets) == 0 {
			return
		}
		pks = append(pks, &packet.Animate{
			ActionType:      packet.AnimateActionSwingArm,
			EntityRuntimeID: p.RuntimeID,
		})
		for _, t := range targets {
			pks = append(pks, &packet.InventoryTransaction{
				TransactionData: &protocol.UseItemOnEntityTransactionData{
					TargetEntityRuntimeID: t.RuntimeID,
					ActionType:            protocol.UseItemOnEntityActionAttack,
					HotBarSlot:            int32(p.HeldSlot),
					HeldItem:              p.HeldItem(),
					Position:              p.Position,
					ClickedPosition:       mgl32.Vec3{},
				},
			})
		}
	})
	return pks
}

// targets must be called from within Session.View.
func (m *KillAura) targets(p *world.LocalPlayer, l *world.Level) []*world.Entity {
	reach := float32(m.reach.Get())
	var targets []*world.Entity
	for _, e := range l.Entities() {
		if e.RuntimeID == p.RuntimeID || e.DistanceTo(p.Position) > reach {
			continue
		}
		if m.playersOnly.Get() && !e.Player() {
			continue
		}
		if m.antiBot.Get() && m.bots != nil && m.bots.IsBot(l, e) {
			continue
		}
		targets = append(targets, e)
	}
	slices.SortFunc(targets, func(a, b *world.Entity) int {
		da, db := a.DistanceTo(p.Position), b.DistanceTo(p.Position)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return int(a.RuntimeID) - int(b.RuntimeID)
	})
	if m.mode.Is(KillAuraSingle) && len(targets) > 1 {
		targets = targets[:1]
	}
	return targets
}
