package proxy

import (
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"

	"github.com/veilmc/veil/pkg/edition/bedrock/proto"
	"github.com/veilmc/veil/pkg/edition/bedrock/world"
	"github.com/veilmc/veil/pkg/runtime/event"
)

// Dispatch mirrors a decoded packet and emits the derived events followed by
// the packet event on the session bus. The caller forwards the packet unless
// a handler cancelled env.
func (s *Session) Dispatch(env *proto.Envelope) {
	for _, e := range s.observe(env) {
		s.bus.Emit(e)
	}
	s.bus.Emit(newPacketEvent(s, env))
}

// Tick emits a TickEvent with the given tick number.
func (s *Session) Tick(tick uint64) {
	s.bus.Emit(&TickEvent{session: s, tick: tick})
}

// observe updates the mirror from a decoded packet and returns the
// derived events to emit once the lock is released.
// It runs before any handler sees the packet, so cancelled packets are mirrored too.
func (s *Session) observe(env *proto.Envelope) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, l := s.player, s.level
	switch pk := env.Packet().(type) {
	case *packet.AddActor:
		l.AddEntity(&world.Entity{
			RuntimeID: pk.EntityRuntimeID,
			UniqueID:  pk.EntityUniqueID,
			Type:      pk.EntityType,
			Position:  pk.Position,
			Velocity:  pk.Velocity,
			Pitch:     pk.Pitch,
			Yaw:       pk.Yaw,
			HeadYaw:   pk.HeadYaw,
		})
	case *packet.AddPlayer:
		l.AddEntity(&world.Entity{
			RuntimeID: pk.EntityRuntimeID,
			UniqueID:  pk.AbilityData.EntityUniqueID,
			Type:      world.PlayerEntityType,
			Position:  pk.Position,
			Velocity:  pk.Velocity,
			Pitch:     pk.Pitch,
			Yaw:       pk.Yaw,
			HeadYaw:   pk.HeadYaw,
			UUID:      pk.UUID,
			Username:  pk.Username,
		})
	case *packet.RemoveActor:
		l.RemoveEntity(pk.EntityUniqueID)
	case *packet.MoveActorAbsolute:
		if pk.EntityRuntimeID == p.RuntimeID {
			p.Position = pk.Position
			p.Pitch, p.Yaw, p.HeadYaw = pk.Rotation[0], pk.Rotation[1], pk.Rotation[2]
			break
		}
		if e, ok := l.Entity(pk.EntityRuntimeID); ok {
			e.Position = pk.Position
			e.Pitch, e.Yaw, e.HeadYaw = pk.Rotation[0], pk.Rotation[1], pk.Rotation[2]
		}
	case *packet.MovePlayer:
		if pk.EntityRuntimeID == p.RuntimeID {
			p.Position = pk.Position
			p.Pitch, p.Yaw, p.HeadYaw = pk.Pitch, pk.Yaw, pk.HeadYaw
			p.OnGround = pk.OnGround
			break
		}
		if e, ok := l.Entity(pk.EntityRuntimeID); ok {
			e.Position = pk.Position
			e.Pitch, e.Yaw, e.HeadYaw = pk.Pitch, pk.Yaw, pk.HeadYaw
		}
	case *packet.SetActorMotion:
		if pk.EntityRuntimeID == p.RuntimeID {
			p.Motion = pk.Velocity
			break
		}
		if e, ok := l.Entity(pk.EntityRuntimeID); ok {
			e.Velocity = pk.Velocity
		}
	case *packet.PlayerAuthInput:
		p.Position = pk.Position
		p.Pitch, p.Yaw, p.HeadYaw = pk.Pitch, pk.Yaw, pk.HeadYaw
		p.Motion = pk.Delta
		p.Tick = pk.Tick
	case *packet.MobEquipment:
		if pk.EntityRuntimeID == p.RuntimeID && uint32(pk.WindowID) == world.WindowIDInventory &&
			int(pk.HotBarSlot) < world.HotbarSize {
			p.HeldSlot = int(pk.HotBarSlot)
		}
	case *packet.ContainerOpen:
		c := &world.Container{
			WindowID:       pk.WindowID,
			Type:           pk.ContainerType,
			Position:       pk.ContainerPosition,
			EntityUniqueID: pk.ContainerEntityUniqueID,
			Inventory:      world.NewInventory(uint32(pk.WindowID), 0),
		}
		if p.Inventory.HasWindow(uint32(pk.WindowID)) {
			c.Inventory = p.Inventory
		}
		p.OpenContainer = c
	case *packet.ContainerClose:
		if p.OpenContainer != nil && p.OpenContainer.WindowID == pk.WindowID {
			p.OpenContainer = nil
		}
	case *packet.InventoryContent:
		inv, ok := p.InventoryFor(pk.WindowID)
		if !ok {
			break
		}
		before := inv.Slots()
		inv.SetWindowContent(pk.WindowID, pk.Content)
		return s.slotChanges(inv, before)
	case *packet.InventorySlot:
		return s.setSlot(pk.WindowID, pk.Slot, pk.NewItem)
	case *packet.InventoryTransaction:
		if _, ok := pk.TransactionData.(*protocol.NormalTransactionData); !ok {
			break
		}
		var events []event.Event
		for _, a := range pk.Actions {
			if a.SourceType != protocol.InventoryActionSourceContainer || a.WindowID < 0 {
				continue
			}
			events = append(events, s.setSlot(uint32(a.WindowID), a.InventorySlot, a.NewItem)...)
		}
		return events
	case *packet.PlayerList:
		for _, entry := range pk.Entries {
			switch pk.ActionType {
			case packet.PlayerListActionAdd:
				l.ListPlayer(world.PlayerEntry{
					UUID:     entry.UUID,
					UniqueID: entry.EntityUniqueID,
					Username: entry.Username,
					XUID:     entry.XUID,
				})
			case packet.PlayerListActionRemove:
				l.UnlistPlayer(entry.UUID)
			}
		}
	case *packet.ChangeDimension:
		l.ChangeDimension(pk.Dimension)
		p.Position = pk.Position
		p.OpenContainer = nil
	}
	return nil
}

// setSlot must be called with s.mu held.
func (s *Session) setSlot(windowID, wireSlot uint32, it protocol.ItemInstance) []event.Event {
	inv, ok := s.player.InventoryFor(windowID)
	if !ok {
		return nil
	}
	slot, ok := inv.Slot(windowID, wireSlot)
	if !ok {
		return nil
	}
	old, _ := inv.Item(slot)
	if inv.SetItem(slot, it) != nil {
		return nil
	}
	cur, _ := inv.Item(slot)
	return []event.Event{&InventorySlotUpdateEvent{
		session:   s,
		inventory: inv,
		slot:      slot,
		oldItem:   old,
		newItem:   cur,
	}}
}

// slotChanges must be called with s.mu held.
func (s *Session) slotChanges(inv *world.Inventory, before []protocol.ItemInstance) []event.Event {
	var events []event.Event
	for slot, cur := range inv.Slots() {
		var old protocol.ItemInstance
		if slot < len(before) {
			old = before[slot]
		}
		if sameItem(old, cur) {
			continue
		}
		events = append(events, &InventorySlotUpdateEvent{
			session:   s,
			inventory: inv,
			slot:      slot,
			oldItem:   old,
			newItem:   cur,
		})
	}
	return events
}

func sameItem(a, b protocol.ItemInstance) bool {
	if world.IsAir(a) || world.IsAir(b) {
		return world.IsAir(a) == world.IsAir(b)
	}
	return a.StackNetworkID == b.StackNetworkID &&
		a.Stack.NetworkID == b.Stack.NetworkID &&
		a.Stack.MetadataValue == b.Stack.MetadataValue &&
		a.Stack.Count == b.Stack.Count
}
