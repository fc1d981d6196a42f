package world

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
)

// LocalPlayer is the mirrored state of the player connected through the relay.
//
// LocalPlayer is not safe for concurrent use, the owning session serialises access.
type LocalPlayer struct {
	RuntimeID uint64
	UniqueID  int64

	Position mgl32.Vec3
	Pitch    float32
	Yaw      float32
	HeadYaw  float32
	Motion   mgl32.Vec3
	OnGround bool
	Tick     uint64 // Last client tick seen in an input packet.

	HeldSlot      int // Selected hot bar slot.
	Inventory     *Inventory
	OpenContainer *Container // nil while no container is open.
}

// Container is a container opened by the player.
type Container struct {
	WindowID       byte
	Type           byte
	Position       protocol.BlockPos
	EntityUniqueID int64
	Inventory      *Inventory
}

// NewLocalPlayer returns a player with an empty inventory.
func NewLocalPlayer(uniqueID int64, runtimeID uint64) *LocalPlayer {
	return &LocalPlayer{
		RuntimeID: runtimeID,
		UniqueID:  uniqueID,
		Inventory: NewPlayerInventory(),
	}
}

// HeldItem returns the item in the selected hot bar slot.
func (p *LocalPlayer) HeldItem() protocol.ItemInstance {
	it, _ := p.Inventory.Item(p.HeldSlot)
	return it
}

// InventoryFor returns the inventory a protocol window belongs to.
func (p *LocalPlayer) InventoryFor(windowID uint32) (*Inventory, bool) {
	if p.Inventory.HasWindow(windowID) {
		return p.Inventory, true
	}
	if p.OpenContainer != nil && p.OpenContainer.Inventory.HasWindow(windowID) {
		return p.OpenContainer.Inventory, true
	}
	return nil, false
}
