package world

import (
	"errors"
	"fmt"

	"github.com/sandertv/gophertunnel/minecraft/protocol"
)

// Window IDs of the player's own inventories.
const (
	WindowIDInventory uint32 = 0
	WindowIDOffhand   uint32 = 119
	WindowIDArmour    uint32 = 120
	WindowIDUI        uint32 = 124
)

// Slots of the player inventory.
const (
	SlotHotbarStart = 0
	HotbarSize      = 9
	SlotMainStart   = 9
	MainSize        = 36 // hot bar + main

	SlotHelmet     = 36
	SlotChestplate = 37
	SlotLeggings   = 38
	SlotBoots      = 39
	SlotOffhand    = 40

	PlayerInventorySize = 41
)

// ErrSlotOutOfRange is returned for slot indices outside of an inventory.
var ErrSlotOutOfRange = errors.New("slot out of range")

// Air is the item of an empty slot.
var Air = protocol.ItemInstance{}

// IsAir reports whether it represents an empty slot.
func IsAir(it protocol.ItemInstance) bool {
	return it.Stack.NetworkID == 0 || it.Stack.Count == 0
}

// window maps a range of inventory slots to a protocol window.
type window struct {
	id     uint32
	offset int
	size   int // 0 until the first content is received
}

// Inventory is a fixed-size slot array.
// Empty slots always hold Air.
//
// Inventory is not safe for concurrent use, the owning session serialises access.
type Inventory struct {
	windows []window
	content []protocol.ItemInstance
}

// NewInventory returns an inventory backed by a single protocol window.
// A size of 0 is resolved by the first content received for the window.
func NewInventory(windowID uint32, size int) *Inventory {
	return &Inventory{
		windows: []window{{id: windowID, size: size}},
		content: airSlots(size),
	}
}

// NewPlayerInventory returns the player's inventory spanning the main,
// armour and offhand windows.
func NewPlayerInventory() *Inventory {
	return &Inventory{
		windows: []window{
			{id: WindowIDInventory, offset: SlotHotbarStart, size: MainSize},
			{id: WindowIDArmour, offset: SlotHelmet, size: 4},
			{id: WindowIDOffhand, offset: SlotOffhand, size: 1},
		},
		content: airSlots(PlayerInventorySize),
	}
}

func airSlots(n int) []protocol.ItemInstance {
	s := make([]protocol.ItemInstance, n)
	for i := range s {
		s[i] = Air
	}
	return s
}

// Size returns the number of slots.
func (inv *Inventory) Size() int { return len(inv.content) }

// Item returns the item in slot.
func (inv *Inventory) Item(slot int) (protocol.ItemInstance, error) {
	if slot < 0 || slot >= len(inv.content) {
		return Air, fmt.Errorf("%w: %d (size %d)", ErrSlotOutOfRange, slot, len(inv.content))
	}
	return inv.content[slot], nil
}

// SetItem replaces the item in slot.
func (inv *Inventory) SetItem(slot int, it protocol.ItemInstance) error {
	if slot < 0 || slot >= len(inv.content) {
		return fmt.Errorf("%w: %d (size %d)", ErrSlotOutOfRange, slot, len(inv.content))
	}
	if IsAir(it) {
		it = Air
	}
	inv.content[slot] = it
	return nil
}

// Slots returns a copy of all slots.
func (inv *Inventory) Slots() []protocol.ItemInstance {
	return append([]protocol.ItemInstance(nil), inv.content...)
}

// Find returns the first slot holding an item matching fn.
func (inv *Inventory) Find(fn func(protocol.ItemInstance) bool) (int, bool) {
	for i, it := range inv.content {
		if !IsAir(it) && fn(it) {
			return i, true
		}
	}
	return -1, false
}

// HasWindow reports whether windowID belongs to this inventory.
func (inv *Inventory) HasWindow(windowID uint32) bool {
	_, ok := inv.window(windowID)
	return ok
}

func (inv *Inventory) window(windowID uint32) (*window, bool) {
	for i := range inv.windows {
		if inv.windows[i].id == windowID {
			return &inv.windows[i], true
		}
	}
	return nil, false
}

// Location returns the protocol window and the slot within that window of slot.
func (inv *Inventory) Location(slot int) (windowID uint32, wireSlot uint32, err error) {
	for _, w := range inv.windows {
		if slot >= w.offset && slot < w.offset+w.size {
			return w.id, uint32(slot - w.offset), nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %d (size %d)", ErrSlotOutOfRange, slot, len(inv.content))
}

// Slot returns the inventory slot of a protocol window slot.
func (inv *Inventory) Slot(windowID, wireSlot uint32) (int, bool) {
	w, ok := inv.window(windowID)
	if !ok || int(wireSlot) >= w.size {
		return -1, false
	}
	return w.offset + int(wireSlot), true
}

// SetWindowContent replaces the content of a protocol window.
// An unsized window takes the size of items. Missing items are set to Air
// and items beyond the window size are ignored.
func (inv *Inventory) SetWindowContent(windowID uint32, items []protocol.ItemInstance) bool {
	w, ok := inv.window(windowID)
	if !ok {
		return false
	}
	if w.size == 0 && len(inv.windows) == 1 {
		w.size = len(items)
		inv.content = airSlots(w.size)
	}
	for i := 0; i < w.size; i++ {
		it := Air
		if i < len(items) && !IsAir(items[i]) {
			it = items[i]
		}
		inv.content[w.offset+i] = it
	}
	return true
}
