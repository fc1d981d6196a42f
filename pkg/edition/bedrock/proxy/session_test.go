package proxy

import (
	"sync"
	"testing"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/edition/bedrock/proto"
	"github.com/veilmc/veil/pkg/edition/bedrock/world"
	"github.com/veilmc/veil/pkg/runtime/event"
)

const totemID = 568

// recordingWriter records packets instead of queueing them.
type recordingWriter struct {
	mu  sync.Mutex
	pks []packet.Packet
}

func (w *recordingWriter) WritePacket(pk packet.Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pks = append(w.pks, pk)
	return nil
}

func (w *recordingWriter) Packets() []packet.Packet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]packet.Packet(nil), w.pks...)
}

func newTestSession(t *testing.T) (s *Session, server, client *recordingWriter) {
	t.Helper()
	server, client = &recordingWriter{}, &recordingWriter{}
	s = NewSession(SessionOptions{
		ID:     "test",
		Server: server,
		Client: client,
		GameData: minecraft.GameData{
			EntityUniqueID:  -1,
			EntityRuntimeID: 1,
			PlayerPosition:  mgl32.Vec3{0, 64, 0},
			Items: []protocol.ItemEntry{
				{Name: "minecraft:totem_of_undying", RuntimeID: totemID},
				{Name: "minecraft:shield", RuntimeID: 355},
			},
		},
	})
	return s, server, client
}

func item(networkID int32, count uint16) protocol.ItemInstance {
	return protocol.ItemInstance{Stack: protocol.ItemStack{
		ItemType: protocol.ItemType{NetworkID: networkID},
		Count:    count,
	}}
}

func observe(s *Session, dir proto.Direction, pk packet.Packet) *proto.Envelope {
	env := proto.NewEnvelope(dir, pk, nil)
	s.Dispatch(env)
	return env
}

func TestSession_InitialState(t *testing.T) {
	s, _, _ := newTestSession(t)
	s.View(func(p *world.LocalPlayer, l *world.Level) {
		assert.EqualValues(t, 1, p.RuntimeID)
		assert.EqualValues(t, -1, p.UniqueID)
		assert.Equal(t, mgl32.Vec3{0, 64, 0}, p.Position)
		assert.Zero(t, l.EntityCount())
	})
	assert.Equal(t, "minecraft:totem_of_undying", s.ItemName(totemID))
	assert.Empty(t, s.ItemName(1))
	id, ok := s.ItemID("minecraft:shield")
	assert.True(t, ok)
	assert.EqualValues(t, 355, id)
}

func TestSession_MirrorConsistency(t *testing.T) {
	s, _, _ := newTestSession(t)
	event.Subscribe(s.Bus(), "Canceller", func(e *PacketInboundEvent) {
		if _, ok := e.Packet().(*packet.RemoveActor); ok {
			e.Cancel()
		}
	})

	observe(s, proto.ClientBound, &packet.AddActor{EntityUniqueID: 5, EntityRuntimeID: 5, EntityType: "minecraft:zombie"})
	observe(s, proto.ClientBound, &packet.MoveActorAbsolute{EntityRuntimeID: 5, Position: mgl32.Vec3{1, 2, 3}})
	s.View(func(_ *world.LocalPlayer, l *world.Level) {
		e, ok := l.Entity(5)
		require.True(t, ok)
		assert.Equal(t, mgl32.Vec3{1, 2, 3}, e.Position)
	})

	env := observe(s, proto.ClientBound, &packet.RemoveActor{EntityUniqueID: 5})
	require.True(t, env.Cancelled())
	s.View(func(_ *world.LocalPlayer, l *world.Level) {
		_, ok := l.Entity(5)
		assert.False(t, ok, "mirror is updated even though the packet was cancelled")
	})
}

func TestSession_MirrorThroughPipeline(t *testing.T) {
	removed := make(chan struct{})
	r := newTestRelay(t, nil, nil, func(s *Session) {
		event.Subscribe(s.Bus(), "Canceller", func(e *PacketInboundEvent) {
			if _, ok := e.Packet().(*packet.RemoveActor); ok {
				e.Cancel()
				close(removed)
			}
		})
	})

	r.server.send(t, proto.ClientBound, &packet.AddActor{EntityUniqueID: 5, EntityRuntimeID: 5, EntityType: "minecraft:zombie"})
	r.server.send(t, proto.ClientBound, &packet.MoveActorAbsolute{EntityRuntimeID: 5, Position: mgl32.Vec3{1, 2, 3}})
	r.client.waitWritten(t, 2)
	r.session().View(func(_ *world.LocalPlayer, l *world.Level) {
		e, ok := l.Entity(5)
		require.True(t, ok)
		assert.Equal(t, mgl32.Vec3{1, 2, 3}, e.Position)
	})

	r.server.send(t, proto.ClientBound, &packet.RemoveActor{EntityUniqueID: 5})
	select {
	case <-removed:
	case <-time.After(2 * time.Second):
		t.Fatal("remove actor was not relayed")
	}
	r.session().View(func(_ *world.LocalPlayer, l *world.Level) {
		_, ok := l.Entity(5)
		assert.False(t, ok)
	})
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, r.client.Written(), 2, "cancelled packet is not forwarded")
}

func TestSession_MirrorPlayers(t *testing.T) {
	s, _, _ := newTestSession(t)
	listed, bot := uuid.New(), uuid.New()
	name := faker.Username()

	observe(s, proto.ClientBound, &packet.PlayerList{
		ActionType: packet.PlayerListActionAdd,
		Entries:    []protocol.PlayerListEntry{{UUID: listed, EntityUniqueID: 10, Username: name}},
	})
	observe(s, proto.ClientBound, &packet.AddPlayer{UUID: listed, Username: name, EntityRuntimeID: 10,
		AbilityData: protocol.AbilityData{EntityUniqueID: 10}})
	observe(s, proto.ClientBound, &packet.AddPlayer{UUID: bot, Username: "bot", EntityRuntimeID: 11,
		AbilityData: protocol.AbilityData{EntityUniqueID: 11}})

	s.View(func(_ *world.LocalPlayer, l *world.Level) {
		p, ok := l.Player(listed)
		require.True(t, ok)
		assert.True(t, p.Listed && p.Spawned)
		assert.Equal(t, name, p.Username)

		p, ok = l.Player(bot)
		require.True(t, ok)
		assert.True(t, p.Spawned)
		assert.False(t, p.Listed)
	})

	observe(s, proto.ClientBound, &packet.PlayerList{
		ActionType: packet.PlayerListActionRemove,
		Entries:    []protocol.PlayerListEntry{{UUID: listed}},
	})
	observe(s, proto.ClientBound, &packet.ChangeDimension{Dimension: 1, Position: mgl32.Vec3{8, 70, 8}})
	s.View(func(p *world.LocalPlayer, l *world.Level) {
		assert.EqualValues(t, 1, l.Dimension)
		assert.Zero(t, l.EntityCount())
		assert.Empty(t, l.Players())
		assert.Equal(t, mgl32.Vec3{8, 70, 8}, p.Position)
	})
}

func TestSession_MirrorLocalPlayer(t *testing.T) {
	s, _, _ := newTestSession(t)
	observe(s, proto.ServerBound, &packet.PlayerAuthInput{Position: mgl32.Vec3{1, 65, 1}, Yaw: 90, Tick: 42})
	observe(s, proto.ClientBound, &packet.SetActorMotion{EntityRuntimeID: 1, Velocity: mgl32.Vec3{0, 0.4, 0}})
	observe(s, proto.ServerBound, &packet.MobEquipment{EntityRuntimeID: 1, HotBarSlot: 3, InventorySlot: 3})

	s.View(func(p *world.LocalPlayer, _ *world.Level) {
		assert.Equal(t, mgl32.Vec3{1, 65, 1}, p.Position)
		assert.EqualValues(t, 90, p.Yaw)
		assert.EqualValues(t, 42, p.Tick)
		assert.Equal(t, mgl32.Vec3{0, 0.4, 0}, p.Motion)
		assert.Equal(t, 3, p.HeldSlot)
	})

	observe(s, proto.ClientBound, &packet.MoveActorAbsolute{EntityRuntimeID: 1,
		Position: mgl32.Vec3{5, 70, 5}, Rotation: mgl32.Vec3{10, 180, 175}})
	s.View(func(p *world.LocalPlayer, _ *world.Level) {
		assert.Equal(t, mgl32.Vec3{5, 70, 5}, p.Position)
		assert.EqualValues(t, 10, p.Pitch)
		assert.EqualValues(t, 180, p.Yaw)
		assert.EqualValues(t, 175, p.HeadYaw)
	})
}

func TestSession_MirrorInventory(t *testing.T) {
	s, _, _ := newTestSession(t)
	var updates []int
	event.Subscribe(s.Bus(), "Inventory", func(e *InventorySlotUpdateEvent) {
		updates = append(updates, e.Slot())
	})

	content := make([]protocol.ItemInstance, world.MainSize)
	content[10] = item(totemID, 1)
	observe(s, proto.ClientBound, &packet.InventoryContent{WindowID: world.WindowIDInventory, Content: content})
	assert.Equal(t, []int{10}, updates)

	observe(s, proto.ClientBound, &packet.InventorySlot{WindowID: world.WindowIDOffhand, Slot: 0, NewItem: item(355, 1)})
	assert.Equal(t, []int{10, world.SlotOffhand}, updates)

	observe(s, proto.ClientBound, &packet.ContainerOpen{WindowID: 3, ContainerType: 0})
	observe(s, proto.ClientBound, &packet.InventoryContent{WindowID: 3, Content: make([]protocol.ItemInstance, 27)})
	s.View(func(p *world.LocalPlayer, _ *world.Level) {
		require.NotNil(t, p.OpenContainer)
		assert.Equal(t, 27, p.OpenContainer.Inventory.Size())
		it, _ := p.Inventory.Item(10)
		assert.EqualValues(t, totemID, it.Stack.NetworkID)
	})

	observe(s, proto.ServerBound, &packet.ContainerClose{WindowID: 3})
	s.View(func(p *world.LocalPlayer, _ *world.Level) {
		assert.Nil(t, p.OpenContainer)
	})
}

func TestSession_MoveItem(t *testing.T) {
	s, server, client := newTestSession(t)
	var updates []*InventorySlotUpdateEvent
	event.Subscribe(s.Bus(), "Inventory", func(e *InventorySlotUpdateEvent) {
		updates = append(updates, e)
	})

	var inv *world.Inventory
	s.View(func(p *world.LocalPlayer, _ *world.Level) {
		inv = p.Inventory
		require.NoError(t, inv.SetItem(10, item(totemID, 1)))
	})

	require.NoError(t, s.MoveItem(inv, 10, inv, world.SlotOffhand))

	s.View(func(*world.LocalPlayer, *world.Level) {
		it, _ := inv.Item(10)
		assert.True(t, world.IsAir(it))
		it, _ = inv.Item(world.SlotOffhand)
		assert.EqualValues(t, totemID, it.Stack.NetworkID)
	})

	require.Len(t, server.Packets(), 1)
	require.Len(t, client.Packets(), 1)
	tx, ok := server.Packets()[0].(*packet.InventoryTransaction)
	require.True(t, ok)
	require.Len(t, tx.Actions, 2)
	assert.EqualValues(t, world.WindowIDInventory, tx.Actions[0].WindowID)
	assert.EqualValues(t, 10, tx.Actions[0].InventorySlot)
	assert.True(t, world.IsAir(tx.Actions[0].NewItem))
	assert.EqualValues(t, world.WindowIDOffhand, tx.Actions[1].WindowID)
	assert.EqualValues(t, 0, tx.Actions[1].InventorySlot)
	assert.EqualValues(t, totemID, tx.Actions[1].NewItem.Stack.NetworkID)

	require.Len(t, updates, 2)
	assert.Equal(t, 10, updates[0].Slot())
	assert.Equal(t, world.SlotOffhand, updates[1].Slot())

	require.ErrorIs(t, s.MoveItem(inv, 99, inv, 0), world.ErrSlotOutOfRange)
	assert.Len(t, server.Packets(), 1)
}

type bindModule struct {
	*module.Base
	packets []string
	ticks   int
}

func newBindModule() *bindModule {
	return &bindModule{Base: module.NewBase("Binder", module.Misc, "records packets and ticks")}
}

func (m *bindModule) BeforePacketBound(e PacketEvent) {
	m.packets = append(m.packets, e.Direction().String()+":"+proto.Name(e.Packet()))
}

func (m *bindModule) BindSession(b *Binding) {
	Handle(b, func(*TickEvent) { m.ticks++ })
}

func TestSession_BindUnbind(t *testing.T) {
	s, _, _ := newTestSession(t)
	reg := module.NewRegistry(s.Logger(), nil)
	m := newBindModule()
	require.NoError(t, reg.Register(m))

	s.Bind(m)
	s.Bind(m)
	require.True(t, s.Bound("Binder"))
	require.Equal(t, 1, s.Bus().Len(&PacketInboundEvent{}))

	observe(s, proto.ClientBound, &packet.SetTime{Time: 1})
	s.Bus().Emit(&TickEvent{session: s, tick: 1})
	require.Empty(t, m.packets, "handlers of disabled modules are not called")
	require.Zero(t, m.ticks)

	reg.SetEnabled(m, true)
	observe(s, proto.ClientBound, &packet.SetTime{Time: 2})
	observe(s, proto.ServerBound, &packet.Animate{ActionType: packet.AnimateActionSwingArm, EntityRuntimeID: 1})
	s.Bus().Emit(&TickEvent{session: s, tick: 2})
	require.Equal(t, []string{"ClientBound:SetTime", "ServerBound:Animate"}, m.packets)
	require.Equal(t, 1, m.ticks)

	s.Unbind("Binder")
	require.False(t, s.Bound("Binder"))
	require.Zero(t, s.Bus().Len(&PacketInboundEvent{}))
	require.Zero(t, s.Bus().Len(&TickEvent{}))
}
