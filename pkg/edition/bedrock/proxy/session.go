package proxy

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"

	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/edition/bedrock/world"
	"github.com/veilmc/veil/pkg/runtime/event"
)

// PacketWriter encodes and queues packets toward one leg of a connection.
type PacketWriter interface {
	WritePacket(pk packet.Packet) error
}

// SessionOptions are the options for a new Session.
type SessionOptions struct {
	ID string
	// Server receives packets sent with SendPacket.
	Server PacketWriter
	// Client receives packets sent with ClientBound.
	Client PacketWriter
	// GameData is the start game data of the remote server.
	GameData minecraft.GameData
	// Bus is the bus session events are emitted on.
	// If none is set, a new one is created.
	Bus      *event.Bus
	Logger   logr.Logger
	Notifier Notifier
}

// Session is the relay's view of one proxied connection: the mirrored
// player and world state, the session event bus and the modules bound to it.
//
// Session is safe for concurrent use.
type Session struct {
	id        string
	log       logr.Logger
	bus       *event.Bus
	notifier  Notifier
	server    PacketWriter
	client    PacketWriter
	itemNames map[int32]string
	startedAt time.Time

	mu     sync.Mutex // Protects the mirror
	player *world.LocalPlayer
	level  *world.Level

	bindMu   sync.Mutex
	bindings map[string]*Binding // by module name
}

// NewSession returns a new session with the mirror initialised from the start game data.
func NewSession(opts SessionOptions) *Session {
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	if opts.Bus == nil {
		opts.Bus = event.NewBus(opts.Logger)
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier
	}

	gd := opts.GameData
	player := world.NewLocalPlayer(gd.EntityUniqueID, gd.EntityRuntimeID)
	player.Position = gd.PlayerPosition
	player.Pitch = gd.Pitch
	player.Yaw = gd.Yaw
	level := world.NewLevel()
	level.Dimension = gd.Dimension

	itemNames := make(map[int32]string, len(gd.Items))
	for _, it := range gd.Items {
		itemNames[int32(it.RuntimeID)] = it.Name
	}

	return &Session{
		id:        opts.ID,
		log:       opts.Logger,
		bus:       opts.Bus,
		notifier:  opts.Notifier,
		server:    opts.Server,
		client:    opts.Client,
		itemNames: itemNames,
		startedAt: time.Now(),
		player:    player,
		level:     level,
		bindings:  map[string]*Binding{},
	}
}

// ID returns the connection id of the session.
func (s *Session) ID() string { return s.id }

// Bus returns the session event bus.
func (s *Session) Bus() *event.Bus { return s.bus }

// Logger returns the session logger.
func (s *Session) Logger() logr.Logger { return s.log }

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// SendPacket encodes and queues pk toward the remote server.
func (s *Session) SendPacket(pk packet.Packet) error {
	if s.server == nil {
		return ErrClosedConn
	}
	return s.server.WritePacket(pk)
}

// ClientBound encodes and queues pk toward the client.
func (s *Session) ClientBound(pk packet.Packet) error {
	if s.client == nil {
		return ErrClosedConn
	}
	return s.client.WritePacket(pk)
}

// View calls fn with the mirrored state under the session lock.
// fn must not call back into the session.
func (s *Session) View(fn func(player *world.LocalPlayer, level *world.Level)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.player, s.level)
}

// ItemName returns the name of the item with the network id,
// e.g. "minecraft:totem_of_undying", or "" if unknown.
func (s *Session) ItemName(networkID int32) string {
	return s.itemNames[networkID]
}

// ItemID returns the network id of the named item.
func (s *Session) ItemID(name string) (int32, bool) {
	for id, n := range s.itemNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// Notify forwards a user-visible message to the host notifier.
func (s *Session) Notify(kind NotificationKind, format string, args ...any) {
	s.notifier.Notify(Notification{
		Kind:      kind,
		SessionID: s.id,
		Message:   fmt.Sprintf(format, args...),
	})
}

// MoveItem swaps the item in srcSlot of src with the item in dstSlot of dst.
//
// The mirror is updated and one inventory transaction describing the move is
// queued toward both the server and the client, so that both agree with the
// mirror. InventorySlotUpdateEvent is emitted for both slots afterwards.
func (s *Session) MoveItem(src *world.Inventory, srcSlot int, dst *world.Inventory, dstSlot int) error {
	s.mu.Lock()
	pk, events, err := s.moveItem(src, srcSlot, dst, dstSlot)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err = s.SendPacket(pk); err != nil {
		return fmt.Errorf("error sending inventory transaction to server: %w", err)
	}
	if err = s.ClientBound(pk); err != nil {
		return fmt.Errorf("error sending inventory transaction to client: %w", err)
	}
	for _, e := range events {
		s.bus.Emit(e)
	}
	return nil
}

// moveItem must be called with s.mu held.
func (s *Session) moveItem(src *world.Inventory, srcSlot int, dst *world.Inventory, dstSlot int) (*packet.InventoryTransaction, []event.Event, error) {
	srcItem, err := src.Item(srcSlot)
	if err != nil {
		return nil, nil, err
	}
	dstItem, err := dst.Item(dstSlot)
	if err != nil {
		return nil, nil, err
	}
	srcWindow, srcWire, err := src.Location(srcSlot)
	if err != nil {
		return nil, nil, err
	}
	dstWindow, dstWire, err := dst.Location(dstSlot)
	if err != nil {
		return nil, nil, err
	}

	_ = src.SetItem(srcSlot, dstItem)
	_ = dst.SetItem(dstSlot, srcItem)

	pk := &packet.InventoryTransaction{
		Actions: []protocol.InventoryAction{
			{
				SourceType:    protocol.InventoryActionSourceContainer,
				WindowID:      int32(srcWindow),
				InventorySlot: srcWire,
				OldItem:       srcItem,
				NewItem:       dstItem,
			},
			{
				SourceType:    protocol.InventoryActionSourceContainer,
				WindowID:      int32(dstWindow),
				InventorySlot: dstWire,
				OldItem:       dstItem,
				NewItem:       srcItem,
			},
		},
		TransactionData: &protocol.NormalTransactionData{},
	}
	events := []event.Event{
		&InventorySlotUpdateEvent{session: s, inventory: src, slot: srcSlot, oldItem: srcItem, newItem: dstItem},
		&InventorySlotUpdateEvent{session: s, inventory: dst, slot: dstSlot, oldItem: dstItem, newItem: srcItem},
	}
	return pk, events, nil
}

// Bound reports whether the named module has handlers bound to this session.
func (s *Session) Bound(name string) bool {
	s.bindMu.Lock()
	defer s.bindMu.Unlock()
	_, ok := s.bindings[name]
	return ok
}

// Bind binds the handlers of m to this session. Binding a bound module is a no-op.
func (s *Session) Bind(m module.Module) {
	s.bindMu.Lock()
	defer s.bindMu.Unlock()
	if _, ok := s.bindings[m.Name()]; ok {
		return
	}
	b := &Binding{session: s, module: m}
	s.bindings[m.Name()] = b
	b.bind()
}

// Unbind removes all handlers of the named module from this session.
func (s *Session) Unbind(name string) {
	s.bindMu.Lock()
	defer s.bindMu.Unlock()
	if _, ok := s.bindings[name]; !ok {
		return
	}
	delete(s.bindings, name)
	n := s.bus.RemoveOwner(name)
	s.log.V(1).Info("unbound module", "module", name, "handlers", n)
}

// release removes every handler from the session bus.
func (s *Session) release() {
	s.bindMu.Lock()
	clear(s.bindings)
	s.bindMu.Unlock()
	s.bus.Clear()
}
