package modules

import (
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"github.com/zyedidia/generic/mapset"

	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/edition/bedrock/proto"
	"github.com/veilmc/veil/pkg/edition/bedrock/proxy"
	"github.com/veilmc/veil/pkg/edition/bedrock/world"
)

// AntiBot detection modes.
const (
	// AntiBotPlayerList flags spawned players missing from the server's player list.
	AntiBotPlayerList = "PlayerList"
	// AntiBotUsername additionally flags players whose name is not a valid gamertag.
	AntiBotUsername = "Username"
)

var gamertagRegexp = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 ]{0,14}[A-Za-z0-9]$`)

// AntiBot detects fake players the server spawns to catch cheating clients.
// Other modules consult IsBot to ignore them.
type AntiBot struct {
	*module.Base
	mode module.Value[string]
	hide module.Value[bool]

	mu      sync.Mutex
	flagged mapset.Set[uuid.UUID]
}

var _ proxy.PacketHandler = (*AntiBot)(nil)

// NewAntiBot returns a disabled AntiBot module.
func NewAntiBot() *AntiBot {
	m := &AntiBot{
		Base:    module.NewBase("AntiBot", module.Misc, "Detects fake players spawned by the server"),
		flagged: mapset.New[uuid.UUID](),
	}
	m.mode = m.Settings().Choice("mode", AntiBotPlayerList, AntiBotPlayerList, AntiBotUsername)
	m.hide = m.Settings().Bool("hide", false)
	return m
}

func (m *AntiBot) StatusInfo() string { return m.mode.Get() }

// IsBot reports whether e is a bot. It is always false while the module is disabled.
// It must be called from within Session.View.
func (m *AntiBot) IsBot(level *world.Level, e *world.Entity) bool {
	if !m.Enabled() || !e.Player() {
		return false
	}
	if p, ok := level.Player(e.UUID); !ok || !p.Listed {
		return true
	}
	return m.mode.Is(AntiBotUsername) && !gamertagRegexp.MatchString(e.Username)
}

// Flagged returns the number of players flagged as bots since the module was enabled.
func (m *AntiBot) Flagged() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flagged.Size()
}

func (m *AntiBot) OnDisabled() {
	m.mu.Lock()
	m.flagged = mapset.New[uuid.UUID]()
	m.mu.Unlock()
}

func (m *AntiBot) BeforePacketBound(e proxy.PacketEvent) {
	add, ok := e.Packet().(*packet.AddPlayer)
	if !ok || e.Direction() != proto.ClientBound {
		return
	}
	var bot bool
	e.Session().View(func(_ *world.LocalPlayer, l *world.Level) {
		if ent, ok := l.Entity(add.EntityRuntimeID); ok {
			bot = m.IsBot(l, ent)
		}
	})
	if !bot {
		return
	}
	m.mu.Lock()
	m.flagged.Put(add.UUID)
	m.mu.Unlock()
	if m.hide.Get() {
		e.Cancel()
	}
}
