package world

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// PlayerEntityType is the entity type of players.
const PlayerEntityType = "minecraft:player"

// Entity is the mirrored state of an entity spawned by the server.
type Entity struct {
	RuntimeID uint64
	UniqueID  int64
	Type      string

	Position mgl32.Vec3
	Velocity mgl32.Vec3
	Pitch    float32
	Yaw      float32
	HeadYaw  float32

	// Set for players only.
	UUID     uuid.UUID
	Username string
}

// Player reports whether the entity is a player.
func (e *Entity) Player() bool { return e.Type == PlayerEntityType }

// DistanceTo returns the distance between the entity and pos.
func (e *Entity) DistanceTo(pos mgl32.Vec3) float32 {
	return e.Position.Sub(pos).Len()
}

// PlayerEntry is the mirrored identity of a player known to the server.
type PlayerEntry struct {
	UUID     uuid.UUID
	UniqueID int64
	Username string
	XUID     string

	Listed  bool // Part of the server's player list.
	Spawned bool // Spawned as an entity near the local player.
}
