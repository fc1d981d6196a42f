package world

import (
	"github.com/google/uuid"
)

// Level is the mirrored state of the remote world.
//
// Level is not safe for concurrent use, the owning session serialises access.
type Level struct {
	Dimension int32

	entities map[uint64]*Entity // by runtime id
	uniques  map[int64]uint64   // unique id -> runtime id
	players  map[uuid.UUID]*PlayerEntry
}

// NewLevel returns an empty level.
func NewLevel() *Level {
	return &Level{
		entities: map[uint64]*Entity{},
		uniques:  map[int64]uint64{},
		players:  map[uuid.UUID]*PlayerEntry{},
	}
}

// AddEntity adds or replaces an entity.
func (l *Level) AddEntity(e *Entity) {
	if old, ok := l.entities[e.RuntimeID]; ok {
		delete(l.uniques, old.UniqueID)
	}
	l.entities[e.RuntimeID] = e
	l.uniques[e.UniqueID] = e.RuntimeID
	if e.Player() {
		p := l.player(e.UUID)
		p.UniqueID = e.UniqueID
		p.Spawned = true
		if p.Username == "" {
			p.Username = e.Username
		}
	}
}

// Entity returns the entity with the runtime id.
func (l *Level) Entity(runtimeID uint64) (*Entity, bool) {
	e, ok := l.entities[runtimeID]
	return e, ok
}

// EntityByUniqueID returns the entity with the unique id.
func (l *Level) EntityByUniqueID(uniqueID int64) (*Entity, bool) {
	rid, ok := l.uniques[uniqueID]
	if !ok {
		return nil, false
	}
	return l.Entity(rid)
}

// RemoveEntity removes the entity with the unique id and returns it.
func (l *Level) RemoveEntity(uniqueID int64) (*Entity, bool) {
	e, ok := l.EntityByUniqueID(uniqueID)
	if !ok {
		return nil, false
	}
	delete(l.entities, e.RuntimeID)
	delete(l.uniques, uniqueID)
	if e.Player() {
		if p, ok := l.players[e.UUID]; ok {
			p.Spawned = false
			if !p.Listed {
				delete(l.players, e.UUID)
			}
		}
	}
	return e, true
}

// Entities returns all entities in no particular order.
func (l *Level) Entities() []*Entity {
	s := make([]*Entity, 0, len(l.entities))
	for _, e := range l.entities {
		s = append(s, e)
	}
	return s
}

// EntityCount returns the number of entities.
func (l *Level) EntityCount() int { return len(l.entities) }

func (l *Level) player(id uuid.UUID) *PlayerEntry {
	p, ok := l.players[id]
	if !ok {
		p = &PlayerEntry{UUID: id}
		l.players[id] = p
	}
	return p
}

// ListPlayer marks a player as part of the server's player list.
func (l *Level) ListPlayer(entry PlayerEntry) {
	p := l.player(entry.UUID)
	p.Listed = true
	p.Username = entry.Username
	p.XUID = entry.XUID
	if entry.UniqueID != 0 {
		p.UniqueID = entry.UniqueID
	}
}

// UnlistPlayer removes a player from the server's player list.
func (l *Level) UnlistPlayer(id uuid.UUID) {
	p, ok := l.players[id]
	if !ok {
		return
	}
	p.Listed = false
	if !p.Spawned {
		delete(l.players, id)
	}
}

// Player returns the player with the uuid.
func (l *Level) Player(id uuid.UUID) (*PlayerEntry, bool) {
	p, ok := l.players[id]
	return p, ok
}

// Players returns all known players in no particular order.
func (l *Level) Players() []*PlayerEntry {
	s := make([]*PlayerEntry, 0, len(l.players))
	for _, p := range l.players {
		s = append(s, p)
	}
	return s
}

// ChangeDimension drops all entities. Player list entries survive,
// they are not bound to a dimension.
func (l *Level) ChangeDimension(dimension int32) {
	l.Dimension = dimension
	clear(l.entities)
	clear(l.uniques)
	for id, p := range l.players {
		p.Spawned = false
		if !p.Listed {
			delete(l.players, id)
		}
	}
}
