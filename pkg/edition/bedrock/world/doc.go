// Package world holds the relay's best-effort mirror of the game state:
// the local player, its inventories and the entities and players of the level.
//
// None of the types lock themselves. They are owned by a relay session,
// which serialises every access with a single lock.
package world
