// Package reload provides configuration reloading capabilities.
package reload

import (
	"github.com/robinbraemer/event"
)

// ConfigUpdateEvent is fired when the config is reloaded.
type ConfigUpdateEvent[T any] struct {
	// Config is the new config.
	Config *T
	// Prev is the config that was replaced.
	Prev *T
}

// Event implements event.Event.
var _ event.Event = (*ConfigUpdateEvent[any])(nil)

// Subscribe subscribes the given handler to the config update event.
func Subscribe[T any](mgr event.Manager, handler func(*ConfigUpdateEvent[T])) func() {
	return event.Subscribe(mgr, 0, handler)
}

// FireConfigUpdate fires the config update event.
func FireConfigUpdate[T any](mgr event.Manager, config, prev *T) {
	mgr.Fire(&ConfigUpdateEvent[T]{Config: config, Prev: prev})
}
