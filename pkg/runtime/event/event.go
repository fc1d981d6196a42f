// Package event provides the synchronous, ordered event bus a relay session
// uses to hand packets and lifecycle events to module handlers.
package event

import (
	"reflect"
)

// Event is the event interface.
type Event interface{}

// Type is an event type.
type Type reflect.Type

// HandlerFunc is an event handler func.
type HandlerFunc func(e Event)

// Handle identifies a registered handler. It is returned by Bus.Register
// and is the only way to remove that single handler again.
type Handle struct{ sub *subscriber }

// Valid reports whether h was returned by a successful registration.
func (h Handle) Valid() bool { return h.sub != nil }

// Owner returns the owner name the handler was registered with.
func (h Handle) Owner() string {
	if h.sub == nil {
		return ""
	}
	return h.sub.owner
}

// Restorer is implemented by events carrying mutable state a handler may change.
// Snapshot is called before every handler and the returned func is called
// if that handler panics, rolling the event back to the snapshot.
type Restorer interface {
	Snapshot() (restore func())
}

// TypeOf is a helper func to get the reflect.Type from i.
// If i is nil returns nil.
func TypeOf(i interface{}) (t Type) {
	if i == nil {
		return
	}
	switch o := i.(type) {
	case reflect.Type:
		t = o
	case reflect.Value:
		t = o.Type()
	default:
		t = reflect.TypeOf(i)
	}
	return t
}

// Subscribe registers a typed handler for events of type E on the bus.
func Subscribe[E Event](b *Bus, owner string, fn func(E)) Handle {
	return b.Register(reflect.TypeOf((*E)(nil)).Elem(), owner, func(e Event) {
		fn(e.(E))
	})
}
