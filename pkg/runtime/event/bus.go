package event

import (
	"sync"

	"github.com/go-logr/logr"
)

// Bus is a synchronous event bus.
//
// Handlers run on the goroutine calling Emit, one after another in the order
// they were registered. A panicking handler is recovered and logged and does
// not stop the remaining handlers from running.
type Bus struct {
	log logr.Logger

	mu sync.RWMutex // Protects following fields
	// Handlers in registration order mapped to their event type.
	subscribers map[Type][]*subscriber
}

type subscriber struct {
	eventType Type
	owner     string      // Identity logged when fn panics.
	fn        HandlerFunc // The event handler func.
}

// NewBus returns a new Bus logging handler panics to log.
func NewBus(log logr.Logger) *Bus {
	return &Bus{log: log, subscribers: map[Type][]*subscriber{}}
}

// Register registers fn for events of exactly eventType and returns its handle.
// The eventType can be any value, pointer to type or reflect.Type.
func (b *Bus) Register(eventType any, owner string, fn HandlerFunc) Handle {
	eType := TypeOf(eventType)
	if eType == nil || fn == nil {
		return Handle{}
	}
	sub := &subscriber{eventType: eType, owner: owner, fn: fn}

	b.mu.Lock()
	defer b.mu.Unlock()
	// Copy on write so in-flight emissions keep iterating their own snapshot.
	list := b.subscribers[eType]
	next := make([]*subscriber, len(list), len(list)+1)
	copy(next, list)
	b.subscribers[eType] = append(next, sub)
	return Handle{sub: sub}
}

// RemoveHandler removes the handler identified by h.
// It returns false if the handler was not registered (anymore).
func (b *Bus) RemoveHandler(h Handle) bool {
	if h.sub == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remove(h.sub.eventType, func(s *subscriber) bool { return s == h.sub }) != 0
}

// RemoveOwner removes all handlers registered with owner and
// returns the number of removed handlers.
func (b *Bus) RemoveOwner(owner string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int
	for eType := range b.subscribers {
		n += b.remove(eType, func(s *subscriber) bool { return s.owner == owner })
	}
	return n
}

// Clear removes all handlers.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.subscribers = map[Type][]*subscriber{}
	b.mu.Unlock()
}

// Len returns the number of handlers registered for eventType.
func (b *Bus) Len(eventType any) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[TypeOf(eventType)])
}

// remove must be called with b.mu held.
func (b *Bus) remove(eType Type, match func(*subscriber) bool) int {
	list := b.subscribers[eType]
	next := make([]*subscriber, 0, len(list))
	for _, s := range list {
		if !match(s) {
			next = append(next, s)
		}
	}
	removed := len(list) - len(next)
	if removed == 0 {
		return 0
	}
	if len(next) == 0 {
		delete(b.subscribers, eType)
	} else {
		b.subscribers[eType] = next
	}
	return removed
}

// Emit calls every handler registered for the runtime type of event.
// Handlers registered or removed while emitting take effect with the next Emit.
func (b *Bus) Emit(event Event) {
	eventType := TypeOf(event)
	b.mu.RLock()
	list := b.subscribers[eventType]
	b.mu.RUnlock()

	restorer, _ := event.(Restorer)
	for _, sub := range list {
		b.call(sub, event, eventType, restorer)
	}
}

func (b *Bus) call(sub *subscriber, event Event, eventType Type, restorer Restorer) {
	var restore func()
	if restorer != nil {
		restore = restorer.Snapshot()
	}
	defer func() {
		if r := recover(); r != nil {
			if restore != nil {
				restore()
			}
			b.log.Error(nil, "Recovered from panic from an event handler",
				"panic", r,
				"eventType", eventType,
				"owner", sub.owner)
		}
	}()
	sub.fn(event)
}
