package event

import (
	"log/slog"

	"github.com/sasha-s/go-deadlock"
)

type HandlerFunc func(raw any)

// Bus delivers events synchronously on the publishing goroutine, so handlers
// observe events in tick order. A panicking handler is logged and skipped.
type Bus struct {
	mu     deadlock.RWMutex
	nextID uint64
	subs   map[string][]subscription
}

type subscription struct {
	id uint64
	fn HandlerFunc
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[string][]subscription),
	}
}

// Subscribe registers handler for eventName. The returned func removes it and
// may be called more than once.
func (b *Bus) Subscribe(eventName string, handler HandlerFunc) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[eventName] = append(b.subs[eventName], subscription{id: id, fn: handler})
	return func() { b.remove(eventName, id) }
}

// SubscribeAll registers handler for each of the named events.
func (b *Bus) SubscribeAll(handler HandlerFunc, eventNames ...string) (unsubscribe func()) {
	cancels := make([]func(), 0, len(eventNames))
	for _, name := range eventNames {
		cancels = append(cancels, b.Subscribe(name, handler))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

func (b *Bus) remove(eventName string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventName]
	for i, s := range subs {
		if s.id == id {
			// copy so a Publish iterating the old slice is unaffected
			kept := make([]subscription, 0, len(subs)-1)
			kept = append(kept, subs[:i]...)
			b.subs[eventName] = append(kept, subs[i+1:]...)
			return
		}
	}
}

// Handlers reports how many handlers are subscribed to eventName.
func (b *Bus) Handlers(eventName string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventName])
}

// Publish runs every handler of eventName in subscription order. Handlers may
// subscribe or unsubscribe while being run; the change applies to the next
// Publish. Publishing on a nil Bus does nothing.
func (b *Bus) Publish(eventName string, evt any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := b.subs[eventName]
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(eventName, s.fn, evt)
	}
}

func (b *Bus) deliver(eventName string, h HandlerFunc, evt any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event handler panicked", "event", eventName, "panic", r)
		}
	}()
	h(evt)
}
