package event

import (
	"reflect"

	"go.uber.org/zap"
)

// Bus is a synchronous typed publish/subscribe channel keyed by event type.
// Publish invokes every subscribed handler for the event's type, in
// subscription order, before returning. Dispatch is single-threaded: the bus
// belongs to the simulation tick and has no internal locking.
//
// Reentrancy: handlers may publish further events (dispatched inline) but
// must not mutate the subscriber list for the type currently dispatching.
// Subscribe/Unsubscribe calls made during dispatch are therefore deferred
// until the outermost Publish unwinds, which avoids iterator invalidation
// and skip/double-fire bugs.
//
// A panicking handler is caught, logged, and skipped; remaining handlers
// still run. One broken subscriber cannot halt the dispatch chain.
type Bus struct {
	log      *zap.Logger
	handlers map[reflect.Type][]handlerEntry
	nextID   uint64
	depth    int
	deferred []func()
}

type handlerEntry struct {
	id uint64
	fn func(any)
}

// Subscription identifies a registered handler for later removal.
type Subscription struct {
	eventType reflect.Type
	id        uint64
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		log:      log,
		handlers: make(map[reflect.Type][]handlerEntry),
	}
}

// Subscribe registers a typed handler for events of type T and returns a
// handle for Unsubscribe. During dispatch the registration takes effect only
// after the current publish chain completes.
func Subscribe[T any](b *Bus, fn func(T)) Subscription {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.nextID++
	entry := handlerEntry{
		id: b.nextID,
		fn: func(ev any) { fn(ev.(T)) },
	}
	sub := Subscription{eventType: t, id: entry.id}
	if b.depth > 0 {
		b.deferred = append(b.deferred, func() {
			b.handlers[t] = append(b.handlers[t], entry)
		})
		return sub
	}
	b.handlers[t] = append(b.handlers[t], entry)
	return sub
}

// Unsubscribe removes a previously registered handler. Unknown or
// already-removed handles are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	if b.depth > 0 {
		b.deferred = append(b.deferred, func() { b.remove(sub) })
		return
	}
	b.remove(sub)
}

func (b *Bus) remove(sub Subscription) {
	entries := b.handlers[sub.eventType]
	for i, e := range entries {
		if e.id == sub.id {
			b.handlers[sub.eventType] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to all current subscribers for T, in
// subscription order, before returning. Events are values and must not be
// mutated by handlers.
func Publish[T any](b *Bus, ev T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	entries := b.handlers[t]
	if len(entries) == 0 {
		return
	}

	b.depth++
	for _, e := range entries {
		b.dispatch(t, e, ev)
	}
	b.depth--

	if b.depth == 0 && len(b.deferred) > 0 {
		pending := b.deferred
		b.deferred = nil
		for _, apply := range pending {
			apply()
		}
	}
}

// dispatch runs one handler with panic isolation.
func (b *Bus) dispatch(t reflect.Type, e handlerEntry, ev any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("event", t.String()),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()
	e.fn(ev)
}
