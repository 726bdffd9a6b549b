package offline

import "sync"

// EventKind identifies a notification published on the Bus.
type EventKind int

const (
	EventSaleQueued EventKind = iota + 1
	EventSaleRemoved
	EventConnectivityChanged
)

func (k EventKind) String() string {
	switch k {
	case EventSaleQueued:
		return "sale_queued"
	case EventSaleRemoved:
		return "sale_removed"
	case EventConnectivityChanged:
		return "connectivity_changed"
	default:
		return "unknown"
	}
}

// Event is a state-change notification. SaleID is set for queue events,
// Online for connectivity events.
type Event struct {
	Kind   EventKind
	SaleID string
	Online bool
}

// Bus is a small synchronous observer. Handlers run on the publisher's
// goroutine and must not block.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(Event)
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every current subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
