// Package event defines the order lifecycle events and an in-process bus
// that fans them out to listeners such as the websocket hub.
package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Order lifecycle event types. They double as outbox topics suffixes.
const (
	OrderCreated   = "order.created"
	OrderConfirmed = "order.confirmed"
	OrderFailed    = "order.failed"
	OrderCancelled = "order.cancelled"
)

// Event is the envelope written to the outbox and pushed to listeners.
type Event struct {
	EventID   string         `json:"event_id"`
	Type      string         `json:"type"`
	OrderID   string         `json:"order_id"`
	UserID    string         `json:"user_id"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// New stamps a fresh event id and time.
func New(typ, orderID, userID string, payload map[string]any) Event {
	return Event{
		EventID:   uuid.NewString(),
		Type:      typ,
		OrderID:   orderID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}
}

// Handler receives a published event.
type Handler func(Event)

// Bus dispatches events to listeners registered per type or for all types.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	any      []Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Listen registers h for events of typ.
func (b *Bus) Listen(typ string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[typ] = append(b.handlers[typ], h)
}

// ListenAll registers h for every event.
func (b *Bus) ListenAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.any = append(b.any, h)
}

func (b *Bus) listeners(typ string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, 0, len(b.handlers[typ])+len(b.any))
	hs = append(hs, b.handlers[typ]...)
	return append(hs, b.any...)
}

// Fire calls every listener synchronously. A nil bus is a no-op.
func (b *Bus) Fire(ev Event) {
	if b == nil {
		return
	}
	for _, h := range b.listeners(ev.Type) {
		h(ev)
	}
}

// FireAsync calls every listener on its own goroutine.
func (b *Bus) FireAsync(ev Event) {
	if b == nil {
		return
	}
	for _, h := range b.listeners(ev.Type) {
		go h(ev)
	}
}
