package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventTableCleared      = "table_cleared"
	EventBookingsRefreshed = "bookings_refreshed"
	EventBookingCreated    = "booking_created"
	EventBookingCancelled  = "booking_cancelled"
	EventOrderPlaced       = "order_placed"
)

// TableClearedPayload notifies other open views that a staff member cleared
// a table, so a customer-facing view converges without a reload.
type TableClearedPayload struct {
	BookingID   string    `json:"booking_id"`
	TableNumber string    `json:"table_number,omitempty"`
	ClearedAt   time.Time `json:"cleared_at"`
}

// OrderPlacedPayload is the snapshot consumers get after a checkout.
type OrderPlacedPayload struct {
	OrderID    string  `json:"order_id"`
	OrderType  string  `json:"order_type"`
	TotalPrice float64 `json:"total_price"`
	ItemCount  int     `json:"item_count"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
