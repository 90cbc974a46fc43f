package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventSyncCompleted  = "sync_completed"
	EventSyncFailed     = "sync_failed"
	EventChannelRenewed = "channel_renewed"
	EventFeeAlert       = "fee_alert"
)

// SyncPayload is the snapshot published after each sync pass.
type SyncPayload struct {
	Mode    string `json:"mode"` // full, incremental
	Written int    `json:"written"`
	Deleted int    `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// ChannelPayload announces a renewed webhook channel.
type ChannelPayload struct {
	ChannelID  string    `json:"channel_id"`
	Expiration time.Time `json:"expiration"`
}

// FeeAlertPayload lists bookings whose fee is still unprocessed.
type FeeAlertPayload struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
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
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
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
