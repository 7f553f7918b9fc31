// Package events provides an in-process publish/subscribe bus for service
// lifecycle notifications. Handlers receive events asynchronously; a slow
// subscriber drops events rather than blocking publishers.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a category of event.
type EventType string

const (
	// EventPricesSynced fires after a price sync run stores new closes.
	EventPricesSynced EventType = "prices_synced"
	// EventReportComputed fires after a risk report is computed.
	EventReportComputed EventType = "report_computed"
	// EventPortfolioChanged fires when positions are created, updated or deleted.
	EventPortfolioChanged EventType = "portfolio_changed"
	// EventBackupCompleted fires after a database backup upload finishes.
	EventBackupCompleted EventType = "backup_completed"
)

// Event is a single bus message.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// PricesSyncedPayload describes a completed price sync run.
type PricesSyncedPayload struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// ReportComputedPayload describes a completed risk report.
type ReportComputedPayload struct {
	ReportID     string  `json:"report_id"`
	NumPositions int     `json:"num_positions"`
	RiskLevel    string  `json:"risk_level"`
	Volatility   float64 `json:"volatility"`
}

// PortfolioChangedPayload describes a position mutation.
type PortfolioChangedPayload struct {
	Ticker string `json:"ticker"`
	Action string `json:"action"` // "upsert" or "delete"
}

// Bus fans events out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	log    zerolog.Logger
}

// subscriberBuffer bounds how far a subscriber may lag before dropping.
const subscriberBuffer = 64

// NewBus creates a new event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[int]chan Event),
		log:  log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish delivers the event to every subscriber. Events to subscribers with
// full buffers are dropped.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.log.Warn().
				Int("subscriber", id).
				Str("type", string(event.Type)).
				Msg("Subscriber buffer full, dropping event")
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
