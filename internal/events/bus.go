// Package events provides a process-local publish/subscribe bus used to push
// live updates (imports, price refreshes, blocklist generation) to the SPA.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a kind of event on the bus.
type EventType string

const (
	ImportCompleted    EventType = "IMPORT_COMPLETED"
	PricesRefreshed    EventType = "PRICES_REFRESHED"
	DailyStatsRebuilt  EventType = "DAILY_STATS_REBUILT"
	BlocklistGenerated EventType = "BLOCKLIST_GENERATED"
)

// Event is a single bus message.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(event *Event)

// Bus is a minimal in-process pub/sub dispatcher.
// Publishing never blocks on subscriber slowness: handlers that need to fan
// out to slow consumers (websockets) must buffer internally and drop.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler
	log      zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		log:      log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish dispatches an event to all matching handlers.
func (b *Bus) Publish(module string, t EventType, data map[string]interface{}) {
	event := &Event{
		Type:      t,
		Timestamp: time.Now(),
		Module:    module,
		Data:      data,
	}

	b.mu.RLock()
	typed := b.handlers[t]
	all := b.all
	b.mu.RUnlock()

	b.log.Debug().Str("type", string(t)).Str("module", module).Msg("Publishing event")

	for _, h := range typed {
		h(event)
	}
	for _, h := range all {
		h(event)
	}
}
