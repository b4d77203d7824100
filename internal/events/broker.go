// Package events fans sync and booking activity out to subscribers, keyed by property.
package events

import (
	"sync"
	"time"
)

const (
	TypeSyncCompleted   = "sync.completed"
	TypeBookingsFetched = "bookings.fetched"
	TypeBookingAction   = "booking.action"
)

type Event struct {
	Type       string         `json:"type"`
	PropertyID string         `json:"propertyId"`
	Channel    string         `json:"channel,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	At         time.Time      `json:"at"`
}

// Broker delivers events to every subscriber of a property. Publish never blocks: a subscriber that falls
// behind misses events.
type Broker interface {
	Subscribe(propertyID string) chan Event
	Unsubscribe(propertyID string, ch chan Event)
	Publish(evt Event)
}

// MemoryBroker is the in-process broker used when no REDIS_URL is set.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // propertyId -> subscribers
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *MemoryBroker) Subscribe(propertyID string) chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	if b.subs[propertyID] == nil {
		b.subs[propertyID] = map[chan Event]struct{}{}
	}
	b.subs[propertyID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *MemoryBroker) Unsubscribe(propertyID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[propertyID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, propertyID)
	}
	close(ch)
}

func (b *MemoryBroker) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[evt.PropertyID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Subscribe(string) chan Event         { return make(chan Event) }
func (Discard) Unsubscribe(_ string, ch chan Event) { close(ch) }
func (Discard) Publish(Event)                       {}
