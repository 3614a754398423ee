// Package stream fans freshly published activities out to live feed
// subscribers, one logical channel per deal.
package stream

import (
	"sync"
	"time"

	"example.com/dealroom/internal/domain"
	"example.com/dealroom/internal/observability"
)

// subscriberBuffer bounds how far a slow subscriber may lag before events are
// dropped; the durable feed remains the source of truth on the next read.
const subscriberBuffer = 16

// DefaultHighlightWindow is how long a just-arrived activity keeps its "new"
// flag. Purely cosmetic state.
const DefaultHighlightWindow = 5 * time.Second

type subscriber struct {
	dealID string
	ch     chan domain.DealActivity
}

// Hub routes published activities to subscribers of the matching deal.
// Subscriptions for different deals never observe each other's events.
type Hub struct {
	mu        sync.RWMutex
	subs      map[int]*subscriber
	nextID    int
	recent    map[string]time.Time
	highlight time.Duration
	now       func() time.Time
}

// NewHub constructs a Hub with the default highlight window.
func NewHub() *Hub {
	return &Hub{
		subs:      make(map[int]*subscriber),
		recent:    make(map[string]time.Time),
		highlight: DefaultHighlightWindow,
		now:       time.Now,
	}
}

// Subscribe registers interest in one deal's stream. The returned cancel
// function tears the subscription down; after it returns, no further sends
// reach the channel. Callers must cancel when the view goes away.
func (h *Hub) Subscribe(dealID string) (<-chan domain.DealActivity, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	sub := &subscriber{dealID: dealID, ch: make(chan domain.DealActivity, subscriberBuffer)}
	h.subs[id] = sub

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub.ch)
		}
	}
	return sub.ch, cancel
}

// Publish delivers an activity to all subscribers of its deal. Sends never
// block: subscribers that cannot keep up miss events and reconcile via the
// next list fetch.
func (h *Hub) Publish(activity domain.DealActivity) {
	now := h.now()

	h.mu.Lock()
	h.recent[activity.ID] = now
	for id, arrived := range h.recent {
		if now.Sub(arrived) > h.highlight {
			delete(h.recent, id)
		}
	}
	// Sends stay under the lock so a concurrent cancel cannot close a
	// channel mid-delivery; the select keeps them non-blocking.
	for _, sub := range h.subs {
		if sub.dealID == activity.DealID {
			select {
			case sub.ch <- activity:
			default:
			}
		}
	}
	h.mu.Unlock()

	observability.RecordLiveDelivered(now)
}

// IsNew reports whether the activity arrived through the live path within the
// highlight window.
func (h *Hub) IsNew(activityID string) bool {
	h.mu.RLock()
	arrived, ok := h.recent[activityID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return h.now().Sub(arrived) <= h.highlight
}

// SubscriberCount reports active subscriptions, used by metrics and tests.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
