package events

import (
	"sync"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/infrastructure/observability"
)

// subscriberBuffer is the per-subscriber backlog before events are dropped.
const subscriberBuffer = 100

type subscriberSet map[chan *entities.PortalEvent]struct{}

// hub is the in-process fan-out both buses deliver through. A slow
// subscriber misses events rather than stalling the publisher.
type hub struct {
	mu          sync.RWMutex
	subscribers map[string]subscriberSet
	closed      bool

	// onEmpty runs with the lock held when a channel loses its last subscriber
	onEmpty func(channel string)
}

func newHub() *hub {
	return &hub{subscribers: make(map[string]subscriberSet)}
}

// add registers a subscriber. first reports whether the channel had none.
// After close the returned channel is already closed.
func (h *hub) add(channel string) (sub chan *entities.PortalEvent, first bool) {
	sub = make(chan *entities.PortalEvent, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub)
		return sub, false
	}
	if h.subscribers[channel] == nil {
		h.subscribers[channel] = make(subscriberSet)
		first = true
	}
	h.subscribers[channel][sub] = struct{}{}
	return sub, first
}

func (h *hub) remove(channel string, sub chan *entities.PortalEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub)
	if len(subs) == 0 {
		h.dropLocked(channel)
	}
}

// deliver hands event to every subscriber of channel and returns how many
// were skipped because their buffer was full
func (h *hub) deliver(channel string, event *entities.PortalEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	skipped := 0
	for sub := range h.subscribers[channel] {
		select {
		case sub <- event:
		default:
			skipped++
		}
	}
	if skipped > 0 {
		observability.GetLogger().Warn().
			Str("channel", channel).
			Str("event_id", event.ID).
			Int("skipped", skipped).
			Msg("subscriber buffers full, event skipped")
	}
	return skipped
}

// drop closes every subscriber of channel
func (h *hub) drop(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(channel)
}

func (h *hub) dropLocked(channel string) {
	subs, ok := h.subscribers[channel]
	if !ok {
		return
	}
	for sub := range subs {
		close(sub)
	}
	delete(h.subscribers, channel)
	if h.onEmpty != nil {
		h.onEmpty(channel)
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channel := range h.subscribers {
		h.dropLocked(channel)
	}
	h.closed = true
}

func (h *hub) count(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[channel])
}
