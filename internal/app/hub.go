package app

import "sync"

// Hub fans observations out to subscribers. Each subscriber has its own
// buffered channel; a subscriber that falls behind misses observations
// rather than stalling the pipeline.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Observation]struct{}
	latest Observation
	has    bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Observation]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel func removes it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Observation, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Observation, buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish records o as the latest observation and offers it to every
// subscriber without blocking.
func (h *Hub) Publish(o Observation) {
	h.mu.Lock()
	h.latest = o
	h.has = true
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- o:
		default:
		}
	}
}

// Latest returns the most recent observation.
func (h *Hub) Latest() (Observation, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.has
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
