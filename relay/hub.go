package relay

import "sync"

// Subscriber receives broadcast payloads on C until Unsubscribe closes it.
type Subscriber struct {
	C chan []byte
}

// Hub fans one payload stream out to any number of subscribers. Delivery
// is non-blocking: a subscriber whose buffer is full misses the payload
// rather than stalling the broadcast. Subscribers of the book feed catch
// up on the next periodic snapshot, which supersedes anything missed.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new subscriber with the given buffer size.
func (h *Hub) Subscribe(buffer int) *Subscriber {
	sub := &Subscriber{C: make(chan []byte, buffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Calling it
// for an already-removed subscriber is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.C)
}

// Broadcast offers the payload to every subscriber without blocking.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.C <- payload:
		default:
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
