// Package observe fans state snapshots out to subscribers in order.
package observe

import "sync"

// Hub delivers versioned snapshots. A snapshot older than one already
// delivered is dropped, so subscribers never see state go backwards even
// when publishers race. Callbacks run synchronously and must not publish
// to the same hub.
type Hub[T any] struct {
	mu   sync.Mutex
	subs map[int]func(T)
	next int

	deliverMu sync.Mutex
	delivered uint64
}

// Subscribe registers fn and returns a function that removes it
func (h *Hub[T]) Subscribe(fn func(T)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(T))
	}
	id := h.next
	h.next++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Publish delivers v unless a newer version has already gone out
func (h *Hub[T]) Publish(version uint64, v T) {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()
	if version <= h.delivered {
		return
	}
	h.delivered = version

	h.mu.Lock()
	subs := make([]func(T), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}
