// Package observer provides the subscribe/publish primitive shared by the
// client state managers.
package observer

import "sync"

// Hub fans a value out to every registered listener.
//
// Publish works on a copy of the listener set, so a listener may unsubscribe
// itself (or another listener) while a publish is in progress. Listeners run
// synchronously on the publishing goroutine.
type Hub[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]func(T)
	order     []uint64
}

// NewHub returns an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{listeners: map[uint64]func(T){}}
}

// Subscribe registers fn and returns an idempotent unsubscribe handle.
func (h *Hub[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.listeners[id] = fn
	h.order = append(h.order, id)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

// Publish delivers value to the listeners registered at call time that are
// still registered when their turn comes.
func (h *Hub[T]) Publish(value T) {
	h.mu.Lock()
	ids := append([]uint64(nil), h.order...)
	h.mu.Unlock()

	for _, id := range ids {
		h.mu.Lock()
		fn, ok := h.listeners[id]
		h.mu.Unlock()
		if ok {
			fn(value)
		}
	}
}

// Len returns the number of active listeners.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

func (h *Hub[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.listeners[id]; !ok {
		return
	}
	delete(h.listeners, id)
	for i, candidate := range h.order {
		if candidate == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}
