// Package notify provides the subscription primitive shared by the betting
// components: an explicit subscriber list with FIFO delivery order and
// explicit unsubscribe, instead of ad-hoc callback fields.
package notify

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub holds subscribers of a single callback type. The zero value is not
// usable; create hubs with NewHub.
type Hub[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []entry[T]
}

type entry[T any] struct {
	id int
	fn T
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{}
}

// Subscribe appends fn to the delivery list. Subscribers are delivered to in
// registration order. The returned func removes the subscription; calling it
// more than once is harmless.
func (h *Hub[T]) Subscribe(fn T) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs = append(h.subs, entry[T]{id: id, fn: fn})
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, e := range h.subs {
			if e.id == id {
				h.subs = append(h.subs[:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the current subscribers in FIFO order. Callers iterate the
// snapshot outside any component lock so a subscriber can re-enter the
// component without deadlocking.
func (h *Hub[T]) Snapshot() []T {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]T, len(h.subs))
	for i, e := range h.subs {
		out[i] = e.fn
	}
	return out
}

// Len reports the current subscriber count.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Safely invokes fn, recovering and logging a panic. Orchestration callbacks
// are fail-open: a broken subscriber never blocks the underlying transition.
func Safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("subscriber", what).Msg("subscriber panicked")
		}
	}()
	fn()
}
