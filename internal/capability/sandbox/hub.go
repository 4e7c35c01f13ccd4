// Package sandbox provides in-process implementations of the capabilities.
//
// They back the headless binary and the tests: accounts, SDK keys and remote
// data live in memory and every call is recorded for inspection.
package sandbox

import (
	"context"
	"sync"
)

// hub fans published values out to blocking subscribers.
type hub[T any] struct {
	mu   sync.Mutex
	seq  int
	subs map[int]func(T)
	last *T
}

func (h *hub[T]) subscribe(ctx context.Context, send func(T)) {
	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[int]func(T))
	}
	h.seq++
	id := h.seq
	h.subs[id] = send
	h.mu.Unlock()

	<-ctx.Done()

	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	h.last = &v
	subs := make([]func(T), 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s(v)
	}
}

func (h *hub[T]) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
