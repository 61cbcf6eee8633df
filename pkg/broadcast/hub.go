// Package broadcast provides a multicast hub that fans values out to any
// number of independent subscriber channels.
package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Hub delivers every published value to each live subscriber.
// Each subscriber owns a bounded buffer; when it is full the oldest
// buffered value is dropped so a slow subscriber never blocks the others.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]*subscription[T]
	buffer int
	closed bool
}

type subscription[T any] struct {
	ch   chan T
	stop func() bool // deregisters the ctx callback
}

// New creates a hub whose subscriber channels buffer up to buffer values
func New[T any](buffer int) *Hub[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub[T]{
		subs:   make(map[uuid.UUID]*subscription[T]),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The seed values are queued before
// any value published afterwards. The channel is closed when ctx is done or
// the hub is closed; no goroutine is held per subscriber until then.
// Subscribing to a closed hub returns a closed channel.
func (h *Hub[T]) Subscribe(ctx context.Context, seed ...T) <-chan T {
	ch := make(chan T, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}

	id := uuid.New()
	sub := &subscription[T]{ch: ch}
	// AfterFunc runs remove in its own goroutine, never under h.mu
	sub.stop = context.AfterFunc(ctx, func() { h.remove(id) })
	h.subs[id] = sub
	for _, v := range seed {
		offer(ch, v)
	}
	h.mu.Unlock()

	return ch
}

// Publish delivers v to every current subscriber and returns how many
// subscribers it was offered to.
func (h *Hub[T]) Publish(v T) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0
	}

	for _, sub := range h.subs {
		offer(sub.ch, v)
	}
	return len(h.subs)
}

// Len returns the number of live subscribers
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Publishing after Close is a no-op.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, sub := range h.subs {
		sub.stop()
		close(sub.ch)
		delete(h.subs, id)
	}
	slog.Debug("Broadcast hub closed")
}

func (h *Hub[T]) remove(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subs[id]; ok {
		sub.stop()
		close(sub.ch)
		delete(h.subs, id)
	}
}

// offer enqueues v, dropping the oldest buffered value when the buffer is full.
// Callers hold h.mu, so offer is the only sender on ch.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}

		select {
		case <-ch:
		default:
		}
	}
}
