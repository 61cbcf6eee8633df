// Package events provides fire-and-forget multicast of domain events.
package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/pagesync/pkg/broadcast"
)

// DefaultBuffer is the per-subscriber buffer size
const DefaultBuffer = 10

// Event is a domain event. The set of implementations is closed.
type Event interface {
	fmt.Stringer
	isEvent()
}

// PageUpdated reports that a page of a collection was refreshed in the store.
type PageUpdated struct {
	CollectionKey int `json:"collection_key"`
	Page          int `json:"page"`
}

func (PageUpdated) isEvent() {}

// String implements fmt.Stringer
func (e PageUpdated) String() string {
	return fmt.Sprintf("page_updated(%d, %d)", e.CollectionKey, e.Page)
}

// Publisher posts events
type Publisher interface {
	Publish(event Event)
}

// Bus delivers each published event to every live subscriber.
// Events are never persisted or replayed to late subscribers.
type Bus struct {
	hub *broadcast.Hub[Event]
}

// Ensure Bus implements Publisher
var _ Publisher = (*Bus)(nil)

// NewBus creates a bus with DefaultBuffer-sized subscriber channels
func NewBus() *Bus {
	return NewBusWithBuffer(DefaultBuffer)
}

// NewBusWithBuffer creates a bus with the given per-subscriber buffer size.
// When a subscriber falls behind, its oldest buffered events are dropped.
func NewBusWithBuffer(buffer int) *Bus {
	return &Bus{hub: broadcast.New[Event](buffer)}
}

// Publish delivers event to all current subscribers
func (b *Bus) Publish(event Event) {
	n := b.hub.Publish(event)
	slog.Debug("Published event", "event", event.String(), "subscribers", n)
}

// Subscribe returns a fresh event stream that ends when ctx is done or the
// bus is closed
func (b *Bus) Subscribe(ctx context.Context) <-chan Event {
	return b.hub.Subscribe(ctx)
}

// Subscribers returns the number of live subscribers
func (b *Bus) Subscribers() int {
	return b.hub.Len()
}

// Close ends every subscription
func (b *Bus) Close() {
	b.hub.Close()
}
