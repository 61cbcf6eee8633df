// Package parking keeps the set of page requests that could not be served
// while offline, so they can be replayed once connectivity returns.
package parking

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// Request identifies a page request by value
type Request struct {
	CollectionKey int `json:"collection_key"`
	Page          int `json:"page"`
	PageSize      int `json:"page_size"`
}

// String implements fmt.Stringer
func (r Request) String() string {
	return fmt.Sprintf("collection %d page %d (size %d)", r.CollectionKey, r.Page, r.PageSize)
}

// Queue is a deduplicated, concurrency-safe set of parked requests
type Queue struct {
	mu       sync.Mutex
	requests map[Request]struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{requests: make(map[Request]struct{})}
}

// Park adds r to the queue. It reports whether r was newly added.
func (q *Queue) Park(r Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.requests[r]; ok {
		return false
	}
	q.requests[r] = struct{}{}
	return true
}

// Unpark removes r from the queue. It reports whether r was present.
func (q *Queue) Unpark(r Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.requests[r]; !ok {
		return false
	}
	delete(q.requests, r)
	return true
}

// Contains reports whether r is parked
func (q *Queue) Contains(r Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.requests[r]
	return ok
}

// Len returns the number of parked requests
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Snapshot returns a copy of the parked requests, ordered by collection,
// page and page size. Later mutations of the queue do not affect it.
func (q *Queue) Snapshot() []Request {
	q.mu.Lock()
	out := make([]Request, 0, len(q.requests))
	for r := range q.requests {
		out = append(out, r)
	}
	q.mu.Unlock()

	slices.SortFunc(out, func(a, b Request) int {
		return cmp.Or(
			cmp.Compare(a.CollectionKey, b.CollectionKey),
			cmp.Compare(a.Page, b.Page),
			cmp.Compare(a.PageSize, b.PageSize),
		)
	})
	return out
}
