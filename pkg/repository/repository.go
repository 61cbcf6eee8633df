// Package repository serves collection pages through the local cache,
// falling back to stale data and parking requests while the remote API is
// unreachable.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lepinkainen/pagesync/pkg/collection"
	"github.com/lepinkainen/pagesync/pkg/connectivity"
	"github.com/lepinkainen/pagesync/pkg/events"
	"github.com/lepinkainen/pagesync/pkg/parking"
	"github.com/lepinkainen/pagesync/pkg/store"
)

// Store is the persistence the repository reads from and writes through
type Store interface {
	FreshnessOf(ctx context.Context, partitionKey string, page int) (time.Time, error)
	ItemsOf(ctx context.Context, partitionKey string, page int) ([]collection.Item, error)
	MetaOf(ctx context.Context, partitionKey string, page, fallbackPageSize int) (store.Meta, error)
	Upsert(ctx context.Context, fetched *collection.RemotePage, partitionKey string) error
}

// Ensure *store.Store implements Store
var _ Store = (*store.Store)(nil)

// Config wires a Repository to its collaborators. Events and Queue are
// created when nil; a bus created here is closed with the repository.
type Config struct {
	Fetcher      collection.Fetcher
	Store        Store
	Connectivity connectivity.Observer
	Events       *events.Bus
	Queue        *parking.Queue
	Now          func() time.Time
}

// Repository is the read-through cache for paginated collections
type Repository struct {
	fetcher      collection.Fetcher
	store        Store
	connectivity connectivity.Observer
	events       *events.Bus
	ownsEvents   bool
	queue        *parking.Queue
	now          func() time.Time

	flights singleflight.Group

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a repository and starts its replay loop. Call Close to stop it.
func New(config Config) *Repository {
	r := &Repository{
		fetcher:      config.Fetcher,
		store:        config.Store,
		connectivity: config.Connectivity,
		events:       config.Events,
		queue:        config.Queue,
		now:          config.Now,
		done:         make(chan struct{}),
	}
	if r.events == nil {
		r.events = events.NewBus()
		r.ownsEvents = true
	}
	if r.queue == nil {
		r.queue = parking.NewQueue()
	}
	if r.now == nil {
		r.now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.replayLoop(ctx)

	return r
}

// Close stops the replay loop and, if the repository created its event
// bus, closes every event subscription
func (r *Repository) Close() {
	r.closeOnce.Do(func() {
		r.cancel()
		<-r.done
		if r.ownsEvents {
			r.events.Close()
		}
	})
}

// Page returns one page of a collection under the given cache policy.
// Domain failures are *collection.Error values; storage faults wrap
// store.ErrStorage and are returned unchanged.
func (r *Repository) Page(ctx context.Context, collectionKey, page, pageSize int, policy collection.CachePolicy) (*collection.Page[collection.Item], error) {
	if err := ctx.Err(); err != nil {
		return nil, MapError(err)
	}

	pk := collection.PartitionKey(collectionKey)
	req := parking.Request{CollectionKey: collectionKey, Page: page, PageSize: pageSize}

	refreshedAt, err := r.store.FreshnessOf(ctx, pk, page)
	if err != nil {
		return nil, r.storageError(ctx, err)
	}

	if policy.IsFresh(refreshedAt, r.now()) {
		slog.Debug("Serving fresh page from cache", "collection", collectionKey, "page", page)
		result, err := r.cached(ctx, pk, page, pageSize)
		if err != nil {
			return nil, r.storageError(ctx, err)
		}
		return result, nil
	}

	if !r.connectivity.IsConnected() {
		if r.queue.Park(req) {
			slog.Info("Parked request while offline", "request", req.String())
		}

		result, err := r.cached(ctx, pk, page, pageSize)
		if err != nil {
			return nil, r.storageError(ctx, err)
		}
		if len(result.Items) == 0 {
			return nil, &collection.Error{Kind: collection.KindOfflineNoCache}
		}
		slog.Debug("Serving stale page while offline", "collection", collectionKey, "page", page)
		return result, nil
	}

	result, err := r.fetchShared(ctx, req)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, store.ErrStorage) {
		return nil, r.storageError(ctx, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, MapError(ctx.Err())
	}

	if r.queue.Park(req) {
		slog.Warn("Parked request after fetch failure", "request", req.String(), "error", err)
	}

	// A missed deadline still falls back to the cache
	readCtx := context.WithoutCancel(ctx)
	stale, storeErr := r.cached(readCtx, pk, page, pageSize)
	if storeErr != nil {
		return nil, r.storageError(readCtx, storeErr)
	}
	if len(stale.Items) > 0 {
		slog.Debug("Serving stale page after fetch failure", "collection", collectionKey, "page", page)
		return stale, nil
	}

	return nil, MapError(err)
}

// WarmRefreshParked replays every parked request once, sequentially. It
// returns the number of requests that were refreshed and unparked.
func (r *Repository) WarmRefreshParked(ctx context.Context) int {
	if !r.connectivity.IsConnected() {
		return 0
	}

	pending := r.queue.Snapshot()
	if len(pending) == 0 {
		return 0
	}
	slog.Info("Replaying parked requests", "count", len(pending))

	refreshed := 0
	for _, req := range pending {
		if ctx.Err() != nil {
			break
		}
		if _, err := r.refresh(ctx, req, true); err != nil {
			slog.Debug("Parked request still failing", "request", req.String(), "error", err)
			continue
		}
		refreshed++
	}

	slog.Info("Replay finished", "refreshed", refreshed, "remaining", r.queue.Len())
	return refreshed
}

// Parked returns the currently parked requests
func (r *Repository) Parked() []parking.Request {
	return r.queue.Snapshot()
}

// Subscribe returns a stream of domain events
func (r *Repository) Subscribe(ctx context.Context) <-chan events.Event {
	return r.events.Subscribe(ctx)
}

// Connectivity returns a stream of reachability states, starting with the current one
func (r *Repository) Connectivity(ctx context.Context) <-chan bool {
	return r.connectivity.Subscribe(ctx)
}

// IsConnected reports the current reachability state
func (r *Repository) IsConnected() bool {
	return r.connectivity.IsConnected()
}

// replayLoop drains the parked queue on every online state it observes
func (r *Repository) replayLoop(ctx context.Context) {
	defer close(r.done)

	for up := range r.connectivity.Subscribe(ctx) {
		if up {
			r.WarmRefreshParked(ctx)
		}
	}
	slog.Debug("Replay loop stopped")
}

// fetchShared collapses concurrent refreshes of the same request into one.
// The shared refresh is not tied to any single caller's context, so a
// cancelled caller never aborts a write-through other callers wait on.
func (r *Repository) fetchShared(ctx context.Context, req parking.Request) (*collection.Page[collection.Item], error) {
	key := fmt.Sprintf("%d/%d/%d", req.CollectionKey, req.Page, req.PageSize)

	ch := r.flights.DoChan(key, func() (any, error) {
		return r.refresh(context.WithoutCancel(ctx), req, false)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*collection.Page[collection.Item]), nil
	}
}

// refresh fetches a page, writes it through and announces it. When unpark
// is set the request leaves the parked queue before the event is published.
func (r *Repository) refresh(ctx context.Context, req parking.Request, unpark bool) (*collection.Page[collection.Item], error) {
	pk := collection.PartitionKey(req.CollectionKey)

	fetched, err := r.fetcher.FetchPage(ctx, req.CollectionKey, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	if err := r.store.Upsert(ctx, fetched, pk); err != nil {
		return nil, err
	}

	if unpark {
		r.queue.Unpark(req)
	}
	r.events.Publish(events.PageUpdated{CollectionKey: req.CollectionKey, Page: req.Page})

	items, err := r.store.ItemsOf(ctx, pk, fetched.Page)
	if err != nil {
		return nil, err
	}

	slog.Debug("Refreshed page", "collection", req.CollectionKey, "page", req.Page, "items", len(items))

	return &collection.Page[collection.Item]{
		Items:      items,
		Page:       fetched.Page,
		PageSize:   fetched.PageSize,
		TotalPages: fetched.TotalPages,
		TotalItems: fetched.TotalItems,
	}, nil
}

// cached builds a page from whatever the store holds
func (r *Repository) cached(ctx context.Context, pk string, page, pageSize int) (*collection.Page[collection.Item], error) {
	items, err := r.store.ItemsOf(ctx, pk, page)
	if err != nil {
		return nil, err
	}

	meta, err := r.store.MetaOf(ctx, pk, page, pageSize)
	if err != nil {
		return nil, err
	}

	return &collection.Page[collection.Item]{
		Items:      items,
		Page:       page,
		PageSize:   meta.PageSize,
		TotalPages: collection.UnboundedPages,
		TotalItems: meta.TotalItems,
	}, nil
}

// storageError reports a cancelled caller as Cancelled rather than as a
// storage fault
func (r *Repository) storageError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return MapError(ctx.Err())
	}
	return err
}
