package repository

import (
	"context"

	"github.com/lepinkainen/pagesync/pkg/collection"
)

// Pager is the page operation of a Repository
type Pager interface {
	Page(ctx context.Context, collectionKey, page, pageSize int, policy collection.CachePolicy) (*collection.Page[collection.Item], error)
}

// Ensure Repository implements Pager
var _ Pager = (*Repository)(nil)

// PageLoader loads pages under one fixed cache policy
type PageLoader struct {
	pager  Pager
	policy collection.CachePolicy
}

// NewPageLoader creates a loader. A negative TTL selects the default policy.
func NewPageLoader(pager Pager, policy collection.CachePolicy) *PageLoader {
	if policy.PageTTL < 0 {
		policy = collection.DefaultCachePolicy()
	}
	return &PageLoader{pager: pager, policy: policy}
}

// Policy returns the loader's cache policy
func (l *PageLoader) Policy() collection.CachePolicy {
	return l.policy
}

// Load returns one page of a collection
func (l *PageLoader) Load(ctx context.Context, collectionKey, page, pageSize int) (*collection.Page[collection.Item], error) {
	return l.pager.Page(ctx, collectionKey, page, pageSize, l.policy)
}
