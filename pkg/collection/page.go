// Package collection provides the shared types for paginated remote collections
// served through the local cache.
package collection

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// UnboundedPages is reported as TotalPages when a page is served from the
// cache and the real page count is unknown.
const UnboundedPages = math.MaxInt

// DefaultPageTTL is the page time-to-live used when none is configured.
const DefaultPageTTL = 300 * time.Second

// Page is the paginated result envelope returned to callers.
type Page[T any] struct {
	Items      []T `json:"items" yaml:"items"`
	Page       int `json:"page" yaml:"page"`
	PageSize   int `json:"page_size" yaml:"page_size"`
	TotalPages int `json:"total_pages" yaml:"total_pages"`
	TotalItems int `json:"total_items" yaml:"total_items"`
}

// CachePolicy decides when a cached page is considered fresh.
// A zero PageTTL forces a refresh attempt on every request.
type CachePolicy struct {
	PageTTL time.Duration
}

// DefaultCachePolicy returns the policy with DefaultPageTTL
func DefaultCachePolicy() CachePolicy {
	return CachePolicy{PageTTL: DefaultPageTTL}
}

// IsFresh reports whether a page refreshed at refreshedAt is still fresh at now.
func (p CachePolicy) IsFresh(refreshedAt, now time.Time) bool {
	return now.Sub(refreshedAt) < p.PageTTL
}

// PartitionKey returns the partition key that scopes page numbering and
// item storage for one collection.
func PartitionKey(collectionKey int) string {
	return fmt.Sprintf("collection:%d", collectionKey)
}

// OwnerKey returns the owner key a partition key was built from
func OwnerKey(partitionKey string) string {
	if rest, ok := strings.CutPrefix(partitionKey, "collection:"); ok {
		return rest
	}
	return partitionKey
}
