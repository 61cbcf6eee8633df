package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lepinkainen/pagesync/pkg/collection"
)

type recordingPager struct {
	policy collection.CachePolicy
	args   [3]int
}

func (p *recordingPager) Page(ctx context.Context, collectionKey, page, pageSize int, policy collection.CachePolicy) (*collection.Page[collection.Item], error) {
	p.policy = policy
	p.args = [3]int{collectionKey, page, pageSize}
	return &collection.Page[collection.Item]{Page: page, PageSize: pageSize}, nil
}

func TestPageLoader(t *testing.T) {
	tests := []struct {
		name     string
		policy   collection.CachePolicy
		expected time.Duration
	}{
		{"explicit ttl", collection.CachePolicy{PageTTL: time.Hour}, time.Hour},
		{"zero ttl is kept", collection.CachePolicy{}, 0},
		{"negative ttl uses default", collection.CachePolicy{PageTTL: -1}, collection.DefaultPageTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pager := &recordingPager{}
			loader := NewPageLoader(pager, tt.policy)

			if _, err := loader.Load(context.Background(), 1, 2, 3); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if pager.policy.PageTTL != tt.expected {
				t.Errorf("policy ttl = %v, want %v", pager.policy.PageTTL, tt.expected)
			}
			if pager.args != [3]int{1, 2, 3} {
				t.Errorf("args = %v", pager.args)
			}
			if loader.Policy().PageTTL != tt.expected {
				t.Errorf("Policy() = %v", loader.Policy())
			}
		})
	}
}
