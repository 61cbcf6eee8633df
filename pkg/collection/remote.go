package collection

import "context"

// RemoteItem is a single item as returned by the remote paging API.
// An empty ImageRef means the item cannot be rendered.
type RemoteItem struct {
	ID       int
	Title    string
	ImageRef string
	Width    int
	Height   int
	AltText  *string
}

// RemotePage is one page of items plus pagination metadata from the remote API.
type RemotePage struct {
	Items      []RemoteItem
	Page       int
	PageSize   int
	TotalPages int
	TotalItems int
}

// Fetcher is the remote paging API consumed by the repository.
type Fetcher interface {
	FetchPage(ctx context.Context, collectionKey, page, pageSize int) (*RemotePage, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, collectionKey, page, pageSize int) (*RemotePage, error)

// FetchPage calls f
func (f FetcherFunc) FetchPage(ctx context.Context, collectionKey, page, pageSize int) (*RemotePage, error) {
	return f(ctx, collectionKey, page, pageSize)
}
