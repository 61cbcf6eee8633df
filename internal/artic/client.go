// Package artic fetches artwork pages from the Art Institute of Chicago API.
package artic

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/lepinkainen/pagesync/pkg/api"
	"github.com/lepinkainen/pagesync/pkg/collection"
	"github.com/lepinkainen/pagesync/pkg/urlutils"
)

const (
	// DefaultBaseURL is the public API endpoint
	DefaultBaseURL = "https://api.artic.edu/api/v1"

	// DefaultIIIFBase is used until a response reports its own IIIF server
	DefaultIIIFBase = "https://www.artic.edu/iiif/2"

	// ThumbnailWidth is the image width requested for list views
	ThumbnailWidth = 400

	// DetailWidth is the image width requested for detail views
	DetailWidth = 843
)

// searchFields are the artwork fields requested from the search endpoint
var searchFields = []string{"id", "title", "thumbnail", "image_id", "artist_title", "api_model", "api_link"}

// Client implements collection.Fetcher with artist ids as collection keys
type Client struct {
	api     *api.EnhancedClient
	baseURL string

	mu       sync.RWMutex
	iiifBase string
}

// Ensure Client implements collection.Fetcher
var _ collection.Fetcher = (*Client)(nil)

// NewClient creates a client for the API at baseURL
func NewClient(baseURL string, apiClient *api.EnhancedClient) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		api:      apiClient,
		baseURL:  urlutils.TrimBase(baseURL),
		iiifBase: DefaultIIIFBase,
	}
}

// SearchURL builds the artist search URL for one page
func (c *Client) SearchURL(artistID, page, pageSize int) string {
	q := url.Values{}
	q.Set("query[term][artist_id]", strconv.Itoa(artistID))
	q.Set("fields", strings.Join(searchFields, ","))
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(pageSize))
	return c.baseURL + "/artworks/search?" + q.Encode()
}

// FetchPage fetches one page of an artist's artworks
func (c *Client) FetchPage(ctx context.Context, artistID, page, pageSize int) (*collection.RemotePage, error) {
	searchURL := c.SearchURL(artistID, page, pageSize)
	slog.Debug("Fetching artworks page", "artist", artistID, "page", page, "limit", pageSize)

	var resp SearchResponse
	if err := c.api.GetAndDecode(ctx, searchURL, &resp, nil); err != nil {
		return nil, fmt.Errorf("artic search artist %d page %d: %w", artistID, page, err)
	}

	if resp.Config.IIIFURL != "" {
		c.setIIIFBase(resp.Config.IIIFURL)
	}

	result := &collection.RemotePage{
		Items:      make([]collection.RemoteItem, 0, len(resp.Data)),
		Page:       resp.Pagination.CurrentPage,
		PageSize:   resp.Pagination.Limit,
		TotalPages: resp.Pagination.TotalPages,
		TotalItems: resp.Pagination.Total,
	}
	if result.Page == 0 {
		result.Page = page
	}

	for _, artwork := range resp.Data {
		result.Items = append(result.Items, toRemoteItem(artwork))
	}

	slog.Debug("Fetched artworks page", "artist", artistID, "page", result.Page,
		"items", len(result.Items), "totalPages", result.TotalPages)
	return result, nil
}

func toRemoteItem(a Artwork) collection.RemoteItem {
	item := collection.RemoteItem{
		ID:    a.ID,
		Title: a.Title,
	}
	if a.ImageID != nil {
		item.ImageRef = *a.ImageID
	}
	if a.Thumbnail != nil {
		if a.Thumbnail.Width != nil {
			item.Width = *a.Thumbnail.Width
		}
		if a.Thumbnail.Height != nil {
			item.Height = *a.Thumbnail.Height
		}
		item.AltText = a.Thumbnail.AltText
	}
	return item
}

// setIIIFBase records the image server reported by the API. Relative
// values are resolved against the API base URL.
func (c *Client) setIIIFBase(raw string) {
	resolved, err := urlutils.ResolveURL(c.baseURL+"/", raw)
	if err != nil {
		slog.Warn("Ignoring invalid IIIF URL", "url", raw, "error", err)
		return
	}

	c.mu.Lock()
	c.iiifBase = urlutils.TrimBase(resolved)
	c.mu.Unlock()
}

// IIIFBase returns the last IIIF image server seen in a response
func (c *Client) IIIFBase() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iiifBase
}

// ImageURL returns the IIIF URL of an image scaled to width
func (c *Client) ImageURL(imageID string, width int) string {
	return fmt.Sprintf("%s/%s/full/%d,/0/default.jpg", c.IIIFBase(), imageID, width)
}

// ThumbnailURL returns the list-view image URL for an item
func (c *Client) ThumbnailURL(item collection.Item) string {
	return c.ImageURL(item.ExternalImageRef, ThumbnailWidth)
}

// DetailURL returns the detail-view image URL for an item
func (c *Client) DetailURL(item collection.Item) string {
	return c.ImageURL(item.ExternalImageRef, DetailWidth)
}
