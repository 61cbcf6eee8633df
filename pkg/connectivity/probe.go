package connectivity

import (
	"context"
	"log/slog"

	httputil "github.com/lepinkainen/pagesync/pkg/http"
)

// Probe reports whether the remote side is currently reachable.
type Probe interface {
	Reachable(ctx context.Context) bool
}

// ProbeFunc adapts a function to the Probe interface
type ProbeFunc func(ctx context.Context) bool

// Reachable calls f
func (f ProbeFunc) Reachable(ctx context.Context) bool {
	return f(ctx)
}

// HTTPProbe considers the target reachable when a HEAD request gets any
// HTTP response below 500.
type HTTPProbe struct {
	URL    string
	Client *httputil.Client
}

// NewHTTPProbe creates a probe for url using a short-timeout client
func NewHTTPProbe(url string) *HTTPProbe {
	return &HTTPProbe{
		URL:    url,
		Client: httputil.NewClient(httputil.ProbeConfig()),
	}
}

// Reachable implements Probe
func (p *HTTPProbe) Reachable(ctx context.Context) bool {
	resp, err := p.Client.Head(ctx, p.URL)
	if err != nil {
		slog.Debug("Reachability probe failed", "url", p.URL, "error", err)
		return false
	}
	defer httputil.DrainAndClose(resp)

	return httputil.IsReachable(resp)
}
