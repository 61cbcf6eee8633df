// Package http provides the low-level HTTP client and response helpers
// shared by the remote API client and the reachability probe.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"
)

// UserAgent identifies pagesync to remote servers
const UserAgent = "pagesync/1.0"

var retryableStatusCodes = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryableStatusCodes returns the HTTP status codes worth retrying
func RetryableStatusCodes() []int {
	return slices.Clone(retryableStatusCodes)
}

// IsRetryableStatusCode determines if an HTTP status code should be retried
func IsRetryableStatusCode(statusCode int) bool {
	return slices.Contains(retryableStatusCodes, statusCode)
}

// ClientConfig represents HTTP client configuration
type ClientConfig struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	UserAgent    string
	Headers      map[string]string
}

// DefaultConfig returns default HTTP client configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
		UserAgent:    UserAgent,
		Headers:      make(map[string]string),
	}
}

// ProbeConfig returns a configuration suited to reachability probes:
// short timeout and no retries, so a probe reports the current state quickly.
func ProbeConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:    5 * time.Second,
		MaxRetries: 0,
		UserAgent:  UserAgent,
		Headers:    make(map[string]string),
	}
}

// Client is an HTTP client that retries transport errors and retryable statuses
type Client struct {
	client *http.Client
	config *ClientConfig
}

// NewClient creates a new HTTP client with the given configuration
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	return &Client{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
	}
}

// Head performs an HTTP HEAD request
func (c *Client) Head(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HEAD request: %w", err)
	}
	return c.Do(req)
}

// Do sends req with the configured headers. Transport errors and retryable
// statuses are retried with doubling backoff until MaxRetries is spent or
// the request context ends.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	ctx := req.Context()
	backoff := c.config.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("Retrying request", "method", req.Method, "url", req.URL.String(),
				"attempt", attempt+1, "backoff", backoff, "error", lastErr)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}

		if IsRetryableStatusCode(resp.StatusCode) && attempt < c.config.MaxRetries {
			DrainAndClose(resp)
			lastErr = fmt.Errorf("retryable HTTP status: %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}
