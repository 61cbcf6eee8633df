// Package api provides a JSON HTTP client with rate limiting, retries and
// typed errors for remote paging APIs.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httputil "github.com/lepinkainen/pagesync/pkg/http"
	"golang.org/x/oauth2"
)

// EnhancedClientConfig configures the enhanced HTTP client
type EnhancedClientConfig struct {
	BaseClient     *http.Client
	RateLimiter    RateLimiter
	RetryPolicy    *RetryPolicy
	UserAgent      string
	DefaultHeaders map[string]string
	// TokenSource, when set, authorizes every request with a bearer token
	TokenSource oauth2.TokenSource
}

// EnhancedClient provides HTTP client functionality with rate limiting, retries, and standard headers
type EnhancedClient struct {
	client         *http.Client
	rateLimiter    RateLimiter
	retryPolicy    *RetryPolicy
	userAgent      string
	defaultHeaders map[string]string
}

// NewEnhancedClient creates a new enhanced HTTP client with the provided configuration
func NewEnhancedClient(config *EnhancedClientConfig) *EnhancedClient {
	// Set defaults if not provided
	if config.BaseClient == nil {
		config.BaseClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.RateLimiter == nil {
		config.RateLimiter = NewNoOpRateLimiter()
	}
	if config.RetryPolicy == nil {
		config.RetryPolicy = DefaultRetryPolicy()
	}
	if config.UserAgent == "" {
		config.UserAgent = httputil.UserAgent
	}
	if config.DefaultHeaders == nil {
		config.DefaultHeaders = make(map[string]string)
	}

	client := config.BaseClient
	if config.TokenSource != nil {
		authorized := *client
		authorized.Transport = &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, config.TokenSource),
			Base:   client.Transport,
		}
		client = &authorized
	}

	return &EnhancedClient{
		client:         client,
		rateLimiter:    config.RateLimiter,
		retryPolicy:    config.RetryPolicy,
		userAgent:      config.UserAgent,
		defaultHeaders: config.DefaultHeaders,
	}
}

// StaticToken returns a token source for a fixed bearer token
func StaticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// GetAndDecode performs an HTTP GET request with rate limiting, retries, and JSON decoding.
// Non-2xx responses are returned as *HTTPError and undecodable bodies as *DecodeError.
func (ec *EnhancedClient) GetAndDecode(ctx context.Context, url string, target any, additionalHeaders map[string]string) error {
	operation := func(ctx context.Context) error {
		if err := ec.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", ec.userAgent)

		for key, value := range ec.defaultHeaders {
			req.Header.Set(key, value)
		}

		// Additional headers override defaults
		for key, value := range additionalHeaders {
			req.Header.Set(key, value)
		}

		start := time.Now()
		res, err := ec.client.Do(req)
		duration := time.Since(start)

		if err != nil {
			ec.logAPICall(url, duration, false, err)
			return fmt.Errorf("failed to perform GET request: %w", err)
		}
		defer httputil.DrainAndClose(res)

		if !httputil.IsSuccess(res) {
			httpErr := &HTTPError{
				StatusCode: res.StatusCode,
				Message:    http.StatusText(res.StatusCode),
			}
			ec.logAPICall(url, duration, false, httpErr)
			return httpErr
		}

		if err := json.NewDecoder(res.Body).Decode(target); err != nil {
			ec.logAPICall(url, duration, false, err)
			return &DecodeError{URL: url, Err: err}
		}

		ec.logAPICall(url, duration, true, nil)
		return nil
	}

	return ExecuteWithRetry(ctx, operation, ec.retryPolicy, fmt.Sprintf("GET %s", url))
}

// CanProceed returns true if a request can be made without rate limiting delay
func (ec *EnhancedClient) CanProceed() bool {
	return ec.rateLimiter.CanProceed()
}

// SetDefaultHeader sets a default header that will be included in all requests
func (ec *EnhancedClient) SetDefaultHeader(key, value string) {
	ec.defaultHeaders[key] = value
}

// logAPICall logs API call statistics
func (ec *EnhancedClient) logAPICall(url string, duration time.Duration, success bool, err error) {
	status := "success"
	if !success {
		status = "failure"
	}

	fields := []any{
		"url", url,
		"duration", duration,
		"status", status,
	}

	if err != nil {
		fields = append(fields, "error", err)
	}

	if success {
		slog.Debug("API call completed", fields...)
	} else {
		slog.Warn("API call failed", fields...)
	}
}
