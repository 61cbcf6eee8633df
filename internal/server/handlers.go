package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lepinkainen/pagesync/pkg/collection"
	"github.com/lepinkainen/pagesync/pkg/events"
	"github.com/lepinkainen/pagesync/pkg/parking"
	"github.com/lepinkainen/pagesync/pkg/store"
)

// StatusClientClosedRequest is reported when the caller went away
const StatusClientClosedRequest = 499

const (
	maxPageSize      = 100
	defaultKeepAlive = 15 * time.Second
)

// Handlers serves the HTTP routes
type Handlers struct {
	backend   Backend
	pageSize  int
	policy    collection.CachePolicy
	keepAlive time.Duration

	// closing ends open event streams when the server shuts down
	closing     context.Context
	stopStreams context.CancelFunc
}

// NewHandlers creates handlers with the given request defaults
func NewHandlers(backend Backend, opts Options) *Handlers {
	closing, stopStreams := context.WithCancel(context.Background())
	h := &Handlers{
		backend:     backend,
		pageSize:    opts.PageSize,
		policy:      opts.Policy,
		keepAlive:   opts.KeepAlive,
		closing:     closing,
		stopStreams: stopStreams,
	}
	if h.pageSize <= 0 {
		h.pageSize = 20
	}
	if h.policy.PageTTL < 0 {
		h.policy = collection.DefaultCachePolicy()
	}
	if h.keepAlive <= 0 {
		h.keepAlive = defaultKeepAlive
	}
	return h
}

// CloseStreams ends every open event stream. Streams opened afterwards
// close immediately.
func (h *Handlers) CloseStreams() {
	h.stopStreams()
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
	Parked    int    `json:"parked"`
}

// ConnectivityEvent is sent on the event stream when reachability changes
type ConnectivityEvent struct {
	Connected bool `json:"connected"`
}

// Page handles GET /collections/{key}/pages/{page}
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	key, err := strconv.Atoi(chi.URLParam(r, "key"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid collection key")
		return
	}

	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 1 {
		writeJSONError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}

	size := h.pageSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxPageSize {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("size must be between 1 and %d", maxPageSize))
			return
		}
	}

	policy := h.policy
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		ttl, err := parseTTL(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		policy = collection.CachePolicy{PageTTL: ttl}
	}

	result, err := h.backend.Page(r.Context(), key, page, size, policy)
	if err != nil {
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Page request failed", "collection", key, "page", page, "error", err)
		}
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Parked handles GET /parked
func (h *Handlers) Parked(w http.ResponseWriter, r *http.Request) {
	parked := h.backend.Parked()
	if parked == nil {
		parked = []parking.Request{}
	}
	writeJSON(w, http.StatusOK, parked)
}

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Connected: h.backend.IsConnected(),
		Parked:    len(h.backend.Parked()),
	})
}

// Events handles GET /events, streaming page updates and connectivity
// changes until the client disconnects or the streams are closed
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	updates := h.backend.Subscribe(ctx)
	connectivity := h.backend.Connectivity(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	slog.Debug("Event stream opened", "remote", r.RemoteAddr)
	defer slog.Debug("Event stream closed", "remote", r.RemoteAddr)

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case <-h.closing.Done():
			return
		case event, ok := <-updates:
			if !ok {
				return
			}
			err = writeEvent(w, event)
		case connected, ok := <-connectivity:
			if !ok {
				return
			}
			err = writeSSE(w, "connectivity", ConnectivityEvent{Connected: connected})
		case <-ticker.C:
			_, err = fmt.Fprint(w, ": keep-alive\n\n")
		}
		if err != nil {
			slog.Debug("Event stream write failed", "error", err)
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, event events.Event) error {
	switch e := event.(type) {
	case events.PageUpdated:
		return writeSSE(w, "page_updated", e)
	default:
		return writeSSE(w, "message", event.String())
	}
}

func writeSSE(w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

// parseTTL accepts a Go duration ("90s") or a whole number of seconds
func parseTTL(raw string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0, errors.New("ttl must not be negative")
		}
		return time.Duration(seconds) * time.Second, nil
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid ttl %q", raw)
	}
	if ttl < 0 {
		return 0, errors.New("ttl must not be negative")
	}
	return ttl, nil
}

// errorResponse maps a repository error to an HTTP status and body
func errorResponse(err error) (int, ErrorResponse) {
	if errors.Is(err, store.ErrStorage) {
		return http.StatusInternalServerError, ErrorResponse{Error: "storage failure", Kind: "storage_failure"}
	}

	var domainErr *collection.Error
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Kind: collection.KindUnknown.String()}
	}

	status := http.StatusInternalServerError
	switch domainErr.Kind {
	case collection.KindOfflineNoCache:
		status = http.StatusServiceUnavailable
	case collection.KindTransportFailure, collection.KindInvalidData:
		status = http.StatusBadGateway
	case collection.KindNotFound:
		status = http.StatusNotFound
	case collection.KindCancelled:
		status = StatusClientClosedRequest
	}
	return status, ErrorResponse{Error: domainErr.Error(), Kind: domainErr.Kind.String()}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("Failed to write JSON response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
