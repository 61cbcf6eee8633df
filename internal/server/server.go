// Package server exposes the repository over HTTP: JSON pages, parked
// requests and a server-sent event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lepinkainen/pagesync/pkg/collection"
	"github.com/lepinkainen/pagesync/pkg/events"
	"github.com/lepinkainen/pagesync/pkg/parking"
)

// Backend is the repository surface served over HTTP
type Backend interface {
	Page(ctx context.Context, collectionKey, page, pageSize int, policy collection.CachePolicy) (*collection.Page[collection.Item], error)
	Parked() []parking.Request
	Subscribe(ctx context.Context) <-chan events.Event
	Connectivity(ctx context.Context) <-chan bool
	IsConnected() bool
}

// Options holds request defaults
type Options struct {
	Addr      string
	PageSize  int
	Policy    collection.CachePolicy
	KeepAlive time.Duration
}

// Server is the HTTP surface
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
}

// NewServer creates a server for backend listening on opts.Addr
func NewServer(backend Backend, opts Options) *Server {
	handlers := NewHandlers(backend, opts)

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handlers.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown does not cancel request contexts, so streams are ended here
	srv.RegisterOnShutdown(handlers.CloseStreams)

	return &Server{httpServer: srv, handlers: handlers}
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Stop is called
func (s *Server) Start() error {
	slog.Info("Starting HTTP server", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

// Stop shuts the server down. Event streams are closed at once; other
// requests are waited for until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	slog.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Router builds the chi routes
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/parked", h.Parked)
	r.Get("/events", h.Events)
	r.Get("/collections/{key}/pages/{page}", h.Page)

	return r
}
