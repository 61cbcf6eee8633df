package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/lepinkainen/pagesync/internal/artic"
	"github.com/lepinkainen/pagesync/internal/config"
	"github.com/lepinkainen/pagesync/pkg/api"
	"github.com/lepinkainen/pagesync/pkg/connectivity"
	"github.com/lepinkainen/pagesync/pkg/database"
	"github.com/lepinkainen/pagesync/pkg/repository"
	"github.com/lepinkainen/pagesync/pkg/store"
)

// parseLevel maps a config level name to a slog level, defaulting to warn
func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelWarn
	}
	return level
}

// newLogHandler builds the log handler for w from the log settings
func newLogHandler(w io.Writer, cfg *config.Config, debug bool) slog.Handler {
	level := parseLevel(cfg.Log.Level)
	if debug {
		level = slog.LevelDebug
	}

	if cfg.Log.Color {
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

func setupLogging(w io.Writer, cfg *config.Config, debug bool) {
	slog.SetDefault(slog.New(newLogHandler(w, cfg, debug)))
}

// app holds the wired runtime of a command
type app struct {
	db      *database.Database
	store   *store.Store
	monitor *connectivity.Monitor
	artic   *artic.Client
	repo    *repository.Repository
	cancel  context.CancelFunc
}

func openStore(ctx context.Context, cfg *config.Config) (*database.Database, *store.Store, error) {
	dbConfig := database.DefaultConfig()
	dbConfig.Path = cfg.Cache.Path

	db, err := database.NewDatabase(dbConfig)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.New(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, st, nil
}

func newAPIClient(cfg *config.Config) *api.EnhancedClient {
	policy := api.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.API.MaxAttempts

	clientConfig := &api.EnhancedClientConfig{
		BaseClient:  &http.Client{Timeout: cfg.API.Timeout},
		RateLimiter: api.NewRateLimiter(cfg.API.RateLimit, cfg.API.Burst),
		RetryPolicy: policy,
		DefaultHeaders: map[string]string{
			"Accept": "application/json",
		},
	}
	if cfg.API.Token != "" {
		clientConfig.TokenSource = api.StaticToken(cfg.API.Token)
	}
	return api.NewEnhancedClient(clientConfig)
}

// openApp wires storage, the remote client, connectivity and the repository.
// With watch set the reachability probe keeps running until Close; otherwise
// it runs once to seed the monitor.
func openApp(ctx context.Context, cfg *config.Config, watch bool) (*app, error) {
	db, st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Retention > 0 {
		result, err := st.Prune(ctx, cfg.Cache.Retention)
		if err != nil {
			slog.Warn("Failed to prune cache", "error", err)
		} else if result.Pages > 0 {
			slog.Info("Pruned expired pages", "pages", result.Pages, "items", result.Items)
		}
	}

	probe := connectivity.NewHTTPProbe(cfg.ProbeURL())
	monitor := connectivity.NewMonitor(probe.Reachable(ctx))

	watchCtx, cancel := context.WithCancel(ctx)
	if watch {
		go monitor.Watch(watchCtx, probe, cfg.Connectivity.Interval)
	}

	client := artic.NewClient(cfg.API.BaseURL, newAPIClient(cfg))

	repo := repository.New(repository.Config{
		Fetcher:      client,
		Store:        st,
		Connectivity: monitor,
	})

	slog.Debug("Application ready", "cache", db.Path(), "connected", monitor.IsConnected())

	return &app{
		db:      db,
		store:   st,
		monitor: monitor,
		artic:   client,
		repo:    repo,
		cancel:  cancel,
	}, nil
}

// Close stops background work and closes the database
func (a *app) Close() {
	a.cancel()
	a.repo.Close()
	a.monitor.Close()
	if err := a.db.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}
