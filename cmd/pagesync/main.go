// Package main provides the CLI entry point for pagesync.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/lepinkainen/pagesync/internal/config"
	"github.com/lepinkainen/pagesync/internal/server"
	"github.com/lepinkainen/pagesync/pkg/collection"
	"github.com/lepinkainen/pagesync/pkg/filesystem"
	"github.com/lepinkainen/pagesync/pkg/preview"
	"github.com/lepinkainen/pagesync/pkg/repository"
)

// CLI structure
var CLI struct {
	Config string `help:"Configuration file path" default:"config.yaml"`
	Debug  bool   `help:"Enable debug logging" default:"false"`

	Page struct {
		Collection int    `help:"Collection key (artist id); defaults to the configured collection"`
		Page       int    `help:"Page number (1-based)" short:"p" default:"1"`
		Size       int    `help:"Page size; defaults to cache.page_size"`
		TTL        string `name:"ttl" help:"Page time-to-live, e.g. 300s or 0 to force a refresh"`
		Format     string `help:"Output format" enum:"table,json,yaml" default:"table" short:"f"`
	} `cmd:"page" help:"Print one page of a collection."`

	Browse struct {
		Collection int `help:"Collection key (artist id); defaults to the configured collection"`
		Page       int `help:"First page to show" short:"p" default:"1"`
		Size       int `help:"Page size; defaults to cache.page_size"`
	} `cmd:"browse" help:"Browse a collection interactively."`

	Serve struct {
		Addr string `help:"Listen address; defaults to server.addr"`
	} `cmd:"serve" help:"Serve pages and events over HTTP."`

	Prune struct {
		OlderThan time.Duration `help:"Delete pages last refreshed longer ago than this; defaults to cache.retention"`
		Vacuum    bool          `help:"Compact the database file afterwards" default:"true" negatable:""`
	} `cmd:"prune" help:"Delete old pages from the cache."`

	Stats struct {
		Format string `help:"Output format" enum:"table,json,yaml" default:"table" short:"f"`
	} `cmd:"stats" help:"Show cache statistics."`

	ConfigCmd struct {
		Init struct {
			Output string `help:"Where to write the file" short:"o" default:"config.yaml"`
			Force  bool   `help:"Overwrite an existing file"`
		} `cmd:"init" help:"Write a configuration file with the default settings."`
	} `cmd:"config" name:"config" help:"Manage the configuration file."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("pagesync"),
		kong.Description("Offline-first cache for paginated remote collections."),
		kong.UsageOnError(),
	)

	cfg, err := config.LoadConfig(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(os.Stderr, cfg, CLI.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch kctx.Command() {
	case "page":
		err = runPage(ctx, cfg)
	case "browse":
		err = runBrowse(ctx, cfg)
	case "serve":
		err = runServe(ctx, cfg)
	case "prune":
		err = runPrune(ctx, cfg)
	case "stats":
		err = runStats(ctx, cfg)
	case "config init":
		err = runConfigInit(cfg)
	default:
		panic(kctx.Command())
	}

	if err != nil {
		slog.Error("Command failed", "command", kctx.Command(), "error", err)
		stop()
		os.Exit(1)
	}
}

func runPage(ctx context.Context, cfg *config.Config) error {
	policy := collection.CachePolicy{PageTTL: cfg.Cache.PageTTL}
	if CLI.Page.TTL != "" {
		ttl, err := parseTTL(CLI.Page.TTL)
		if err != nil {
			return err
		}
		policy.PageTTL = ttl
	}

	a, err := openApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	key := cmp.Or(CLI.Page.Collection, cfg.Collection)
	size := cmp.Or(CLI.Page.Size, cfg.Cache.PageSize)

	page, err := a.repo.Page(ctx, key, CLI.Page.Page, size, policy)
	if err != nil {
		return err
	}

	return printPage(os.Stdout, CLI.Page.Format, page, a.artic)
}

func runBrowse(ctx context.Context, cfg *config.Config) error {
	// The alternate screen owns the terminal, so logs go to a file
	logPath, err := filesystem.DefaultCachePath("browse.log")
	if err == nil {
		err = filesystem.EnsureDirectoryExists(logPath)
	}
	if err == nil {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			defer f.Close()
			setupLogging(f, cfg, CLI.Debug)
		}
	}

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	key := cmp.Or(CLI.Browse.Collection, cfg.Collection)

	return preview.Run(preview.Options{
		Context:       ctx,
		Title:         fmt.Sprintf("Collection %d", key),
		CollectionKey: key,
		Page:          CLI.Browse.Page,
		PageSize:      cmp.Or(CLI.Browse.Size, cfg.Cache.PageSize),
		Loader:        repository.NewPageLoader(a.repo, collection.CachePolicy{PageTTL: cfg.Cache.PageTTL}),
		Images:        a.artic,
		Events:        a.repo.Subscribe(ctx),
		Connectivity:  a.repo.Connectivity(ctx),
		Connected:     a.repo.IsConnected(),
	})
}

func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.NewServer(a.repo, server.Options{
		Addr:     cmp.Or(CLI.Serve.Addr, cfg.Server.Addr),
		PageSize: cfg.Cache.PageSize,
		Policy:   collection.CachePolicy{PageTTL: cfg.Cache.PageTTL},
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return <-errCh
}

func runPrune(ctx context.Context, cfg *config.Config) error {
	olderThan := CLI.Prune.OlderThan
	if olderThan == 0 {
		olderThan = cfg.Cache.Retention
	}
	if olderThan <= 0 {
		return errors.New("nothing to prune: pass --older-than or set cache.retention")
	}

	db, st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := st.Prune(ctx, olderThan)
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d pages and %d items older than %s\n", result.Pages, result.Items, olderThan)

	if CLI.Prune.Vacuum {
		if err := db.Vacuum(ctx); err != nil {
			return err
		}
	}
	return nil
}

func runStats(ctx context.Context, cfg *config.Config) error {
	db, st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	info, err := db.Info(ctx)
	if err != nil {
		return err
	}

	return printStats(os.Stdout, CLI.Stats.Format, cfg.Cache.Path, stats, info)
}

func runConfigInit(cfg *config.Config) error {
	path := CLI.ConfigCmd.Init.Output
	if _, err := os.Stat(path); err == nil && !CLI.ConfigCmd.Init.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := config.SaveConfig(cfg, path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// parseTTL accepts a Go duration or a whole number of seconds
func parseTTL(raw string) (time.Duration, error) {
	ttl, err := time.ParseDuration(raw)
	if seconds, convErr := strconv.Atoi(raw); convErr == nil {
		ttl, err = time.Duration(seconds)*time.Second, nil
	}
	if err != nil {
		return 0, fmt.Errorf("invalid ttl %q: %w", raw, err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("ttl must not be negative: %s", raw)
	}
	return ttl, nil
}
