package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/termharvest/api"
	"github.com/use-agent/termharvest/cache"
	"github.com/use-agent/termharvest/config"
	"github.com/use-agent/termharvest/engine"
	"github.com/use-agent/termharvest/export"
	"github.com/use-agent/termharvest/harvest"
	"github.com/use-agent/termharvest/models"
	"github.com/use-agent/termharvest/parser"
	"github.com/use-agent/termharvest/scraper"
	"github.com/use-agent/termharvest/webhook"
)

func run(parent context.Context, cfg *config.Config) error {
	// ── 1. Initialise structured logging ────────────────────────────
	logCloser := initLogger(cfg.Log)
	defer logCloser.Close()

	slog.Info("termharvest starting",
		"listing", cfg.Portal.ListingURL,
		"pages", cfg.Portal.ListingPages,
		"output", cfg.Output.Path,
		"fetchMode", cfg.Engine.FetchMode,
		"headless", cfg.Browser.Headless,
	)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 2. Launch browser ───────────────────────────────────────────
	sc, err := scraper.NewScraper(cfg.Browser, cfg.Scraper, cfg.Portal)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer sc.Close()

	// ── 3. Fetch engines ────────────────────────────────────────────
	dispatcher := newDispatcher(cfg, sc.FetchPage)
	slog.Info("fetch engines ready", "engines", dispatcher.Engines())

	// ── 4. Harvester ────────────────────────────────────────────────
	h := harvest.New(harvest.Deps{
		Listing:  sc,
		Fetcher:  dispatcher,
		Resetter: sc,
		Exporter: export.NewExcel(cfg.Output.Path, cfg.Output.Sheet),
		Cache:    cache.New(cfg.Cache.MaxEntries),
	}, cfg.Portal, cfg.Harvest)

	// ── 5. Optional status server ───────────────────────────────────
	if cfg.Status.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Status.Addr,
			Handler:           api.NewRouter(ctx, sc, h, cfg, time.Now()),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("status server listening", "addr", cfg.Status.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("status server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("status server forced shutdown", "error", err)
			}
		}()
	}

	// ── 6. Run ──────────────────────────────────────────────────────
	summary, runErr := h.Run(ctx)
	if runErr != nil {
		slog.Error("harvest failed", "error", runErr)
		return runErr
	}

	slog.Info("harvest finished",
		"rows", summary.RowsSeen,
		"extracted", summary.Extracted,
		"missingLinks", summary.MissingLinks,
		"failed", summary.Failed,
		"cacheHits", summary.CacheHits,
		"interrupted", summary.Interrupted,
		"duration", summary.Duration().Round(time.Second).String(),
		"output", summary.OutputPath,
	)

	// ── 7. Completion webhook ───────────────────────────────────────
	if cfg.Webhook.URL != "" {
		// The run context may already be cancelled by a signal.
		whCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()
		if err := webhook.DeliverWithRetry(whCtx, cfg.Webhook.URL, cfg.Webhook.Secret,
			webhook.NewEvent(summary), webhook.DefaultDelays); err != nil {
			slog.Error("completion webhook not delivered", "error", err)
		}
	}
	return nil
}

// newDispatcher builds the engine chain for the configured fetch mode.
// In auto mode the plain HTTP engine goes first and its pages must already
// contain the term details; otherwise the browser renders the page.
func newDispatcher(cfg *config.Config, rodFetch engine.RodFetchFunc) *engine.Dispatcher {
	rod := engine.NewRodEngine(rodFetch)
	if cfg.Engine.FetchMode != "auto" {
		return engine.NewDispatcher([]engine.Engine{rod}, nil, nil)
	}

	engines := []engine.Engine{engine.NewHTTPEngine(cfg.Engine.HTTPTimeout), rod}
	return engine.NewDispatcher(engines, acceptDetail(cfg.Portal.Selectors), engine.NewDomainMemory(cfg.Engine.MemoryTTL))
}

// acceptDetail rejects plain HTTP responses that lack rendered term
// details. Browser-rendered pages are always accepted so that a detail
// page without terms still yields a placeholder record.
func acceptDetail(sel config.Selectors) engine.AcceptFunc {
	return func(res *engine.FetchResult) error {
		if res.EngineName == "rod" {
			return nil
		}
		if !parser.LooksLikeDetail(res.HTML, sel) {
			return models.NewHarvestError(models.ErrCodeNavigation, "page has no rendered term details", nil)
		}
		return nil
	}
}
