// Package harvest walks the term listing, visits every detail page and
// exports the collected records.
package harvest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/termharvest/cache"
	"github.com/use-agent/termharvest/config"
	"github.com/use-agent/termharvest/engine"
	"github.com/use-agent/termharvest/models"
	"github.com/use-agent/termharvest/parser"
	"github.com/use-agent/termharvest/retry"
)

// ListingLoader opens a listing page and returns its rendered HTML once
// result rows are present.
type ListingLoader interface {
	OpenListing(ctx context.Context, listingURL string) (string, error)
}

// Fetcher fetches one detail page.
type Fetcher interface {
	Dispatch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)
}

// StateResetter wipes cookies, cache and storage between rows.
type StateResetter interface {
	ResetState(ctx context.Context) error
}

// Exporter persists the records at the end of the run.
type Exporter interface {
	Export(records []models.Record) error
	Location() string
}

// Deps are the collaborators a Harvester drives. Resetter and Cache may be nil.
type Deps struct {
	Listing  ListingLoader
	Fetcher  Fetcher
	Resetter StateResetter
	Exporter Exporter
	Cache    *cache.Cache
}

// Harvester runs one sequential harvest. Progress and Records may be read
// concurrently while Run is in progress.
type Harvester struct {
	deps   Deps
	portal config.PortalConfig
	cfg    config.HarvestConfig
	ph     models.Placeholders

	mu       sync.RWMutex
	progress models.Progress
	records  []models.Record
}

// New creates a Harvester.
func New(deps Deps, portal config.PortalConfig, cfg config.HarvestConfig) *Harvester {
	return &Harvester{
		deps:   deps,
		portal: portal,
		cfg:    cfg,
		ph: models.Placeholders{
			Russian: cfg.PlaceholderRussian,
			English: cfg.PlaceholderEnglish,
			Polish:  cfg.PlaceholderPolish,
		},
		progress: models.Progress{Phase: "starting"},
	}
}

// Run executes the harvest:
//
//  1. Load listing pages and collect rows (fatal on failure of page 1)
//  2. For each row: periodic long pause, browser state reset, detail
//     fetch with retries, extraction, fixed delay
//  3. Export every collected record
//
// A cancelled context stops the loop at the next wait; the records
// collected so far are still exported and the summary is marked
// interrupted.
func (h *Harvester) Run(ctx context.Context) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		StartedAt:  time.Now(),
		OutputPath: h.deps.Exporter.Location(),
	}
	defer func() { summary.FinishedAt = time.Now() }()

	// ── 1. Listing ──────────────────────────────────────────────────
	h.setPhase("listing")
	rows, err := h.loadRows(ctx)
	if err != nil {
		h.setError(err)
		return summary, err
	}
	if h.cfg.MaxRows > 0 && len(rows) > h.cfg.MaxRows {
		rows = rows[:h.cfg.MaxRows]
	}
	summary.RowsSeen = len(rows)
	slog.Info("rows found", "rows", len(rows))

	// ── 2. Details ──────────────────────────────────────────────────
	h.mu.Lock()
	h.progress.Phase = "details"
	h.progress.TotalRows = len(rows)
	h.mu.Unlock()

	for i, row := range rows {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		if i > 0 && h.cfg.PauseEvery > 0 && i%h.cfg.PauseEvery == 0 {
			slog.Info("pausing", "afterRows", i, "pause", h.cfg.PauseDuration)
			summary.Pauses++
			if err := retry.Sleep(ctx, h.cfg.PauseDuration); err != nil {
				summary.Interrupted = true
				break
			}
		}

		if h.cfg.ResetState && h.deps.Resetter != nil {
			if err := h.deps.Resetter.ResetState(ctx); err != nil {
				slog.Warn("failed to reset browser state", "row", row.Number, "error", err)
			} else {
				summary.StateResets++
			}
		}

		h.mu.Lock()
		h.progress.CurrentRow = row.Number
		h.mu.Unlock()

		if row.DetailURL == "" {
			slog.Info("detail link not found", "row", row.Number)
			summary.MissingLinks++
			continue
		}

		if h.deps.Cache != nil {
			if rec, ok := h.deps.Cache.Get(row.DetailURL); ok {
				slog.Debug("record served from cache", "row", row.Number, "url", row.DetailURL)
				h.appendRecord(rec)
				summary.CacheHits++
				continue
			}
		}

		rec, err := h.fetchRecord(ctx, row)
		if err != nil {
			if ctx.Err() != nil {
				summary.Interrupted = true
				break
			}
			slog.Warn("failed to load detail page",
				"row", row.Number,
				"url", row.DetailURL,
				"error", err,
			)
			summary.Failed++
			h.recordFailure(err)
		} else {
			h.appendRecord(rec)
			summary.Extracted++
			slog.Info("results added", "row", row.Number)
		}

		if err := retry.Sleep(ctx, h.cfg.RowDelay); err != nil {
			summary.Interrupted = true
			break
		}
	}

	if summary.Interrupted {
		slog.Warn("harvest interrupted, exporting partial results", "records", len(h.Records()))
	}

	// ── 3. Export ───────────────────────────────────────────────────
	h.setPhase("exporting")
	records := h.Records()
	slog.Debug("all results", "records", records)
	if err := h.deps.Exporter.Export(records); err != nil {
		herr := models.NewHarvestError(models.ErrCodeExport, "failed to write results", err)
		h.setError(herr)
		return summary, herr
	}
	slog.Info("results written", "path", summary.OutputPath, "records", len(records))

	h.setPhase("done")
	return summary, nil
}

// loadRows opens every configured listing page. Failing to open the first
// page is fatal; a later page failing ends paging with the rows so far.
func (h *Harvester) loadRows(ctx context.Context) ([]models.ListingRow, error) {
	policy := retry.Policy{Attempts: h.cfg.Retries, Delay: h.cfg.RetryDelay}
	pages := h.portal.ListingPages
	if pages < 1 {
		pages = 1
	}

	var rows []models.ListingRow
	for page := 1; page <= pages; page++ {
		listingURL := h.portal.ListingURL
		if page > 1 {
			u, err := parser.ListingPageURL(h.portal.ListingURL, page)
			if err != nil {
				return nil, models.NewHarvestError(models.ErrCodeInvalidConfig, "bad listing url", err)
			}
			listingURL = u
		}

		var html string
		err := retry.Do(ctx, policy, listingURL, func(ctx context.Context) error {
			var err error
			html, err = h.deps.Listing.OpenListing(ctx, listingURL)
			return err
		})
		if err != nil {
			if page == 1 {
				return nil, models.NewHarvestError(models.ErrCodeListingLoad, "failed to open listing", err)
			}
			slog.Warn("failed to open listing page, stopping pagination", "page", page, "error", err)
			break
		}
		slog.Info("listing page opened", "page", page, "url", listingURL)

		pageRows, err := parser.ParseListing(html, h.portal.BaseURL, h.portal.Selectors, len(rows)+1)
		if err != nil {
			return nil, models.NewHarvestError(models.ErrCodeListingLoad, "failed to parse listing", err)
		}
		if len(pageRows) == 0 {
			break
		}
		rows = append(rows, pageRows...)
	}

	if len(rows) == 0 {
		return nil, models.NewHarvestError(models.ErrCodeNoRows, "listing contains no rows", nil)
	}
	return rows, nil
}

// fetchRecord loads one detail page with retries and extracts its record.
func (h *Harvester) fetchRecord(ctx context.Context, row models.ListingRow) (models.Record, error) {
	policy := retry.Policy{Attempts: h.cfg.Retries, Delay: h.cfg.RetryDelay}

	var result *engine.FetchResult
	err := retry.Do(ctx, policy, row.DetailURL, func(ctx context.Context) error {
		res, err := h.deps.Fetcher.Dispatch(ctx, &engine.FetchRequest{URL: row.DetailURL})
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return models.Record{}, err
	}
	if result == nil {
		return models.Record{}, errors.New("harvest: fetcher returned no result")
	}
	slog.Info("detail page loaded", "row", row.Number, "engine", result.EngineName)

	rec := parser.ParseDetail(result.HTML, h.portal.Selectors, h.ph)
	if h.deps.Cache != nil {
		h.deps.Cache.Set(row.DetailURL, rec)
	}
	return rec, nil
}

func (h *Harvester) appendRecord(rec models.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	h.progress.Extracted = len(h.records)
}

func (h *Harvester) setPhase(phase string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.progress.Phase = phase
}

func (h *Harvester) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.progress.LastError = err.Error()
}

func (h *Harvester) recordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.progress.LastError = err.Error()
	h.progress.Failed++
}

// Progress returns a snapshot of the run's progress.
func (h *Harvester) Progress() models.Progress {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.progress
}

// Records returns a copy of the records collected so far.
func (h *Harvester) Records() []models.Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.Record, len(h.records))
	copy(out, h.records)
	return out
}
