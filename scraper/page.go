package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/termharvest/engine"
	"github.com/use-agent/termharvest/models"
	"github.com/ysmood/gson"
)

// OpenListing navigates the main tab to listingURL, waits until at least
// one result row is present and returns the rendered HTML.
func (s *Scraper) OpenListing(ctx context.Context, listingURL string) (string, error) {
	_, tab := s.current()
	if tab == nil {
		return "", models.NewHarvestError(models.ErrCodeBrowserCrash, "browser is closed", nil)
	}

	if s.scraperCfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.scraperCfg.NavigationTimeout)
		defer cancel()
	}
	p := tab.Context(ctx)

	if err := p.Navigate(listingURL); err != nil {
		return "", categorizeError(err, "navigation to listing failed")
	}
	if err := p.WaitLoad(); err != nil {
		return "", categorizeError(err, "listing did not finish loading")
	}

	waitCtx := ctx
	if s.scraperCfg.ListingWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.scraperCfg.ListingWait)
		defer cancel()
	}
	if err := tab.Context(waitCtx).WaitElementsMoreThan(s.portalCfg.Selectors.Row, 0); err != nil {
		return "", categorizeError(err, "listing rows did not appear")
	}

	html, err := p.HTML()
	if err != nil {
		return "", categorizeError(err, "failed to read listing HTML")
	}
	return html, nil
}

// FetchPage opens req.URL in a new tab and returns the rendered HTML.
// The tab is always closed and the main tab brought back to front. The
// outcome feeds the browser health score; an unhealthy browser is
// relaunched before returning.
func (s *Scraper) FetchPage(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	result, err := s.fetchPage(ctx, req)

	if err != nil && !errors.Is(err, context.Canceled) {
		s.health.RecordFailure()
	} else if err == nil {
		s.health.RecordSuccess()
	}
	if s.health.ShouldRecycle() {
		if relaunchErr := s.relaunch(); relaunchErr != nil {
			slog.Error("browser relaunch failed", "error", relaunchErr)
		}
	}
	return result, err
}

// fetchPage lifecycle:
//
//  1. Open tab             – new target in the current browser
//  2. DEFER: close tab     – and re-activate the main tab
//  3. Stealth injection    – before navigation, or it has no effect
//  4. Extra headers        – Accept-Language and per-request headers
//  5. Hijack mount         – optional resource blocking, before navigation
//  6. Navigate + wait      – load event, then DOM stability
//  7. Extract              – HTML, final URL, status code
func (s *Scraper) fetchPage(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	browser, tab := s.current()
	if browser == nil {
		return nil, models.NewHarvestError(models.ErrCodeBrowserCrash, "browser is closed", nil)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.scraperCfg.NavigationTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// ── 1. Open tab ──────────────────────────────────────────────────
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewHarvestError(models.ErrCodeBrowserCrash, "failed to open tab", err)
	}
	s.pagesOpened.Add(1)

	// ── 2. Close tab, bring main tab to front ────────────────────────
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Warn("failed to close tab", "url", req.URL, "error", closeErr)
		}
		if tab != nil {
			if _, activateErr := tab.Activate(); activateErr != nil {
				slog.Debug("failed to activate main tab", "error", activateErr)
			}
		}
	}()

	// ── 3. Stealth ───────────────────────────────────────────────────
	if s.browserCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// ── 4. Headers ───────────────────────────────────────────────────
	if err := setExtraHeaders(page, s.headers(req.Headers)); err != nil {
		slog.Debug("failed to set extra headers", "error", err)
	}

	// ── 5. Hijack ────────────────────────────────────────────────────
	router := setupHijack(page, s.scraperCfg.BlockedResourceTypes, s.scraperCfg.BlockAds)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 6. Navigate + wait ───────────────────────────────────────────
	p := page.Context(ctx)
	if err := p.Navigate(req.URL); err != nil {
		return nil, categorizeError(err, "navigation to detail page failed")
	}
	if err := p.WaitLoad(); err != nil {
		return nil, categorizeError(err, "detail page did not finish loading")
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}

	// ── 7. Extract ───────────────────────────────────────────────────
	html, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to read detail HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	statusCode := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	return &engine.FetchResult{
		HTML:       html,
		StatusCode: statusCode,
		FinalURL:   finalURL,
	}, nil
}

// ResetState clears cookies, the HTTP cache and site storage for every
// origin, so each detail page is requested as a fresh visitor.
func (s *Scraper) ResetState(ctx context.Context) error {
	_, tab := s.current()
	if tab == nil {
		return models.NewHarvestError(models.ErrCodeBrowserCrash, "browser is closed", nil)
	}
	p := tab.Context(ctx)

	if err := (proto.NetworkClearBrowserCookies{}).Call(p); err != nil {
		return categorizeError(err, "failed to clear cookies")
	}
	if err := (proto.NetworkClearBrowserCache{}).Call(p); err != nil {
		return categorizeError(err, "failed to clear cache")
	}
	if err := (proto.StorageClearDataForOrigin{Origin: "*", StorageTypes: "all"}).Call(p); err != nil {
		return categorizeError(err, "failed to clear storage")
	}
	return nil
}

// setExtraHeaders sends headers with every request the page makes.
func setExtraHeaders(page *rod.Page, headers map[string]string) error {
	if len(headers) == 0 {
		return nil
	}
	return proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// categorizeError wraps raw browser errors into coded HarvestErrors.
func categorizeError(err error, msg string) *models.HarvestError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewHarvestError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewHarvestError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewHarvestError(models.ErrCodeNavigation, msg, err)
	}
}
