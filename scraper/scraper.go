package scraper

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/termharvest/config"
	"github.com/use-agent/termharvest/models"
)

// Scraper owns the browser process and its main tab. The main tab holds
// the listing; every detail page gets a tab of its own that is closed
// after use. Scraper is driven by one harvest loop, but Stats may be
// called concurrently.
type Scraper struct {
	mu       sync.Mutex
	browser  *rod.Browser
	mainPage *rod.Page

	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	portalCfg  config.PortalConfig

	health      *Health
	pagesOpened atomic.Int32
	relaunches  atomic.Int32
}

// NewScraper launches the browser and opens the main tab.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, portalCfg config.PortalConfig) (*Scraper, error) {
	s := &Scraper{
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		portalCfg:  portalCfg,
		health:     NewHealth(browserCfg.RecycleScore),
	}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

// start launches a browser and opens the main tab. Caller must hold s.mu
// or be the constructor.
func (s *Scraper) start() error {
	l := launcher.New().
		Headless(s.browserCfg.Headless).
		NoSandbox(s.browserCfg.NoSandbox)

	if s.browserCfg.BrowserBin != "" {
		l = l.Bin(s.browserCfg.BrowserBin)
	}
	if s.browserCfg.Proxy != "" {
		l = l.Proxy(s.browserCfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return models.NewHarvestError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", s.browserCfg.Headless)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return models.NewHarvestError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	tab, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return models.NewHarvestError(models.ErrCodeBrowserCrash, "failed to open main tab", err)
	}
	if err := setExtraHeaders(tab, s.headers(nil)); err != nil {
		slog.Warn("failed to set headers on main tab", "error", err)
	}

	s.browser = browser
	s.mainPage = tab
	return nil
}

// relaunch kills the current browser and starts a fresh one.
func (s *Scraper) relaunch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Warn("relaunching browser", "healthScore", s.health.Score())
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			slog.Warn("failed to close browser before relaunch", "error", err)
		}
	}
	s.browser = nil
	s.mainPage = nil
	if err := s.start(); err != nil {
		return fmt.Errorf("relaunch: %w", err)
	}
	s.health.Reset()
	s.relaunches.Add(1)
	return nil
}

// current returns the live browser and main tab.
func (s *Scraper) current() (*rod.Browser, *rod.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser, s.mainPage
}

// headers merges the configured Accept-Language with per-request headers.
func (s *Scraper) headers(extra map[string]string) map[string]string {
	h := make(map[string]string, len(extra)+1)
	if s.portalCfg.AcceptLanguage != "" {
		h["Accept-Language"] = s.portalCfg.AcceptLanguage
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

// Stats returns a snapshot of the browser's state.
func (s *Scraper) Stats() models.BrowserStats {
	return models.BrowserStats{
		PagesOpened: int(s.pagesOpened.Load()),
		Relaunches:  int(s.relaunches.Load()),
		HealthScore: s.health.Score(),
	}
}

// Close kills the browser process. Call this on shutdown to prevent
// zombie Chrome processes.
func (s *Scraper) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return
	}
	slog.Info("scraper shutting down: closing browser")
	if err := s.browser.Close(); err != nil {
		slog.Warn("failed to close browser", "error", err)
	}
	s.browser = nil
	s.mainPage = nil
	slog.Info("scraper shutdown complete")
}
