package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/termharvest/export"
)

// Config holds all application configuration.
type Config struct {
	Portal    PortalConfig
	Harvest   HarvestConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Engine    EngineConfig
	Output    OutputConfig
	Status    StatusConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Cache     CacheConfig
	Log       LogConfig
}

// PortalConfig describes the search portal and where the fields live on it.
type PortalConfig struct {
	// BaseURL is prepended to relative detail links.
	BaseURL string // default: "https://euipo.europa.eu"

	// ListingURL is the first page of search results.
	ListingURL string

	// ListingPages is how many listing pages to walk via the "page" query parameter.
	ListingPages int // default: 1

	// AcceptLanguage is sent with every browser request.
	AcceptLanguage string // default: "ru"

	Selectors Selectors
}

// Selectors are the CSS selectors used to locate rows and fields.
type Selectors struct {
	Row          string // default: "tbody tr"
	DetailLink   string // default: "td.termDetails a"
	MasterTitle  string // default: ".span10.english_master_title h4"
	DetailsRow   string // default: ".detailsTable tr"
	LanguageCell int    // default: 0
	TermCell     int    // default: 2
	MinCells     int    // rows need more than this many cells; default: 3
}

// HarvestConfig controls the pacing of the scrape loop.
type HarvestConfig struct {
	// RowDelay is the pause after each visited detail page.
	RowDelay time.Duration // default: 5s

	// PauseEvery inserts a long pause every N rows. 0 disables it.
	PauseEvery int // default: 400

	// PauseDuration is the length of the long pause.
	PauseDuration time.Duration // default: 60s

	// Retries is the number of navigation attempts per page.
	Retries int // default: 3

	// RetryDelay is the wait between navigation attempts.
	RetryDelay time.Duration // default: 5s

	// MaxRows limits how many rows are processed. 0 means all.
	MaxRows int

	// ResetState clears cookies, cache and storage before every row.
	ResetState bool // default: true

	// Placeholders written when a field is not on the page.
	PlaceholderRussian string
	PlaceholderEnglish string
	PlaceholderPolish  string
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: false

	// Proxy is the proxy URL for all browser traffic.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects anti-automation-detection scripts into every tab.
	Stealth bool // default: false

	// RecycleScore is the health score at which the browser is relaunched. 0 disables recycling.
	RecycleScore float64 // default: 3
}

// ScraperConfig controls page loading.
type ScraperConfig struct {
	// NavigationTimeout bounds one navigation attempt including the wait for content.
	NavigationTimeout time.Duration // default: 90s

	// ListingWait bounds the wait for listing rows to appear.
	ListingWait time.Duration // default: 60s

	// BlockedResourceTypes lists resource types to block. Empty loads everything.
	BlockedResourceTypes []string

	// BlockAds drops requests to known analytics and ad hosts.
	BlockAds bool // default: false
}

// EngineConfig controls how detail pages are fetched.
type EngineConfig struct {
	// FetchMode is "browser" (headless Chrome only) or "auto" (plain HTTP first).
	FetchMode string // default: "browser"

	// HTTPTimeout is the deadline for the plain HTTP engine.
	HTTPTimeout time.Duration // default: 15s

	// MemoryTTL is how long the engine that worked for a host is remembered.
	MemoryTTL time.Duration // default: 1h
}

// OutputConfig controls the spreadsheet export.
type OutputConfig struct {
	Path  string // default: "results.xlsx"
	Sheet string // default: "Results"
}

// StatusConfig controls the optional progress HTTP server.
type StatusConfig struct {
	// Addr is the listen address. Empty disables the server.
	Addr string
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication on the status server.
type AuthConfig struct {
	// APIKeys is the list of valid API keys. Empty disables auth.
	APIKeys []string
}

// RateLimitConfig controls per-client rate limiting on the status server.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// WebhookConfig controls the end-of-run notification.
type WebhookConfig struct {
	URL    string
	Secret string
}

// CacheConfig controls the in-run record cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached records.
	MaxEntries int // default: 20000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"

	// File, when set, also writes logs to a rotating file.
	File      string
	MaxSizeMB int // default: 100
}

// DefaultListingURL is the term search the harvest starts from.
const DefaultListingURL = "https://euipo.europa.eu/ec2/search/find?language=ru&text=&niceClass=&size=10&page=1&officeList=RU&searchMode=WORDSPREFIX&sortBy=relevance"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Portal: PortalConfig{
			BaseURL:        envOr("HARVEST_BASE_URL", "https://euipo.europa.eu"),
			ListingURL:     envOr("HARVEST_LISTING_URL", DefaultListingURL),
			ListingPages:   envIntOr("HARVEST_LISTING_PAGES", 1),
			AcceptLanguage: envOr("HARVEST_ACCEPT_LANGUAGE", "ru"),
			Selectors: Selectors{
				Row:          envOr("HARVEST_ROW_SELECTOR", "tbody tr"),
				DetailLink:   envOr("HARVEST_LINK_SELECTOR", "td.termDetails a"),
				MasterTitle:  envOr("HARVEST_TITLE_SELECTOR", ".span10.english_master_title h4"),
				DetailsRow:   envOr("HARVEST_DETAILS_ROW_SELECTOR", ".detailsTable tr"),
				LanguageCell: envIntOr("HARVEST_LANGUAGE_CELL", 0),
				TermCell:     envIntOr("HARVEST_TERM_CELL", 2),
				MinCells:     envIntOr("HARVEST_MIN_CELLS", 3),
			},
		},
		Harvest: HarvestConfig{
			RowDelay:           envDurationOr("HARVEST_ROW_DELAY", 5*time.Second),
			PauseEvery:         envIntOr("HARVEST_PAUSE_EVERY", 400),
			PauseDuration:      envDurationOr("HARVEST_PAUSE_DURATION", time.Minute),
			Retries:            envIntOr("HARVEST_RETRIES", 3),
			RetryDelay:         envDurationOr("HARVEST_RETRY_DELAY", 5*time.Second),
			MaxRows:            envIntOr("HARVEST_MAX_ROWS", 0),
			ResetState:         envBoolOr("HARVEST_RESET_STATE", true),
			PlaceholderRussian: envOr("HARVEST_PLACEHOLDER_RUS", "no rus text found"),
			PlaceholderEnglish: envOr("HARVEST_PLACEHOLDER_EN", "no en text found"),
			PlaceholderPolish:  envOr("HARVEST_PLACEHOLDER_PL", "no pl text found"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("HARVEST_HEADLESS", false),
			Proxy:        os.Getenv("HARVEST_PROXY"),
			NoSandbox:    envBoolOr("HARVEST_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("HARVEST_BROWSER_BIN"),
			Stealth:      envBoolOr("HARVEST_STEALTH", false),
			RecycleScore: envFloatOr("HARVEST_RECYCLE_SCORE", 3),
		},
		Scraper: ScraperConfig{
			NavigationTimeout:    envDurationOr("HARVEST_NAV_TIMEOUT", 90*time.Second),
			ListingWait:          envDurationOr("HARVEST_LISTING_WAIT", time.Minute),
			BlockedResourceTypes: envSliceOr("HARVEST_BLOCKED_RESOURCES", nil),
			BlockAds:             envBoolOr("HARVEST_BLOCK_ADS", false),
		},
		Engine: EngineConfig{
			FetchMode:   envOr("HARVEST_FETCH_MODE", "browser"),
			HTTPTimeout: envDurationOr("HARVEST_HTTP_TIMEOUT", 15*time.Second),
			MemoryTTL:   envDurationOr("HARVEST_ENGINE_MEMORY_TTL", time.Hour),
		},
		Output: OutputConfig{
			Path:  envOr("HARVEST_OUTPUT", "results.xlsx"),
			Sheet: envOr("HARVEST_SHEET", "Results"),
		},
		Status: StatusConfig{
			Addr: os.Getenv("HARVEST_STATUS_ADDR"),
			Mode: envOr("HARVEST_STATUS_MODE", "release"),
		},
		Auth: AuthConfig{
			APIKeys: envSliceOr("HARVEST_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("HARVEST_RATE_RPS", 5.0),
			Burst:             envIntOr("HARVEST_RATE_BURST", 10),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("HARVEST_WEBHOOK_URL"),
			Secret: os.Getenv("HARVEST_WEBHOOK_SECRET"),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("HARVEST_CACHE_MAX_ENTRIES", 20000),
		},
		Log: LogConfig{
			Level:     envOr("HARVEST_LOG_LEVEL", "info"),
			Format:    envOr("HARVEST_LOG_FORMAT", "text"),
			File:      os.Getenv("HARVEST_LOG_FILE"),
			MaxSizeMB: envIntOr("HARVEST_LOG_MAX_SIZE_MB", 100),
		},
	}
}

// Validate reports the first setting that makes a run impossible.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"HARVEST_BASE_URL":    c.Portal.BaseURL,
		"HARVEST_LISTING_URL": c.Portal.ListingURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
		}
	}
	if c.Portal.ListingPages < 1 {
		return fmt.Errorf("HARVEST_LISTING_PAGES must be at least 1, got %d", c.Portal.ListingPages)
	}
	if c.Harvest.RowDelay < 0 || c.Harvest.PauseDuration < 0 || c.Harvest.RetryDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.Harvest.PauseEvery < 0 || c.Harvest.MaxRows < 0 {
		return fmt.Errorf("HARVEST_PAUSE_EVERY and HARVEST_MAX_ROWS must not be negative")
	}
	switch c.Engine.FetchMode {
	case "browser", "auto":
	default:
		return fmt.Errorf("HARVEST_FETCH_MODE must be browser or auto, got %q", c.Engine.FetchMode)
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("HARVEST_OUTPUT must not be empty")
	}
	if strings.TrimSpace(c.Output.Sheet) == "" {
		return fmt.Errorf("HARVEST_SHEET must not be empty")
	}
	if err := export.ValidateSheetName(c.Output.Sheet); err != nil {
		return fmt.Errorf("HARVEST_SHEET: %w", err)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
