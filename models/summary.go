package models

import "time"

// RunSummary reports the outcome of one harvest run.
type RunSummary struct {
	RowsSeen     int       `json:"rows_seen"`
	Extracted    int       `json:"extracted"`
	MissingLinks int       `json:"missing_links"`
	Failed       int       `json:"failed"`
	CacheHits    int       `json:"cache_hits"`
	StateResets  int       `json:"state_resets"`
	Pauses       int       `json:"pauses"`
	OutputPath   string    `json:"output_path"`
	Interrupted  bool      `json:"interrupted"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Duration returns how long the run took.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Progress is a live snapshot of a running harvest, served by the status API.
type Progress struct {
	// Phase is one of "starting", "listing", "details", "exporting", "done".
	Phase      string `json:"phase"`
	CurrentRow int    `json:"current_row"`
	TotalRows  int    `json:"total_rows"`
	Extracted  int    `json:"extracted"`
	Failed     int    `json:"failed"`
	LastError  string `json:"last_error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"`
	Uptime       string       `json:"uptime"`
	BrowserStats BrowserStats `json:"browser_stats"`
	Version      string       `json:"version"`
}

// BrowserStats reports the state of the automated browser.
type BrowserStats struct {
	PagesOpened int     `json:"pages_opened"`
	Relaunches  int     `json:"relaunches"`
	HealthScore float64 `json:"health_score"`
}
