package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/termharvest/api/handler"
	"github.com/use-agent/termharvest/config"
	"github.com/use-agent/termharvest/models"
)

type stubBrowser struct{ stats models.BrowserStats }

func (s stubBrowser) Stats() models.BrowserStats { return s.stats }

type stubRun struct {
	progress models.Progress
	records  []models.Record
}

func (s stubRun) Progress() models.Progress { return s.progress }
func (s stubRun) Records() []models.Record  { return s.records }

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Status.Mode = "test"
	cfg.Auth.APIKeys = nil
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}
	return cfg
}

func newTestRouter(t *testing.T, cfg *config.Config, browser stubBrowser, run stubRun) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRouter(ctx, browser, run, cfg, time.Now())
}

func do(t *testing.T, h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sampleRecords() []models.Record {
	return []models.Record{
		{Russian: "чай", English: "tea", Polish: "herbata"},
		{Russian: "хлеб", English: "bread", Polish: "chleb"},
		{Russian: "вода", English: "water", Polish: "woda"},
	}
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, testConfig(), stubBrowser{stats: models.BrowserStats{PagesOpened: 4}}, stubRun{})

	w := do(t, h, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 4, resp.BrowserStats.PagesOpened)
	assert.Equal(t, handler.Version, resp.Version)
}

func TestHealth_DegradedAtRecycleScore(t *testing.T) {
	cfg := testConfig()
	cfg.Browser.RecycleScore = 3
	h := newTestRouter(t, cfg, stubBrowser{stats: models.BrowserStats{HealthScore: 3}}, stubRun{})

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(do(t, h, "/api/v1/health", nil).Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestProgress(t *testing.T) {
	run := stubRun{progress: models.Progress{Phase: "details", CurrentRow: 12, TotalRows: 50, Extracted: 11}}
	h := newTestRouter(t, testConfig(), stubBrowser{}, run)

	w := do(t, h, "/api/v1/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool            `json:"success"`
		Data    models.Progress `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, run.progress, resp.Data)
}

func TestRecords_Paging(t *testing.T) {
	h := newTestRouter(t, testConfig(), stubBrowser{}, stubRun{records: sampleRecords()})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", []string{"tea", "bread", "water"}},
		{"offset", "?offset=1", []string{"bread", "water"}},
		{"offset and limit", "?offset=1&limit=1", []string{"bread"}},
		{"offset past end", "?offset=10", []string{}},
		{"huge limit", "?offset=1&limit=9223372036854775807", []string{"bread", "water"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "/api/v1/records"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var resp struct {
				Data handler.RecordsPage `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, 3, resp.Data.Total)

			got := []string{}
			for _, r := range resp.Data.Records {
				got = append(got, r.English)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecords_BadQuery(t *testing.T) {
	h := newTestRouter(t, testConfig(), stubBrowser{}, stubRun{})

	w := do(t, h, "/api/v1/records?limit=-2", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeInvalidRequest)
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.APIKeys = []string{"key-1"}
	h := newTestRouter(t, cfg, stubBrowser{}, stubRun{})

	assert.Equal(t, http.StatusUnauthorized, do(t, h, "/api/v1/progress", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, h, "/api/v1/progress", http.Header{"X-Api-Key": {"wrong"}}).Code)
	assert.Equal(t, http.StatusOK,
		do(t, h, "/api/v1/progress", http.Header{"X-Api-Key": {"key-1"}}).Code)
	assert.Equal(t, http.StatusOK,
		do(t, h, "/api/v1/progress", http.Header{"Authorization": {"Bearer key-1"}}).Code)

	// Health is open.
	assert.Equal(t, http.StatusOK, do(t, h, "/api/v1/health", nil).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}
	h := newTestRouter(t, cfg, stubBrowser{}, stubRun{})

	assert.Equal(t, http.StatusOK, do(t, h, "/api/v1/progress", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, "/api/v1/progress", nil).Code)

	w := do(t, h, "/api/v1/progress", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeRateLimited)
}
