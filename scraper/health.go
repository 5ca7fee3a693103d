package scraper

import (
	"math"
	"sync"
)

// Health scores the browser by recent page outcomes.
//
// Scoring rules:
//   - success: score -= 0.5 (min 0)
//   - failure: score += 1.0
//
// The browser is relaunched once the score reaches the threshold, so a
// run of consecutive failures (crashed renderer, wedged tab, blocked
// session) recycles the process while isolated failures do not.
type Health struct {
	mu        sync.Mutex
	score     float64
	threshold float64
}

// NewHealth returns a Health that recommends recycling at threshold.
// A non-positive threshold never recommends it.
func NewHealth(threshold float64) *Health {
	return &Health{threshold: threshold}
}

// RecordSuccess decreases the score.
func (h *Health) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.score = math.Max(0, h.score-0.5)
}

// RecordFailure increases the score.
func (h *Health) RecordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.score += 1.0
}

// ShouldRecycle reports whether the browser should be relaunched.
func (h *Health) ShouldRecycle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.threshold > 0 && h.score >= h.threshold
}

// Score returns the current score.
func (h *Health) Score() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.score
}

// Reset clears the score after a relaunch.
func (h *Health) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.score = 0
}
