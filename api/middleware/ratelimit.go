package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/termharvest/config"
	"github.com/use-agent/termharvest/models"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = time.Hour
	limiterSweepEvery = 5 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
}

func (s *limiterSet) get(identity string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[identity]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.entries[identity] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (s *limiterSet) sweep(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}

// RateLimit returns per-identity (API key or client IP) token-bucket rate
// limiting middleware. Idle limiters are swept until ctx is done.
// A non-positive RequestsPerSecond disables limiting.
func RateLimit(ctx context.Context, cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	set := &limiterSet{
		entries: make(map[string]*limiterEntry),
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   burst,
	}

	go func() {
		ticker := time.NewTicker(limiterSweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				set.sweep(now.Add(-limiterIdleTTL))
			}
		}
	}()

	return func(c *gin.Context) {
		identity := c.GetString(ContextKeyAPIKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		if !set.get(identity, time.Now()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.APIResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}
		c.Next()
	}
}
