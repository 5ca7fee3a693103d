package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/use-agent/termharvest/models"
)

// Cache is an in-memory cache of extracted records keyed by detail URL.
// It lives for one run and is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]models.Record
	maxEntries int
	hits       int
}

// New creates a new Cache with the given maximum number of entries.
// A non-positive maxEntries disables caching.
func New(maxEntries int) *Cache {
	return &Cache{
		store:      make(map[string]models.Record),
		maxEntries: maxEntries,
	}
}

// Key generates a cache key from a detail URL.
func Key(detailURL string) string {
	sum := sha256.Sum256([]byte(detailURL))
	return hex.EncodeToString(sum[:])
}

// Get returns the record cached for detailURL.
func (c *Cache) Get(detailURL string) (models.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.store[Key(detailURL)]
	if ok {
		c.hits++
	}
	return rec, ok
}

// Set stores the record for detailURL. If the cache is at capacity,
// a random entry is evicted to make room.
func (c *Cache) Set(detailURL string, rec models.Record) {
	if c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(detailURL)
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = rec
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Hits returns how many lookups were served from the cache.
func (c *Cache) Hits() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits
}
