package news

import (
	"sync"
	"time"
)

// scoreCache keeps per-ticker scores for a fixed TTL.
type scoreCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
	ttl  time.Duration
	now  func() time.Time
}

type cacheEntry struct {
	score     float64
	articles  int
	timestamp time.Time
}

func newScoreCache(ttl time.Duration, now func() time.Time) *scoreCache {
	return &scoreCache{
		data: make(map[string]cacheEntry),
		ttl:  ttl,
		now:  now,
	}
}

func (c *scoreCache) get(ticker string) (cacheEntry, bool) {
	if c.ttl <= 0 {
		return cacheEntry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[ticker]
	if !ok || c.now().Sub(entry.timestamp) >= c.ttl {
		return cacheEntry{}, false
	}
	return entry, true
}

func (c *scoreCache) set(ticker string, score float64, articles int) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.data[ticker] = cacheEntry{score: score, articles: articles, timestamp: now}
	c.cleanupLocked(now)
}

// cleanupLocked drops expired entries so tickers removed from the mapping do
// not linger.
func (c *scoreCache) cleanupLocked(now time.Time) {
	for ticker, entry := range c.data {
		if now.Sub(entry.timestamp) >= c.ttl {
			delete(c.data, ticker)
		}
	}
}
