package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/callguard/internal/model"
)

// cacheEntry represents a cached remote analysis.
type cacheEntry struct {
	expiry time.Time
	result model.AnalysisResult
}

// resultCache keeps recent remote analyses so a repeated transcript window
// does not cost another remote call. It is safe for concurrent use.
type resultCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

// newResultCache creates a cache with the given TTL. A negative TTL disables caching.
func newResultCache(ttl time.Duration) *resultCache {
	if ttl == 0 {
		ttl = 10 * time.Minute
	}

	c := &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanup(max(ttl, time.Minute))
	}
	return c
}

func cacheKey(transcript, locale string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(locale) + "\x00" + transcript))
	return hex.EncodeToString(sum[:])
}

// get retrieves a result if it exists and hasn't expired.
func (c *resultCache) get(key string) (model.AnalysisResult, bool) {
	if c.ttl < 0 {
		return model.AnalysisResult{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiry) {
		return model.AnalysisResult{}, false
	}
	return cloneResult(entry.result), true
}

// set stores a result.
func (c *resultCache) set(key string, result model.AnalysisResult) {
	if c.ttl < 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		result: cloneResult(result),
		expiry: c.now().Add(c.ttl),
	}
}

// size returns the number of entries, expired or not.
func (c *resultCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *resultCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiry) {
			delete(c.entries, key)
		}
	}
}

func (c *resultCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

// Close stops the cleanup goroutine.
func (c *resultCache) Close() {
	c.once.Do(func() { close(c.stopCh) })
}

// cloneResult copies the slices so cached entries never alias caller data.
func cloneResult(r model.AnalysisResult) model.AnalysisResult {
	r.Indicators = slices.Clone(r.Indicators)
	r.Guidance = slices.Clone(r.Guidance)
	return r
}
