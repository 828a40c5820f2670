// Package cache holds fetched listing pages so repeated requests for the same
// (tag, token) pair do not round-trip to the tools API.
package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/webtools-portal/internal/models"
)

// keySep separates the tag from the token. Tags never contain it.
const keySep = "\x00"

// entry wraps a cached page with expiry and insertion order tracking.
type entry struct {
	page      models.Page
	expiry    time.Time
	insertIdx int64
}

// PageCache caches pages keyed by MakeKey(tag, limit, token).
// Thread-safe with sync.RWMutex.
type PageCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
	now        func() time.Time
}

// New creates a new PageCache with the given TTL and max entry count.
func New(ttl time.Duration, maxEntries int) *PageCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &PageCache{
		items:      make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// MakeKey builds a cache key from the tag filter value, page size and token.
func MakeKey(tag string, limit int, token models.Token) string {
	return tag + keySep + strconv.Itoa(limit) + keySep + string(token)
}

// Get returns a cached page if found and not expired.
func (c *PageCache) Get(key string) (models.Page, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return models.Page{}, false
	}

	if c.now().After(e.expiry) {
		c.mu.Lock()
		if e2, ok2 := c.items[key]; ok2 && c.now().After(e2.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return models.Page{}, false
	}

	return e.page, true
}

// Set stores a page in the cache. Evicts the oldest entry if at capacity.
func (c *PageCache) Set(key string, page models.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{
		page:      page,
		expiry:    c.now().Add(c.ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++

	if _, exists := c.items[key]; exists {
		c.items[key] = e
		return
	}

	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	c.items[key] = e
}

// InvalidateTag removes every page cached for the given tag filter value.
func (c *PageCache) InvalidateTag(tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := tag + keySep
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Reset removes every entry.
func (c *PageCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry)
}

// Len returns the number of entries, expired ones included.
func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *PageCache) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestIdx != -1 {
		delete(c.items, oldestKey)
	}
}
