package query

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// resultCacheLookups counts result cache lookups by outcome.
	resultCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fafquery_result_cache_lookups_total",
		Help: "Total result cache lookups by outcome",
	}, []string{"result"}) // "hit" or "miss"

	// resultCacheEvictions counts entries dropped by the entry cap.
	resultCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fafquery_result_cache_evictions_total",
		Help: "Total result cache evictions",
	})

	// resultCacheEntries tracks the current number of cached results.
	resultCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fafquery_result_cache_entries",
		Help: "Number of cached query results",
	})
)

// cacheValue is implemented by every cached result type.
type cacheValue interface {
	cacheClone() cacheValue
}

// Cache memoizes query results by signature. Values are copied on the way in
// and out so callers never share state with the cache. A zero or negative
// entry cap means unbounded; otherwise the least recently used entry is
// evicted.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]cacheValue
	lru        *lru.Cache[string, cacheValue]
	hits       int
	misses     int
}

// NewCache creates a cache holding at most maxEntries results.
func NewCache(maxEntries int) *Cache {
	c := &Cache{maxEntries: maxEntries}
	c.reset()
	return c
}

func (c *Cache) reset() {
	if c.maxEntries <= 0 {
		c.entries = make(map[string]cacheValue)
		return
	}
	l, err := lru.NewWithEvict(c.maxEntries, func(string, cacheValue) {
		resultCacheEvictions.Inc()
	})
	if err != nil {
		panic(err) // only returned for a non-positive size
	}
	c.lru = l
}

func (c *Cache) lookup(key string) (cacheValue, bool) {
	if c.lru != nil {
		return c.lru.Get(key)
	}
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache) size() int {
	if c.lru != nil {
		return c.lru.Len()
	}
	return len(c.entries)
}

func (c *Cache) get(key string) (cacheValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookup(key)
	if !ok {
		c.misses++
		resultCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	c.hits++
	resultCacheLookups.WithLabelValues("hit").Inc()
	return v.cacheClone(), true
}

func (c *Cache) put(key string, v cacheValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := v.cacheClone()
	if c.lru != nil {
		c.lru.Add(key, stored)
	} else {
		c.entries[key] = stored
	}
	resultCacheEntries.Set(float64(c.size()))
}

// Contains reports whether key is cached without touching recency or stats.
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lru != nil {
		return c.lru.Contains(key)
	}
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size()
}

// CacheStats reports cache usage since creation or the last Clear.
type CacheStats struct {
	Entries    int `json:"entries"`
	MaxEntries int `json:"max_entries"`
	Hits       int `json:"hits"`
	Misses     int `json:"misses"`
}

// Stats returns current usage.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: c.size(), MaxEntries: c.maxEntries, Hits: c.hits, Misses: c.misses}
}

// Clear drops every cached result.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.hits, c.misses = 0, 0
	resultCacheEntries.Set(0)
}
