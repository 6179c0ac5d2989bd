package services

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/models"
)

// AnalysisCache is a process-local memo of analysis results keyed by
// BuildAnalysisKey. Entries leave only by expiry or capacity eviction.
type AnalysisCache interface {
	Get(key string) (*models.AnalysisResult, bool)
	Put(key string, result *models.AnalysisResult)
	Stats() models.CacheStats
}

type cacheEntry struct {
	key       string
	result    *models.AnalysisResult
	createdAt time.Time
	expiresAt time.Time
	index     int
}

// expiryHeap orders entries by expiresAt so the entry nearest to expiry is
// always at the root.
type expiryHeap []*cacheEntry

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].expiresAt.Before(h[j].expiresAt) }
func (h expiryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expiryHeap) Push(x any) {
	e := x.(*cacheEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

type analysisCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	order    expiryHeap
	ttl      time.Duration
	capacity int
	now      func() time.Time
	log      *zap.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func NewAnalysisCache(ttl time.Duration, capacity int, log *zap.Logger) AnalysisCache {
	return newAnalysisCache(ttl, capacity, log, time.Now)
}

func newAnalysisCache(ttl time.Duration, capacity int, log *zap.Logger, now func() time.Time) *analysisCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &analysisCache{
		entries:  make(map[string]*cacheEntry, capacity),
		ttl:      ttl,
		capacity: capacity,
		now:      now,
		log:      log,
	}
}

// Get returns a copy of the stored result. An entry is expired from the
// instant its expiry timestamp is reached.
func (c *analysisCache) Get(key string) (*models.AnalysisResult, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	if ok && c.now().Before(e.expiresAt) {
		result := e.result.Clone()
		c.mu.RUnlock()
		c.hits.Add(1)
		c.log.Info("cache.hit", zap.String("cache_key", shortKey(key)))
		return result, true
	}
	c.mu.RUnlock()

	reason := "not_found"
	if ok {
		reason = "expired"
		c.mu.Lock()
		// Re-check under the write lock, a concurrent Put may have refreshed it.
		if e, ok := c.entries[key]; ok && !c.now().Before(e.expiresAt) {
			c.removeLocked(e)
			c.evictions.Add(1)
		}
		c.mu.Unlock()
	}

	c.misses.Add(1)
	c.log.Info("cache.miss", zap.String("cache_key", shortKey(key)), zap.String("reason", reason))
	return nil, false
}

// Put stores a copy of result. At capacity, expired entries are dropped first,
// then the entry nearest to expiry, so insertion always succeeds.
func (c *analysisCache) Put(key string, result *models.AnalysisResult) {
	if result == nil {
		return
	}
	now := c.now()
	stored := result.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.result = stored
		e.createdAt = now
		e.expiresAt = now.Add(c.ttl)
		heap.Fix(&c.order, e.index)
		c.log.Info("cache.set", zap.String("cache_key", shortKey(key)), zap.Int("size", len(c.entries)))
		return
	}

	for len(c.entries) >= c.capacity {
		victim := c.order[0]
		reason := "capacity"
		if !now.Before(victim.expiresAt) {
			reason = "expired"
		}
		c.removeLocked(victim)
		c.evictions.Add(1)
		c.log.Debug("cache.evict", zap.String("cache_key", shortKey(victim.key)), zap.String("reason", reason))
	}

	e := &cacheEntry{key: key, result: stored, createdAt: now, expiresAt: now.Add(c.ttl)}
	heap.Push(&c.order, e)
	c.entries[key] = e

	c.log.Info("cache.set",
		zap.String("cache_key", shortKey(key)),
		zap.Int("size", len(c.entries)),
		zap.Duration("ttl", c.ttl))
}

func (c *analysisCache) removeLocked(e *cacheEntry) {
	heap.Remove(&c.order, e.index)
	delete(c.entries, e.key)
}

func (c *analysisCache) Stats() models.CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	return models.CacheStats{
		Entries:    entries,
		Capacity:   c.capacity,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		TTLSeconds: int64(c.ttl.Seconds()),
	}
}

func shortKey(key string) string {
	if len(key) > 16 {
		return key[:16]
	}
	return key
}
