package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func result(score int) *models.AnalysisResult {
	return &models.AnalysisResult{Summary: fmt.Sprintf("score %d", score), FitScore: score, Confidence: models.ConfidenceMedium}
}

func TestBuildAnalysisKey(t *testing.T) {
	k1 := BuildAnalysisKey("cv text", "job text", "model-a", PromptVersion)
	k2 := BuildAnalysisKey("cv text", "job text", "model-a", PromptVersion)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)

	variants := []string{
		BuildAnalysisKey("cv texT", "job text", "model-a", PromptVersion),
		BuildAnalysisKey("cv text", "job text.", "model-a", PromptVersion),
		BuildAnalysisKey("cv text", "job text", "model-b", PromptVersion),
		BuildAnalysisKey("cv text", "job text", "model-a", "v2"),
		// Moving bytes across the boundary must not collide.
		BuildAnalysisKey("cv tex", "tjob text", "model-a", PromptVersion),
	}
	for _, v := range variants {
		assert.NotEqual(t, k1, v)
	}
}

func TestAnalysisCache_HitAndMiss(t *testing.T) {
	clock := newFakeClock()
	c := newAnalysisCache(time.Hour, 4, zap.NewNop(), clock.Now)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Put("k", result(70))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 70, got.FitScore)

	// Returned values are copies.
	got.Strengths = append(got.Strengths, "mutated")
	again, _ := c.Get("k")
	assert.Empty(t, again.Strengths)

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(3600), stats.TTLSeconds)
}

func TestAnalysisCache_ExpiresAtTTL(t *testing.T) {
	clock := newFakeClock()
	c := newAnalysisCache(time.Minute, 4, zap.NewNop(), clock.Now)

	c.Put("k", result(1))
	clock.Advance(time.Minute - time.Nanosecond)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Nanosecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries, "expired entry is removed lazily")
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestAnalysisCache_CapacityEvictsNearestExpiry(t *testing.T) {
	clock := newFakeClock()
	c := newAnalysisCache(time.Hour, 3, zap.NewNop(), clock.Now)

	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("k%d", i), result(i))
		clock.Advance(time.Second)
	}
	// Refreshing k0 moves it to the back of the expiry order.
	c.Put("k0", result(10))
	clock.Advance(time.Second)

	c.Put("k3", result(3))

	assert.Equal(t, 3, c.Stats().Entries)
	_, ok := c.Get("k1")
	assert.False(t, ok, "k1 was nearest to expiry")
	for _, k := range []string{"k0", "k2", "k3"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestAnalysisCache_NeverExceedsCapacity(t *testing.T) {
	c := NewAnalysisCache(time.Hour, 8, zap.NewNop())

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("g%d-%d", g, i)
				c.Put(key, result(i))
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 8, c.Stats().Entries)
}

func TestAnalysisCache_CapacityPlusOne(t *testing.T) {
	c := NewAnalysisCache(time.Hour, 5, zap.NewNop())
	for i := 0; i <= 5; i++ {
		c.Put(fmt.Sprintf("k%d", i), result(i))
		assert.LessOrEqual(t, c.Stats().Entries, 5)
	}
	assert.Equal(t, 5, c.Stats().Entries)
}
