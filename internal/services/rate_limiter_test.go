package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	clock := newFakeClock()
	l := newFixedWindowLimiter(10, time.Minute, clock.Now)

	for i := 0; i < 10; i++ {
		d := l.Allow("caller")
		require.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 10-(i+1), d.Remaining)
		clock.Advance(time.Second)
	}

	denied := l.Allow("caller")
	assert.False(t, denied.Allowed)
	assert.Greater(t, denied.RetryAfter, time.Duration(0))
	assert.Equal(t, 50*time.Second, denied.RetryAfter)
	assert.LessOrEqual(t, denied.RetryAfterSeconds(), 60)

	// Denials do not consume budget in the next window.
	clock.Advance(50 * time.Second)
	d := l.Allow("caller")
	require.True(t, d.Allowed)
	assert.Equal(t, 9, d.Remaining)
}

func TestRateLimiter_BoundaryBelongsToNewWindow(t *testing.T) {
	clock := newFakeClock()
	l := newFixedWindowLimiter(1, time.Minute, clock.Now)

	require.True(t, l.Allow("a").Allowed)
	clock.Advance(time.Minute - time.Nanosecond)
	assert.False(t, l.Allow("a").Allowed)

	clock.Advance(time.Nanosecond)
	assert.True(t, l.Allow("a").Allowed)
}

func TestRateLimiter_IdentitiesAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := newFixedWindowLimiter(1, time.Minute, clock.Now)

	assert.True(t, l.Allow("a").Allowed)
	assert.False(t, l.Allow("a").Allowed)
	assert.True(t, l.Allow("b").Allowed)
}

func TestRateLimiter_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	l := NewRateLimiter(25, time.Hour)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared").Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(25), allowed.Load())
}

func TestRateDecision_RetryAfterSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, 0, RateDecision{}.RetryAfterSeconds())
	assert.Equal(t, 1, RateDecision{RetryAfter: 10 * time.Millisecond}.RetryAfterSeconds())
	assert.Equal(t, 60, RateDecision{RetryAfter: 60 * time.Second}.RetryAfterSeconds())
}

func TestUnlimitedRateLimiter(t *testing.T) {
	l := NewUnlimitedRateLimiter()
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("x").Allowed)
	}
}
