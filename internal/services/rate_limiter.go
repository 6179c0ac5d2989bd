package services

import (
	"sync"
	"time"
)

// RateDecision is the outcome of one admission attempt.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up so callers never retry too early.
func (d RateDecision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int((d.RetryAfter + time.Second - 1) / time.Second)
}

// RateLimiter admits requests per caller identity.
type RateLimiter interface {
	Allow(identity string) RateDecision
}

type rateWindow struct {
	mu    sync.Mutex
	count int
	start time.Time
}

// fixedWindowLimiter keeps one window per identity for the life of the process.
// The map lock only guards window creation; counting happens under the
// window's own lock so unrelated callers never contend.
type fixedWindowLimiter struct {
	mu      sync.RWMutex
	windows map[string]*rateWindow
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) RateLimiter {
	return newFixedWindowLimiter(limit, window, time.Now)
}

func newFixedWindowLimiter(limit int, window time.Duration, now func() time.Time) *fixedWindowLimiter {
	return &fixedWindowLimiter{
		windows: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
		now:     now,
	}
}

func (l *fixedWindowLimiter) windowFor(identity string) *rateWindow {
	l.mu.RLock()
	w, ok := l.windows[identity]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.windows[identity]; ok {
		return w
	}
	w = &rateWindow{}
	l.windows[identity] = w
	return w
}

// Allow resets the window once now reaches start+window, so a request landing
// exactly on the boundary belongs to the new window. Denied requests are not
// counted.
func (l *fixedWindowLimiter) Allow(identity string) RateDecision {
	w := l.windowFor(identity)
	now := l.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.start.IsZero() || !now.Before(w.start.Add(l.window)) {
		w.count = 0
		w.start = now
	}
	resetAt := w.start.Add(l.window)

	if w.count < l.limit {
		w.count++
		return RateDecision{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: l.limit - w.count,
			ResetAt:   resetAt,
		}
	}

	return RateDecision{
		Allowed:    false,
		Limit:      l.limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: resetAt.Sub(now),
	}
}

type unlimited struct{}

// NewUnlimitedRateLimiter admits everything. It backs a disabled rate limit.
func NewUnlimitedRateLimiter() RateLimiter {
	return unlimited{}
}

func (unlimited) Allow(string) RateDecision {
	return RateDecision{Allowed: true, Limit: -1, Remaining: -1}
}
