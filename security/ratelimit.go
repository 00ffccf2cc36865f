package security

import (
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the per-address request quota per window.
	DefaultMaxRequests = 100
	// DefaultWindow is the sliding rate-limit window.
	DefaultWindow = time.Hour
)

// RateLimiter enforces a per-address sliding-window request quota.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	requests    map[string][]time.Time
	now         func() time.Time
}

// NewRateLimiter builds a limiter with the given quota and window.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// SetClock replaces the limiter's time source. Test hook.
func (r *RateLimiter) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Allow records one request from address and reports whether it fit inside
// the quota. Requests outside the current window are discarded.
func (r *RateLimiter) Allow(address string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)

	kept := r.requests[address][:0]
	for _, ts := range r.requests[address] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= r.maxRequests {
		r.requests[address] = kept
		return false
	}
	r.requests[address] = append(kept, now)
	return true
}
