package server

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// rateLimiterConfig holds rate limiting configuration
type rateLimiterConfig struct {
	enabled bool
	limit   int           // Max admissions per key per window
	window  time.Duration // Trailing window length
}

// loadRateLimiterConfig reads rate limiter configuration from environment
func loadRateLimiterConfig() *rateLimiterConfig {
	enabled := os.Getenv("RATE_LIMIT_ENABLED") != "0" // Enabled by default
	limit := 100
	window := 15 * time.Minute

	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			window = time.Duration(n) * time.Second
		}
	}

	return &rateLimiterConfig{enabled: enabled, limit: limit, window: window}
}

// slidingWindow is an approximate sliding-window admission counter keyed by
// client address. Pruning is lazy, on each access, and a key is dropped once
// its window empties, so memory stays bounded to currently-active clients
// with no background sweep. Bursts exactly at a window boundary can admit up
// to twice the limit across two adjacent windows.
type slidingWindow struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	visitors map[string][]time.Time
	now      func() time.Time // overridable for tests
}

func newSlidingWindow(limit int, window time.Duration) *slidingWindow {
	return &slidingWindow{
		limit:    limit,
		window:   window,
		visitors: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Limit returns the configured admission limit.
func (l *slidingWindow) Limit() int {
	return l.limit
}

// Allow runs the check-and-append for key under the limiter's mutex so
// concurrent requests for the same key cannot undercount. remaining is the
// budget left after this admission; retryAfter is meaningful only on
// rejection and equals the window length.
func (l *slidingWindow) Allow(key string) (ok bool, remaining int, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// Prune every key on each access; empty keys are dropped so memory stays
	// bounded to clients active within the current window.
	for k, stamps := range l.visitors {
		kept := stamps[:0]
		for _, t := range stamps {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(l.visitors, k)
		} else {
			l.visitors[k] = kept
		}
	}

	stamps := l.visitors[key]
	if len(stamps) >= l.limit {
		return false, 0, l.window
	}

	l.visitors[key] = append(stamps, now)
	remaining = l.limit - len(l.visitors[key])
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, 0
}
