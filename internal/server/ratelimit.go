package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter limits requests per client per minute and bytes uploaded per
// client per day. A zero limit disables that check.
type RateLimiter struct {
	mu sync.Mutex

	perMinute  int
	dailyBytes int64
	now        func() time.Time

	clients map[string]*clientUsage
}

type clientUsage struct {
	windowStart time.Time
	requests    int
	day         time.Time
	bytes       int64
}

// NewRateLimiter creates a limiter with the given limits.
func NewRateLimiter(perMinute int, dailyBytes int64) *RateLimiter {
	return &RateLimiter{
		perMinute:  perMinute,
		dailyBytes: dailyBytes,
		now:        time.Now,
		clients:    make(map[string]*clientUsage),
	}
}

// Allow records a request of size bytes from client, or returns a
// *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) Allow(client string, size int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u := rl.clients[client]
	if u == nil {
		u = &clientUsage{windowStart: now, day: startOfDay(now)}
		rl.clients[client] = u
	}

	if now.Sub(u.windowStart) >= time.Minute {
		u.windowStart = now
		u.requests = 0
	}
	if today := startOfDay(now); !today.Equal(u.day) {
		u.day = today
		u.bytes = 0
	}

	if rl.perMinute > 0 && u.requests >= rl.perMinute {
		return &RateLimitError{
			Limit:      rl.perMinute,
			RetryAfter: time.Minute - now.Sub(u.windowStart),
		}
	}
	if rl.dailyBytes > 0 && u.bytes+size > rl.dailyBytes {
		return &QuotaExceededError{
			Limit:  rl.dailyBytes,
			Used:   u.bytes,
			Resets: u.day.AddDate(0, 0, 1),
		}
	}

	u.requests++
	u.bytes += size
	return nil
}

// Usage returns the requests in the current minute window and bytes today.
func (rl *RateLimiter) Usage(client string) (int, int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if u, ok := rl.clients[client]; ok {
		return u.requests, u.bytes
	}
	return 0, 0
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RateLimitError reports an exceeded per-minute request limit.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d/min, retry after: %v)", e.Limit, e.RetryAfter.Round(time.Second))
}

// QuotaExceededError reports an exceeded daily upload quota.
type QuotaExceededError struct {
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily upload quota exceeded (used: %d, limit: %d, resets: %s)",
		e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
