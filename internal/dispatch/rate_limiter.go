package dispatch

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a per-user token bucket
// ARCHITECTURAL DISCOVERY: Per-user state with periodic cleanup prevents
// unbounded growth from users who stop sending
type RateLimiter struct {
	mu        sync.Mutex
	users     map[string]*userLimit
	perMinute int
	now       func() time.Time
}

type userLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute messages per user per minute with bursts of
// the same size. perMinute <= 0 disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		users:     make(map[string]*userLimit),
		perMinute: perMinute,
		now:       time.Now,
	}
}

// Allow reports whether userID may send now and consumes a token if so
func (rl *RateLimiter) Allow(userID string) bool {
	if rl.perMinute <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	ul, ok := rl.users[userID]
	if !ok {
		ul = &userLimit{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMinute)), rl.perMinute),
		}
		rl.users[userID] = ul
	}
	ul.lastSeen = now
	return ul.limiter.AllowN(now, 1)
}

// Cleanup drops users idle for longer than idle
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for userID, ul := range rl.users {
		if now.Sub(ul.lastSeen) > idle {
			delete(rl.users, userID)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.users)
}
