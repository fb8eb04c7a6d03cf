package router

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter tracks one token bucket per user so a chatty user cannot
// starve the generative backend for everyone else.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter
}

// NewRateLimiter creates an empty per-user limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}

	// One message per second sustained, short bursts of five.
	limiter := rate.NewLimiter(rate.Every(time.Second), 5)
	rl.limits[key] = limiter
	return limiter
}

// Allow reports whether the user may send another message now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}
