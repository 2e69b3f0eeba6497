package services

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	rateLimiterMaxKeys = 1000
	rateLimiterTTL     = 5 * time.Minute
)

// RateLimiter throttles deliveries per key (provider name). Idle limiters
// expire so the key space stays bounded.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// NewRateLimiter allows requestsPerMin per key. A non-positive value returns nil,
// and a nil limiter allows everything.
func NewRateLimiter(requestsPerMin int) *RateLimiter {
	if requestsPerMin <= 0 {
		return nil
	}

	burst := requestsPerMin / 10
	if burst < 1 {
		burst = 1
	}

	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](rateLimiterMaxKeys, nil, rateLimiterTTL),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burst,
	}
}

// Allow reports whether one more request for key may proceed now
func (rl *RateLimiter) Allow(key string) bool {
	if rl == nil {
		return true
	}

	rl.mu.Lock()
	limiter, ok := rl.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters.Add(key, limiter)
	}
	rl.mu.Unlock()

	return limiter.Allow()
}
