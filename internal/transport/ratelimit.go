// Copyright 2025 Joseph Cumines
//
// Token bucket rate limiter for HTTP transport

package transport

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiting algorithm.
// When the bucket is empty, requests are rejected with HTTP 429 Too Many
// Requests.
type RateLimiter struct {
	clock      func() time.Time // injectable clock for testing
	lastUpdate time.Time        // last time tokens were refilled
	rate       float64          // tokens added per second
	burst      float64          // maximum bucket capacity
	tokens     float64          // current available tokens
	mu         sync.Mutex       // protects all fields
}

// NewRateLimiter creates a new rate limiter with the specified rate in
// requests per second. The burst size is 2x the rate. Returns nil if rate
// is 0 or negative (disabling rate limiting).
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return NewRateLimiterWithClock(requestsPerSecond, time.Now)
}

// NewRateLimiterWithClock creates a rate limiter with an injectable clock.
func NewRateLimiterWithClock(requestsPerSecond float64, clock func() time.Time) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	burst := requestsPerSecond * 2
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:       requestsPerSecond,
		burst:      burst,
		tokens:     burst, // start with full bucket
		lastUpdate: clock(),
		clock:      clock,
	}
}

// Allow checks if a request should be allowed and consumes a token if so.
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true // nil limiter means no rate limiting
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	r.tokens += now.Sub(r.lastUpdate).Seconds() * r.rate
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
	r.lastUpdate = now

	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}

// Tokens returns the current number of available tokens, or -1 if the
// limiter is nil (disabled).
func (r *RateLimiter) Tokens() float64 {
	if r == nil {
		return -1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens
}

// rateLimitExempt lists paths that are never limited, so monitoring keeps
// working while the inspector is being hammered.
var rateLimitExempt = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Middleware returns chi-compatible middleware applying the limiter. A nil
// limiter yields a passthrough.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !rateLimitExempt[req.URL.Path] && !r.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}
