package utils

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/pocketbase/pocketbase/core"
)

// RateLimiter implements a sliding window rate limiter
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	config   RateLimitConfig
	now      func() time.Time
}

// RateLimitConfig defines rate limit settings
type RateLimitConfig struct {
	PublicLimit    int           // requests per window for public reads
	SubmitLimit    int           // requests per window for public writes that reach the CRM
	AuthLimit      int           // requests per window for staff
	WebhookLimit   int           // requests per window for inbound webhooks
	WindowDuration time.Duration // sliding window duration
}

// DefaultRateLimitConfig returns the production limits
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		PublicLimit:    60,
		SubmitLimit:    10,
		AuthLimit:      120,
		WebhookLimit:   60,
		WindowDuration: time.Minute,
	}
}

var (
	limiter     *RateLimiter
	limiterOnce sync.Once
)

// NewRateLimiter creates a limiter without the background cleanup loop
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		config:   cfg,
		now:      time.Now,
	}
}

// GetRateLimiter returns the singleton rate limiter instance
func GetRateLimiter() *RateLimiter {
	limiterOnce.Do(func() {
		limiter = NewRateLimiter(DefaultRateLimitConfig())
		go limiter.cleanupLoop()
		log.Printf("[RateLimit] Initialized with public=%d, submit=%d, auth=%d, webhook=%d per %s",
			limiter.config.PublicLimit, limiter.config.SubmitLimit, limiter.config.AuthLimit,
			limiter.config.WebhookLimit, limiter.config.WindowDuration)
	})
	return limiter
}

// Allow checks if a request should be allowed based on rate limits
func (rl *RateLimiter) Allow(key string, limit int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.within(rl.requests[key], now)

	if len(valid) >= limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

// Cleanup removes keys with no requests inside the window
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, times := range rl.requests {
		valid := rl.within(times, now)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

func (rl *RateLimiter) within(times []time.Time, now time.Time) []time.Time {
	windowStart := now.Add(-rl.config.WindowDuration)
	var valid []time.Time
	for _, t := range times {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	return valid
}

// cleanupLoop periodically removes stale entries
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		rl.Cleanup()
	}
}

// rateLimitResponse returns a 429 response with Retry-After header
func rateLimitResponse(e *core.RequestEvent) error {
	e.Response.Header().Set("Retry-After", "60")
	return e.JSON(http.StatusTooManyRequests, map[string]string{
		"error": "Rate limit exceeded. Please try again later.",
	})
}

// RateLimitPublic is middleware for public read endpoints (tracks by IP)
func RateLimitPublic(e *core.RequestEvent) error {
	rl := GetRateLimiter()
	key := "public:" + e.RealIP()

	if !rl.Allow(key, rl.config.PublicLimit) {
		log.Printf("[RateLimit] Public limit exceeded for IP %s", e.RealIP())
		return rateLimitResponse(e)
	}
	return e.Next()
}

// RateLimitSubmit is middleware for public form submissions (tracks by IP)
func RateLimitSubmit(e *core.RequestEvent) error {
	rl := GetRateLimiter()
	key := "submit:" + e.RealIP()

	if !rl.Allow(key, rl.config.SubmitLimit) {
		log.Printf("[RateLimit] Submit limit exceeded for IP %s", e.RealIP())
		return rateLimitResponse(e)
	}
	return e.Next()
}

// RateLimitAuth is middleware for authenticated endpoints (tracks by user ID or IP)
func RateLimitAuth(e *core.RequestEvent) error {
	rl := GetRateLimiter()

	var key string
	if e.Auth != nil {
		key = "auth:" + e.Auth.Id
	} else {
		key = "auth:" + e.RealIP()
	}

	if !rl.Allow(key, rl.config.AuthLimit) {
		log.Printf("[RateLimit] Auth limit exceeded for %s", key)
		return rateLimitResponse(e)
	}
	return e.Next()
}

// RateLimitWebhook is middleware for inbound webhooks (tracks by IP)
func RateLimitWebhook(e *core.RequestEvent) error {
	rl := GetRateLimiter()
	key := "webhook:" + e.RealIP()

	if !rl.Allow(key, rl.config.WebhookLimit) {
		log.Printf("[RateLimit] Webhook limit exceeded for IP %s", e.RealIP())
		return rateLimitResponse(e)
	}
	return e.Next()
}
