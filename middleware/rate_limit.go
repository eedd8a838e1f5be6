package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RateLimiter decides whether a keyed request fits inside a sliding window.
// Injected into the middleware rather than living as a package singleton so
// it can be swapped for a distributed implementation later.
type RateLimiter interface {
	Allow(key string, maxRequests int, window time.Duration) bool
}

// SlidingWindowLimiter keeps per-key request timestamps in memory and prunes
// anything older than the window on each check.
type SlidingWindowLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

func NewSlidingWindowLimiter() *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (l *SlidingWindowLimiter) Allow(key string, maxRequests int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	kept := l.requests[key][:0]
	for _, t := range l.requests[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= maxRequests {
		l.requests[key] = kept
		return false
	}

	l.requests[key] = append(kept, now)
	return true
}

// RateLimit applies the limiter keyed by client IP.
func RateLimit(limiter RateLimiter, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !limiter.Allow(c.IP(), maxRequests, window) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Try again later.",
			})
		}
		return c.Next()
	}
}
