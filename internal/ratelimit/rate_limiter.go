// rate_limiter.go - Request pacing for hosted OCR backends (Gemini API quota)

package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outbound requests with a token bucket
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter
// maxTokens: burst size
// refillRate: time between token refills
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(refillRate), maxTokens)}
}

// PerMinute spreads rpm requests evenly over a minute with a burst of rpm.
// A non-positive rpm returns nil, which never blocks.
func PerMinute(rpm int) *RateLimiter {
	if rpm <= 0 {
		return nil
	}
	return NewRateLimiter(rpm, time.Minute/time.Duration(rpm))
}

// Wait blocks until a token is available or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	return rl.limiter.Wait(ctx)
}
