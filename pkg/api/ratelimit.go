package api

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter defines the interface for rate limiting implementations
type RateLimiter interface {
	// Wait blocks until it's safe to make another API call or ctx is done
	Wait(ctx context.Context) error
	// CanProceed returns true if a request can be made without waiting
	CanProceed() bool
}

// IntervalLimiter spaces calls at least interval apart on average while
// letting up to burst calls through back to back. A burst of 1 is a plain
// minimum delay between calls.
type IntervalLimiter struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewIntervalLimiter creates a limiter allowing burst calls per interval window
func NewIntervalLimiter(interval time.Duration, burst int) *IntervalLimiter {
	return &IntervalLimiter{
		limiter: rate.NewLimiter(rate.Every(interval), max(burst, 1)),
		now:     time.Now,
	}
}

// reserve books the next slot and returns how long the caller must wait for it
func (rl *IntervalLimiter) reserve() time.Duration {
	now := rl.now()
	return rl.limiter.ReserveN(now, 1).DelayFrom(now)
}

// Wait blocks until the caller's slot comes up. A cancelled wait gives its
// slot back. A slot beyond the ctx deadline fails at once with
// context.DeadlineExceeded.
func (rl *IntervalLimiter) Wait(ctx context.Context) error {
	if err := rl.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return nil
}

// CanProceed returns true if a call made now would not wait
func (rl *IntervalLimiter) CanProceed() bool {
	return rl.limiter.TokensAt(rl.now()) >= 1
}

// NoOpRateLimiter implements the RateLimiter interface but performs no rate limiting
type NoOpRateLimiter struct{}

// NewNoOpRateLimiter creates a rate limiter that performs no limiting
func NewNoOpRateLimiter() *NoOpRateLimiter {
	return &NoOpRateLimiter{}
}

// Wait only reports a done context
func (rl *NoOpRateLimiter) Wait(ctx context.Context) error {
	return ctx.Err()
}

// CanProceed always returns true (no rate limiting)
func (rl *NoOpRateLimiter) CanProceed() bool {
	return true
}

// NewRateLimiter picks a limiter for a minimum delay between calls and a
// burst size. A zero delay disables limiting.
func NewRateLimiter(minDelay time.Duration, burst int) RateLimiter {
	if minDelay <= 0 {
		return NewNoOpRateLimiter()
	}
	return NewIntervalLimiter(minDelay, burst)
}
