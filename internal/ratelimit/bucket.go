package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TokenBucket is a continuous-refill rate limiter allowing `rate` requests
// per `period`, with burst capacity equal to the full rate.
type TokenBucket struct {
	rate   float64
	period time.Duration
	clock  clockwork.Clock

	mu        sync.Mutex
	allowance float64
	last      time.Time
}

// NewTokenBucket creates a full bucket granting rate permits per period.
// A nil clock defaults to the real one.
func NewTokenBucket(rate int, period time.Duration, clock clockwork.Clock) *TokenBucket {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if rate < 1 {
		rate = 1
	}
	if period <= 0 {
		period = time.Second
	}
	return &TokenBucket{
		rate:      float64(rate),
		period:    period,
		clock:     clock,
		allowance: float64(rate),
		last:      clock.Now(),
	}
}

// Acquire takes one token, waiting for refill when the bucket is empty.
// The lock is held across the wait, so concurrent acquirers queue on the
// mutex and are admitted one refill interval apart.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	elapsed := now.Sub(b.last)
	b.last = now

	b.allowance += elapsed.Seconds() * b.rate / b.period.Seconds()
	if b.allowance > b.rate {
		b.allowance = b.rate
	}

	if b.allowance >= 1 {
		b.allowance--
		return nil
	}

	wait := time.Duration((1 - b.allowance) / b.rate * float64(b.period))
	if err := sleepCtx(ctx, b.clock, wait); err != nil {
		return err
	}

	b.allowance = 0
	b.last = b.clock.Now()
	return nil
}
