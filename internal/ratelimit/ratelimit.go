// Package ratelimit implements outbound request throttling for market data providers.
//
// Two algorithms are provided:
//   - TokenBucket: continuous refill, allows short bursts up to capacity
//   - SlidingWindow: exact timestamped window, never exceeds max per interval
//
// A Registry hands out one shared limiter per provider name, creating
// limiters lazily with a fallback config for unknown providers.
package ratelimit

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limiter grants permission to make one outbound request.
type Limiter interface {
	// Acquire blocks until a permit is available or ctx is done.
	// The only error it returns is ctx.Err().
	Acquire(ctx context.Context) error
}

// sleepCtx waits for d on the given clock, aborting early when ctx is done.
func sleepCtx(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
