package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SlidingWindow is an exact rate limiter admitting at most max requests in
// any rolling window. Each admission is timestamped; expired stamps are
// pruned on every call.
type SlidingWindow struct {
	max    int
	window time.Duration
	clock  clockwork.Clock

	mu     sync.Mutex
	stamps []time.Time
}

// NewSlidingWindow creates a limiter admitting max requests per window.
// A nil clock defaults to the real one.
func NewSlidingWindow(max int, window time.Duration, clock clockwork.Clock) *SlidingWindow {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &SlidingWindow{
		max:    max,
		window: window,
		stamps: make([]time.Time, 0, max),
		clock:  clock,
	}
}

// Acquire records one admission, waiting until the oldest stamp ages out
// when the window is full. The lock is released during the wait; after
// waking the window is re-checked, since another waiter may have taken the
// freed slot first.
func (w *SlidingWindow) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	for {
		w.mu.Lock()
		now := w.clock.Now()
		w.prune(now)

		if len(w.stamps) < w.max {
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return nil
		}

		wait := w.stamps[0].Add(w.window).Sub(now)
		w.mu.Unlock()

		if err := sleepCtx(ctx, w.clock, wait); err != nil {
			return err
		}
	}
}

// prune drops stamps at or past the window boundary. Caller holds the lock.
func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}
