package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket_BurstUpToCapacity(t *testing.T) {
	fc := clockwork.NewFakeClock()
	b := NewTokenBucket(5, time.Second, fc)
	ctx := context.Background()

	// A fresh bucket is full: the first 5 acquires never block.
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Acquire(ctx))
	}

	done := make(chan error, 1)
	go func() { done <- b.Acquire(ctx) }()

	fc.BlockUntil(1)
	select {
	case <-done:
		t.Fatal("acquire should block once the bucket is drained")
	default:
	}

	// One token refills every 200ms at 5/s.
	fc.Advance(200 * time.Millisecond)
	require.NoError(t, <-done)
}

func TestTokenBucket_RefillClampedToCapacity(t *testing.T) {
	fc := clockwork.NewFakeClock()
	b := NewTokenBucket(3, time.Second, fc)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Acquire(ctx))
	}

	// A long idle period must not accumulate more than capacity.
	fc.Advance(time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Acquire(ctx))
	}

	done := make(chan error, 1)
	go func() { done <- b.Acquire(ctx) }()

	fc.BlockUntil(1)
	select {
	case <-done:
		t.Fatal("fourth acquire after refill should block")
	default:
	}

	fc.Advance(334 * time.Millisecond)
	require.NoError(t, <-done)
}

func TestTokenBucket_SteadyRateUnderContention(t *testing.T) {
	fc := clockwork.NewFakeClock()
	b := NewTokenBucket(5, time.Second, fc)
	ctx := context.Background()

	// Drain the initial burst so only refill admissions remain.
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Acquire(ctx))
	}

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Acquire(ctx); err == nil {
				admitted.Add(1)
			}
		}()
	}

	// Waiters hold the bucket lock while sleeping, so exactly one timer is
	// armed at a time and the rest queue on the mutex.
	for i := 0; i < 5; i++ {
		fc.BlockUntil(1)
		fc.Advance(200 * time.Millisecond)
	}
	wg.Wait()

	// 5 admissions over 1 simulated second at 5/s.
	require.EqualValues(t, 5, admitted.Load())
}

func TestTokenBucket_ContextCancelledWhileWaiting(t *testing.T) {
	fc := clockwork.NewFakeClock()
	b := NewTokenBucket(1, time.Minute, fc)

	require.NoError(t, b.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Acquire(ctx) }()

	fc.BlockUntil(1)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestTokenBucket_ContextAlreadyCancelled(t *testing.T) {
	b := NewTokenBucket(10, time.Second, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, b.Acquire(ctx), context.Canceled)
}
