package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SameInstancePerProvider(t *testing.T) {
	r := NewRegistry(map[string]Config{
		"binance": {Kind: KindBucket, Rate: 1200, Period: time.Minute},
	}, Config{})

	require.Same(t, r.Get("binance"), r.Get("binance"))
	require.Same(t, r.Get("unknown"), r.Get("unknown"))
}

func TestRegistry_FallbackForUnknownProvider(t *testing.T) {
	r := NewRegistry(nil, Config{}, WithClock(clockwork.NewFakeClock()))

	l := r.Get("mystery")
	b, ok := l.(*TokenBucket)
	require.True(t, ok, "fallback limiter should be a token bucket")
	require.EqualValues(t, 100, b.rate)
	require.Equal(t, time.Minute, b.period)
}

func TestRegistry_KindSelection(t *testing.T) {
	r := NewRegistry(map[string]Config{
		"coingecko": {Kind: KindWindow, Rate: 50, Period: time.Minute},
		"binance":   {Kind: KindBucket, Rate: 1200, Period: time.Minute},
	}, Config{}, WithClock(clockwork.NewFakeClock()))

	_, ok := r.Get("coingecko").(*SlidingWindow)
	require.True(t, ok, "coingecko should get a sliding window")

	_, ok = r.Get("binance").(*TokenBucket)
	require.True(t, ok, "binance should get a token bucket")
}

func TestRegistry_ConcurrentGetCreatesOneLimiter(t *testing.T) {
	r := NewRegistry(nil, Config{})

	const n = 16
	limiters := make(chan Limiter, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiters <- r.Get("shared")
		}()
	}
	wg.Wait()
	close(limiters)

	first := <-limiters
	for l := range limiters {
		require.Same(t, first, l)
	}
}

func TestRegistry_AcquireReportsWait(t *testing.T) {
	fc := clockwork.NewFakeClock()

	var mu sync.Mutex
	waits := make(map[string]time.Duration)
	r := NewRegistry(map[string]Config{
		"fast": {Kind: KindBucket, Rate: 10, Period: time.Second},
	}, Config{},
		WithClock(fc),
		WithWaitObserver(func(provider string, wait time.Duration) {
			mu.Lock()
			waits[provider] = wait
			mu.Unlock()
		}),
	)

	require.NoError(t, r.Acquire(context.Background(), "fast"))

	mu.Lock()
	defer mu.Unlock()
	wait, ok := waits["fast"]
	require.True(t, ok, "observer should be called")
	require.Zero(t, wait, "a full bucket admits without waiting")
}
