package broadcast

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	id string

	mu   sync.Mutex
	got  []any
	fail bool
}

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) SendJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("peer gone")
	}
	f.got = append(f.got, v)
	return nil
}

func (f *fakeSub) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func TestBroadcaster_RemovesFailedSubscribers(t *testing.T) {
	b := New(nil, nil)
	h1 := &fakeSub{id: "h1"}
	h2 := &fakeSub{id: "h2", fail: true}
	h3 := &fakeSub{id: "h3"}
	for _, h := range []*fakeSub{h1, h2, h3} {
		b.Connect("c", h)
	}

	b.Broadcast("c", "m1")

	require.Equal(t, 2, b.Count("c"))

	// Only the survivors see later messages.
	b.Broadcast("c", "m2")
	require.Equal(t, 2, h1.received())
	require.Equal(t, 2, h3.received())
	require.Zero(t, h2.received())
}

func TestBroadcaster_LastDisconnectDropsChannel(t *testing.T) {
	b := New(nil, nil)
	h := &fakeSub{id: "h1"}
	b.Connect("c", h)
	require.Equal(t, 1, b.Count("c"))

	b.Disconnect("c", h)
	require.Zero(t, b.Count("c"))
	require.Empty(t, b.Channels())
	require.Empty(t, b.Counts())
}

func TestBroadcaster_UnknownChannelIsNoOp(t *testing.T) {
	observed := false
	b := New(nil, func(sent, failed int) { observed = true })

	b.Broadcast("nope", "m")

	require.False(t, observed)
	require.Zero(t, b.TotalCount())
}

func TestBroadcaster_StaleDisconnectKeepsReplacement(t *testing.T) {
	b := New(nil, nil)
	old := &fakeSub{id: "dup"}
	repl := &fakeSub{id: "dup"}
	b.Connect("c", old)
	b.Connect("c", repl)
	require.Equal(t, 1, b.Count("c"))

	// Removing the stale instance must not evict its replacement.
	b.Disconnect("c", old)
	require.Equal(t, 1, b.Count("c"))

	b.Disconnect("c", repl)
	require.Zero(t, b.Count("c"))
}

func TestBroadcaster_CountsAcrossChannels(t *testing.T) {
	b := New(nil, nil)
	b.Connect("ticker:BTCUSDT", &fakeSub{id: "a"})
	b.Connect("ticker:BTCUSDT", &fakeSub{id: "b"})
	b.Connect("events", &fakeSub{id: "c"})

	require.Equal(t, 3, b.TotalCount())
	require.Equal(t, 2, b.Count("ticker:BTCUSDT"))
	require.Equal(t, map[string]int{"ticker:BTCUSDT": 2, "events": 1}, b.Counts())
	require.Equal(t, []string{"events", "ticker:BTCUSDT"}, b.Channels())
}

func TestBroadcaster_ObserverSeesSendCounts(t *testing.T) {
	var sent, failed int
	b := New(nil, func(s, f int) { sent, failed = s, f })
	b.Connect("c", &fakeSub{id: "ok"})
	b.Connect("c", &fakeSub{id: "bad", fail: true})

	b.Broadcast("c", "m")

	require.Equal(t, 1, sent)
	require.Equal(t, 1, failed)
}

func TestBroadcaster_ConcurrentChurn(t *testing.T) {
	b := New(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sub := &fakeSub{id: fmt.Sprintf("h%d", n)}
			for j := 0; j < 100; j++ {
				b.Connect("c", sub)
				b.Broadcast("c", j)
				b.Disconnect("c", sub)
			}
		}(i)
	}
	wg.Wait()

	require.Zero(t, b.TotalCount())
}
