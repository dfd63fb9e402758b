package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/crypto-data/internal/broadcast"
	"github.com/rickgao/crypto-data/internal/collector"
)

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

type fakeCache struct {
	pingErr error
	snaps   map[string]string
}

func (f *fakeCache) Ping(context.Context) error { return f.pingErr }

func (f *fakeCache) Snapshot(_ context.Context, key string) (json.RawMessage, bool) {
	s, ok := f.snaps[key]
	if !ok {
		return nil, false
	}
	return json.RawMessage(s), true
}

type fakeCollector struct {
	name     string
	histDays chan int
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Collect(context.Context) (int, error) { return 1, nil }

func (f *fakeCollector) CollectHistorical(_ context.Context, days int) (int, error) {
	if f.histDays != nil {
		f.histDays <- days
	}
	return 42, nil
}

type fakeRunner struct {
	coll     *fakeCollector
	running  atomic.Bool
	startErr error
}

func newFakeRunner(name string) *fakeRunner {
	return &fakeRunner{coll: &fakeCollector{name: name, histDays: make(chan int, 1)}}
}

func (f *fakeRunner) Name() string  { return f.coll.name }
func (f *fakeRunner) Running() bool { return f.running.Load() }

func (f *fakeRunner) Status() collector.Status {
	return collector.Status{Name: f.coll.name, Running: f.running.Load()}
}

func (f *fakeRunner) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.running.Store(true)
	return nil
}

func (f *fakeRunner) Stop(context.Context) error {
	f.running.Store(false)
	return nil
}

func (f *fakeRunner) Collector() collector.Collector { return f.coll }

func doRequest(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	type healthResp struct {
		Status     string         `json:"status"`
		Version    string         `json:"version"`
		Uptime     string         `json:"uptime"`
		Components map[string]any `json:"components"`
	}

	newServer := func(dbErr, cacheErr error) *Server {
		return New(Config{}, Deps{
			DB:          &fakePinger{err: dbErr},
			Cache:       &fakeCache{pingErr: cacheErr},
			Broadcaster: broadcast.New(nil, nil),
			Runners:     []Runner{newFakeRunner("binance")},
		})
	}

	t.Run("healthy", func(t *testing.T) {
		rec := doRequest(t, newServer(nil, nil).Handler(), http.MethodGet, "/healthz")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var got healthResp
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Status != "healthy" {
			t.Errorf("Status = %q, want %q", got.Status, "healthy")
		}
		if got.Version == "" {
			t.Error("Version is empty")
		}
		if got.Components["postgres"] != "connected" {
			t.Errorf("postgres = %v, want connected", got.Components["postgres"])
		}
		if got.Components["redis"] != "connected" {
			t.Errorf("redis = %v, want connected", got.Components["redis"])
		}
	})

	t.Run("database down", func(t *testing.T) {
		rec := doRequest(t, newServer(errors.New("conn refused"), nil).Handler(), http.MethodGet, "/healthz")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}

		var got healthResp
		json.NewDecoder(rec.Body).Decode(&got)
		if got.Status != "unhealthy" {
			t.Errorf("Status = %q, want %q", got.Status, "unhealthy")
		}
	})

	t.Run("cache down degrades", func(t *testing.T) {
		rec := doRequest(t, newServer(nil, errors.New("conn refused")).Handler(), http.MethodGet, "/healthz")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var got healthResp
		json.NewDecoder(rec.Body).Decode(&got)
		if got.Status != "degraded" {
			t.Errorf("Status = %q, want %q", got.Status, "degraded")
		}
	})
}

func TestCollectorEndpoints(t *testing.T) {
	binance := newFakeRunner("binance")
	coingecko := newFakeRunner("coingecko")
	s := New(Config{}, Deps{
		Broadcaster: broadcast.New(nil, nil),
		Runners:     []Runner{binance, coingecko},
	})
	h := s.Handler()

	t.Run("list preserves wiring order", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/api/v1/collectors")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var got struct {
			Collectors []collector.Status `json:"collectors"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got.Collectors) != 2 {
			t.Fatalf("len = %d, want 2", len(got.Collectors))
		}
		if got.Collectors[0].Name != "binance" || got.Collectors[1].Name != "coingecko" {
			t.Errorf("order = %s, %s; want binance, coingecko", got.Collectors[0].Name, got.Collectors[1].Name)
		}
	})

	t.Run("start and stop", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/v1/collectors/binance/start")
		if rec.Code != http.StatusOK {
			t.Fatalf("start status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !binance.Running() {
			t.Error("runner not running after start")
		}

		var st collector.Status
		json.NewDecoder(rec.Body).Decode(&st)
		if !st.Running {
			t.Error("response Running = false after start")
		}

		rec = doRequest(t, h, http.MethodPost, "/api/v1/collectors/binance/stop")
		if rec.Code != http.StatusOK {
			t.Fatalf("stop status = %d, want %d", rec.Code, http.StatusOK)
		}
		if binance.Running() {
			t.Error("runner still running after stop")
		}
	})

	t.Run("start failure is a 500", func(t *testing.T) {
		coingecko.startErr = errors.New("provider unreachable")
		defer func() { coingecko.startErr = nil }()

		rec := doRequest(t, h, http.MethodPost, "/api/v1/collectors/coingecko/start")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
	})

	t.Run("unknown collector", func(t *testing.T) {
		for _, path := range []string{
			"/api/v1/collectors/kraken/start",
			"/api/v1/collectors/kraken/stop",
			"/api/v1/collectors/kraken/historical",
		} {
			rec := doRequest(t, h, http.MethodPost, path)
			if rec.Code != http.StatusNotFound {
				t.Errorf("%s status = %d, want %d", path, rec.Code, http.StatusNotFound)
			}
		}
	})
}

func TestHistoricalRun(t *testing.T) {
	waitDays := func(t *testing.T, run *fakeRunner) int {
		t.Helper()
		select {
		case d := <-run.coll.histDays:
			return d
		case <-time.After(2 * time.Second):
			t.Fatal("historical run never reached the collector")
			return 0
		}
	}

	t.Run("explicit days", func(t *testing.T) {
		run := newFakeRunner("binance")
		s := New(Config{}, Deps{Broadcaster: broadcast.New(nil, nil), Runners: []Runner{run}})

		rec := doRequest(t, s.Handler(), http.MethodPost, "/api/v1/collectors/binance/historical?days=7")
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
		}

		var got struct {
			RunID     string `json:"run_id"`
			Collector string `json:"collector"`
			Days      int    `json:"days"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.RunID == "" {
			t.Error("run_id is empty")
		}
		if got.Days != 7 {
			t.Errorf("days = %d, want 7", got.Days)
		}
		if d := waitDays(t, run); d != 7 {
			t.Errorf("collector got days = %d, want 7", d)
		}
	})

	t.Run("default days", func(t *testing.T) {
		run := newFakeRunner("binance")
		s := New(Config{HistoricalDays: 90}, Deps{Broadcaster: broadcast.New(nil, nil), Runners: []Runner{run}})

		rec := doRequest(t, s.Handler(), http.MethodPost, "/api/v1/collectors/binance/historical")
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
		}
		if d := waitDays(t, run); d != 90 {
			t.Errorf("collector got days = %d, want 90", d)
		}
	})

	t.Run("invalid days", func(t *testing.T) {
		run := newFakeRunner("binance")
		s := New(Config{}, Deps{Broadcaster: broadcast.New(nil, nil), Runners: []Runner{run}})
		h := s.Handler()

		for _, q := range []string{"days=abc", "days=0", "days=-3"} {
			rec := doRequest(t, h, http.MethodPost, "/api/v1/collectors/binance/historical?"+q)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s status = %d, want %d", q, rec.Code, http.StatusBadRequest)
			}
		}
		select {
		case d := <-run.coll.histDays:
			t.Errorf("collector ran with days = %d, want no run", d)
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestSnapshotReads(t *testing.T) {
	snaps := map[string]string{
		"ticker:BTCUSDT":         `{"symbol":"BTCUSDT","last_price":"50123.45"}`,
		"orderbook:ETHUSDT":      `{"symbol":"ETHUSDT","bids":[]}`,
		"candles:BTCUSDT:1h":     `[{"open":"50000"}]`,
		"candles:BTCUSDT:4h":     `[{"open":"49000"}]`,
		"market_metrics:BTCUSDT": `{"symbol":"BTCUSDT","rank":1}`,
	}
	s := New(Config{}, Deps{
		Cache:       &fakeCache{snaps: snaps},
		Broadcaster: broadcast.New(nil, nil),
	})
	h := s.Handler()

	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/ticker/BTCUSDT", snaps["ticker:BTCUSDT"]},
		{"/api/v1/ticker/btcusdt", snaps["ticker:BTCUSDT"]}, // key is case folded
		{"/api/v1/orderbook/ETHUSDT", snaps["orderbook:ETHUSDT"]},
		{"/api/v1/candles/BTCUSDT", snaps["candles:BTCUSDT:1h"]}, // default interval
		{"/api/v1/candles/BTCUSDT/4h", snaps["candles:BTCUSDT:4h"]},
		{"/api/v1/market-metrics/BTCUSDT", snaps["market_metrics:BTCUSDT"]},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodGet, tt.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("body = %s, want %s", got, tt.want)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}

	t.Run("missing snapshot", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/api/v1/ticker/DOGEUSDT")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func TestMetricsRoute(t *testing.T) {
	t.Run("wired", func(t *testing.T) {
		mh := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("metrics ok"))
		})
		s := New(Config{}, Deps{Broadcaster: broadcast.New(nil, nil), Metrics: mh})

		rec := doRequest(t, s.Handler(), http.MethodGet, "/metrics")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if got := rec.Body.String(); got != "metrics ok" {
			t.Errorf("body = %q, want %q", got, "metrics ok")
		}
	})

	t.Run("unwired", func(t *testing.T) {
		s := New(Config{}, Deps{Broadcaster: broadcast.New(nil, nil)})
		rec := doRequest(t, s.Handler(), http.MethodGet, "/metrics")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func TestStartShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	s := New(Config{Host: "127.0.0.1", Port: port}, Deps{Broadcaster: broadcast.New(nil, nil)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", port)
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
