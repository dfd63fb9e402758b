package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-data/internal/model"
	"github.com/rickgao/crypto-data/internal/provider"
)

type fakeLimiter struct {
	acquires int
}

func (l *fakeLimiter) Acquire(ctx context.Context) error {
	l.acquires++
	return ctx.Err()
}

type fakeStore struct {
	rows     []model.MarketMetrics
	failSave bool
}

func (s *fakeStore) SaveMarketMetrics(ctx context.Context, rows []model.MarketMetrics) (int, error) {
	if s.failSave {
		return 0, errors.New("save failed")
	}
	s.rows = append(s.rows, rows...)
	return len(rows), nil
}

type fakeSnapshots struct {
	keys map[string]int
}

func (s *fakeSnapshots) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if s.keys == nil {
		s.keys = make(map[string]int)
	}
	s.keys[key]++
	return nil
}

func newTestCollector(serverURL string, symbols []string, store Store, snapshots SnapshotWriter) (*Collector, *fakeLimiter) {
	limiter := &fakeLimiter{}
	rest := provider.NewClient("coingecko", serverURL, provider.WithRetries(0, time.Millisecond))
	cfg := CollectorConfig{Symbols: symbols}
	return NewCollector(NewClient(rest), limiter, store, snapshots, cfg, nil), limiter
}

func TestCollectorName(t *testing.T) {
	c, _ := newTestCollector("http://unused", nil, &fakeStore{}, nil)
	if c.Name() != "coingecko" {
		t.Errorf("Name() = %q, want %q", c.Name(), "coingecko")
	}
}

func TestCollectorCollect(t *testing.T) {
	var gotIDs string
	mux := http.NewServeMux()
	mux.HandleFunc(pathMarkets, func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("ids")
		if r.URL.Query().Get("vs_currency") != "usd" {
			t.Errorf("vs_currency = %q, want usd", r.URL.Query().Get("vs_currency"))
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"id":                          "bitcoin",
				"symbol":                      "btc",
				"current_price":               50123.45,
				"market_cap":                  985000000000.0,
				"market_cap_rank":             1,
				"total_volume":                32000000000.0,
				"circulating_supply":          19600000.0,
				"total_supply":                21000000.0,
				"price_change_percentage_24h": -1.25,
			},
			{
				"id":                          "ethereum",
				"symbol":                      "eth",
				"current_price":               2900.12,
				"market_cap_rank":             2,
				"total_supply":                nil,
			},
			// Not asked for, must be dropped.
			{"id": "dogecoin", "current_price": 0.1},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := &fakeStore{}
	snapshots := &fakeSnapshots{}
	c, limiter := newTestCollector(server.URL, []string{"BTCUSDT", "ETHUSDT"}, store, snapshots)

	total, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if gotIDs != "bitcoin,ethereum" {
		t.Errorf("ids param = %q, want %q", gotIDs, "bitcoin,ethereum")
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if limiter.acquires != 1 {
		t.Errorf("acquires = %d, want 1 (batched request)", limiter.acquires)
	}

	if len(store.rows) != 2 {
		t.Fatalf("stored rows = %d, want 2", len(store.rows))
	}
	btc := store.rows[0]
	if btc.Symbol != "BTCUSDT" || btc.CoinID != "bitcoin" {
		t.Errorf("identity = %s/%s, want BTCUSDT/bitcoin", btc.Symbol, btc.CoinID)
	}
	if btc.Rank != 1 {
		t.Errorf("Rank = %d, want 1", btc.Rank)
	}
	if !btc.PriceUSD.Equal(decimal.NewFromFloat(50123.45)) {
		t.Errorf("PriceUSD = %s, want 50123.45", btc.PriceUSD)
	}
	eth := store.rows[1]
	if eth.Symbol != "ETHUSDT" {
		t.Errorf("Symbol = %q, want ETHUSDT", eth.Symbol)
	}
	if !eth.TotalSupply.IsZero() {
		t.Errorf("null total_supply should decode to zero, got %s", eth.TotalSupply)
	}

	for _, key := range []string{"market_metrics:BTCUSDT", "market_metrics:ETHUSDT"} {
		if snapshots.keys[key] != 1 {
			t.Errorf("snapshot writes for %q = %d, want 1", key, snapshots.keys[key])
		}
	}
}

func TestCollectorUnknownSymbolsDropped(t *testing.T) {
	var gotIDs string
	mux := http.NewServeMux()
	mux.HandleFunc(pathMarkets, func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("ids")
		json.NewEncoder(w).Encode([]map[string]any{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c, _ := newTestCollector(server.URL, []string{"BTCUSDT", "ZZZUSDT"}, &fakeStore{}, nil)
	if _, err := c.Collect(context.Background()); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if gotIDs != "bitcoin" {
		t.Errorf("ids param = %q, want %q", gotIDs, "bitcoin")
	}
}

func TestCollectorNoMappedSymbolsIsEmptyCycle(t *testing.T) {
	store := &fakeStore{}
	c, limiter := newTestCollector("http://unused", []string{"ZZZUSDT"}, store, nil)

	total, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if total != 0 || limiter.acquires != 0 {
		t.Errorf("total/acquires = %d/%d, want 0/0", total, limiter.acquires)
	}
}

func TestCollectorRequestFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	c, _ := newTestCollector(server.URL, []string{"BTCUSDT"}, &fakeStore{}, nil)
	if _, err := c.Collect(context.Background()); err == nil {
		t.Fatal("expected error when the batch request fails")
	}
}

func TestCollectorHistorical(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/coins/bitcoin/market_chart", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("days") != "30" {
			t.Errorf("days = %q, want 30", r.URL.Query().Get("days"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"prices":        [][2]float64{{1705276800000, 42000}, {1705363200000, 42500}, {1705449600000, 43000}},
			"market_caps":   [][2]float64{{1705276800000, 8.2e11}, {1705363200000, 8.3e11}, {1705449600000, 8.4e11}},
			"total_volumes": [][2]float64{{1705276800000, 3.1e10}, {1705363200000, 3.0e10}, {1705449600000, 2.9e10}},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := &fakeStore{}
	c, limiter := newTestCollector(server.URL, []string{"BTCUSDT"}, store, nil)

	total, err := c.CollectHistorical(context.Background(), 30)
	if err != nil {
		t.Fatalf("CollectHistorical failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if limiter.acquires != 1 {
		t.Errorf("acquires = %d, want 1", limiter.acquires)
	}

	if len(store.rows) != 3 {
		t.Fatalf("stored rows = %d, want 3", len(store.rows))
	}
	first := store.rows[0]
	if first.TS != 1705276800000 {
		t.Errorf("TS = %d, want 1705276800000", first.TS)
	}
	if first.Symbol != "BTCUSDT" || first.CoinID != "bitcoin" {
		t.Errorf("identity = %s/%s, want BTCUSDT/bitcoin", first.Symbol, first.CoinID)
	}
	if !first.PriceUSD.Equal(decimal.NewFromInt(42000)) {
		t.Errorf("PriceUSD = %s, want 42000", first.PriceUSD)
	}
}

func TestChartToMetricsUnevenSeries(t *testing.T) {
	chart := MarketChart{
		Prices:     [][2]float64{{1, 10}, {2, 11}, {3, 12}},
		MarketCaps: [][2]float64{{1, 100}, {2, 110}},
		Volumes:    [][2]float64{{1, 1000}, {2, 1100}, {3, 1200}},
	}

	rows := chartToMetrics("BTCUSDT", "bitcoin", chart)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (shortest series)", len(rows))
	}
	if rows[1].TS != 2 {
		t.Errorf("rows[1].TS = %d, want 2", rows[1].TS)
	}
	if !rows[1].MarketCap.Equal(decimal.NewFromInt(110)) {
		t.Errorf("rows[1].MarketCap = %s, want 110", rows[1].MarketCap)
	}
}
