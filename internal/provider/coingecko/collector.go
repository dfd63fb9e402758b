package coingecko

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/crypto-data/internal/cache"
	"github.com/rickgao/crypto-data/internal/model"
)

// DefaultCoinIDs maps trading symbols to CoinGecko coin identifiers.
var DefaultCoinIDs = map[string]string{
	"BTCUSDT":   "bitcoin",
	"ETHUSDT":   "ethereum",
	"BNBUSDT":   "binancecoin",
	"ADAUSDT":   "cardano",
	"DOGEUSDT":  "dogecoin",
	"XRPUSDT":   "ripple",
	"DOTUSDT":   "polkadot",
	"UNIUSDT":   "uniswap",
	"LINKUSDT":  "chainlink",
	"LTCUSDT":   "litecoin",
	"SOLUSDT":   "solana",
	"MATICUSDT": "matic-network",
	"AVAXUSDT":  "avalanche-2",
}

// Limiter grants permission for one outbound request.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Store persists collected market metrics.
type Store interface {
	SaveMarketMetrics(ctx context.Context, rows []model.MarketMetrics) (int, error)
}

// SnapshotWriter receives hot snapshots for the stream layer.
type SnapshotWriter interface {
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// CollectorConfig bundles collection parameters.
type CollectorConfig struct {
	Symbols    []string
	CoinIDs    map[string]string // symbol -> coin id (default: DefaultCoinIDs)
	MetricsTTL time.Duration     // snapshot expiry (default: cache.MarketMetricsTTL)
}

// Collector gathers coin-level market metrics from CoinGecko. One cycle
// is a single batched /coins/markets request for every tracked coin.
type Collector struct {
	client     *Client
	limiter    Limiter
	store      Store
	snapshots  SnapshotWriter
	logger     *slog.Logger
	metricsTTL time.Duration

	ids        []string // coin ids in configured symbol order
	symbolByID map[string]string
}

// NewCollector creates a CoinGecko collector. Symbols without a coin id
// mapping are dropped with a warning. snapshots may be nil.
func NewCollector(client *Client, limiter Limiter, store Store, snapshots SnapshotWriter, cfg CollectorConfig, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	coinIDs := cfg.CoinIDs
	if coinIDs == nil {
		coinIDs = DefaultCoinIDs
	}
	if cfg.MetricsTTL <= 0 {
		cfg.MetricsTTL = cache.MarketMetricsTTL
	}

	c := &Collector{
		client:     client,
		limiter:    limiter,
		store:      store,
		snapshots:  snapshots,
		logger:     logger,
		metricsTTL: cfg.MetricsTTL,
		symbolByID: make(map[string]string),
	}
	for _, symbol := range cfg.Symbols {
		id, ok := coinIDs[symbol]
		if !ok {
			logger.Warn("no coin id mapping, symbol skipped",
				"collector", c.Name(),
				"symbol", symbol,
			)
			continue
		}
		c.ids = append(c.ids, id)
		c.symbolByID[id] = symbol
	}
	return c
}

// Name identifies the collector.
func (c *Collector) Name() string { return "coingecko" }

// Collect runs one cycle. Rows for coins that were not asked for are
// dropped rather than stored under a bogus symbol.
func (c *Collector) Collect(ctx context.Context) (int, error) {
	if len(c.ids) == 0 {
		return 0, nil
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return 0, err
	}
	rows, err := c.client.Markets(ctx, c.ids)
	if err != nil {
		return 0, err
	}

	now := time.Now().UnixMilli()
	metrics := make([]model.MarketMetrics, 0, len(rows))
	for _, row := range rows {
		symbol, ok := c.symbolByID[row.ID]
		if !ok {
			continue
		}
		metrics = append(metrics, row.toModel(symbol, now))
	}

	n, err := c.store.SaveMarketMetrics(ctx, metrics)
	if err != nil {
		return 0, fmt.Errorf("save: %w", err)
	}

	for _, m := range metrics {
		c.writeSnapshot(ctx, m)
	}

	c.logger.Debug("collection cycle complete",
		"collector", c.Name(),
		"records", n,
	)
	return n, nil
}

// CollectHistorical backfills daily metric rows per coin from the
// market chart endpoint.
func (c *Collector) CollectHistorical(ctx context.Context, days int) (int, error) {
	total := 0
	for _, id := range c.ids {
		if err := c.limiter.Acquire(ctx); err != nil {
			return total, err
		}
		chart, err := c.client.MarketChart(ctx, id, days)
		if err != nil {
			return total, fmt.Errorf("backfill %s: %w", id, err)
		}

		rows := chartToMetrics(c.symbolByID[id], id, chart)
		n, err := c.store.SaveMarketMetrics(ctx, rows)
		if err != nil {
			return total, fmt.Errorf("save %s: %w", id, err)
		}
		total += n

		c.logger.Info("backfill complete",
			"collector", c.Name(),
			"coin", id,
			"records", n,
		)
	}
	return total, nil
}

// writeSnapshot is best effort: cache failures only warn.
func (c *Collector) writeSnapshot(ctx context.Context, m model.MarketMetrics) {
	if c.snapshots == nil {
		return
	}
	key := cache.MarketMetricsKey(m.Symbol)
	if err := c.snapshots.SetJSON(ctx, key, m, c.metricsTTL); err != nil {
		c.logger.Warn("snapshot write failed", "key", key, "error", err)
	}
}
