package binance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/crypto-data/internal/cache"
	"github.com/rickgao/crypto-data/internal/model"
)

// historicalPageSize is the kline page size used for backfill, the
// maximum Binance allows per request.
const historicalPageSize = 1000

// cacheDepth limits how many order book levels the hot snapshot keeps.
const cacheDepth = 10

// Limiter grants permission for one outbound request.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Store persists collected market data.
type Store interface {
	SaveTickers(ctx context.Context, rows []model.Ticker) (int, error)
	SaveOrderBooks(ctx context.Context, rows []model.OrderBook) (int, error)
	SaveCandles(ctx context.Context, rows []model.Candle) (int, error)
	SaveTrades(ctx context.Context, rows []model.Trade) (int, error)
}

// SnapshotWriter receives hot snapshots for the stream layer.
type SnapshotWriter interface {
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// CollectorConfig bundles collection parameters.
type CollectorConfig struct {
	Symbols        []string
	CandleInterval string        // bar size for kline collection (default: "1h")
	DepthLimit     int           // order book levels per side (default: 100)
	TradeLimit     int           // trades per fetch (default: 100)
	KlineLimit     int           // bars per live fetch (default: 10)
	TickerTTL      time.Duration // ticker snapshot expiry (default: cache.TickerTTL)
	OrderBookTTL   time.Duration // order book snapshot expiry (default: cache.OrderBookTTL)
	CandlesTTL     time.Duration // candle snapshot expiry (default: cache.CandlesTTL)
}

// Collector gathers spot market data from Binance one cycle at a time.
type Collector struct {
	client    *Client
	limiter   Limiter
	store     Store
	snapshots SnapshotWriter
	logger    *slog.Logger
	cfg       CollectorConfig
}

// NewCollector creates a Binance collector. snapshots may be nil when no
// hot cache is wired in.
func NewCollector(client *Client, limiter Limiter, store Store, snapshots SnapshotWriter, cfg CollectorConfig, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CandleInterval == "" {
		cfg.CandleInterval = "1h"
	}
	if cfg.DepthLimit <= 0 {
		cfg.DepthLimit = 100
	}
	if cfg.TradeLimit <= 0 {
		cfg.TradeLimit = 100
	}
	if cfg.KlineLimit <= 0 {
		cfg.KlineLimit = 10
	}
	if cfg.TickerTTL <= 0 {
		cfg.TickerTTL = cache.TickerTTL
	}
	if cfg.OrderBookTTL <= 0 {
		cfg.OrderBookTTL = cache.OrderBookTTL
	}
	if cfg.CandlesTTL <= 0 {
		cfg.CandlesTTL = cache.CandlesTTL
	}

	return &Collector{
		client:    client,
		limiter:   limiter,
		store:     store,
		snapshots: snapshots,
		logger:    logger,
		cfg:       cfg,
	}
}

// Name identifies the collector.
func (c *Collector) Name() string { return "binance" }

// Collect runs one cycle: tickers, order books, trades, and candles for
// every configured symbol. Individual request failures are logged and
// skipped; the cycle only fails as a whole when every request failed or
// the context is done.
func (c *Collector) Collect(ctx context.Context) (int, error) {
	phases := []struct {
		name string
		fn   func(context.Context, string) (int, error)
	}{
		{"ticker", c.collectTicker},
		{"orderbook", c.collectOrderBook},
		{"trades", c.collectTrades},
		{"candles", c.collectCandles},
	}

	var total, requests, failures int
	for _, phase := range phases {
		for _, symbol := range c.cfg.Symbols {
			requests++
			n, err := phase.fn(ctx, symbol)
			if err != nil {
				if ctx.Err() != nil {
					return total, ctx.Err()
				}
				failures++
				c.logger.Warn("collection failed",
					"collector", c.Name(),
					"phase", phase.name,
					"symbol", symbol,
					"error", err,
				)
				continue
			}
			total += n
		}
	}

	if requests > 0 && failures == requests {
		return total, fmt.Errorf("binance: all %d requests failed", failures)
	}

	c.logger.Debug("collection cycle complete",
		"collector", c.Name(),
		"records", total,
		"failures", failures,
	)
	return total, nil
}

// CollectHistorical backfills candles for every configured symbol,
// paging forward from days ago until the stream catches up to now.
func (c *Collector) CollectHistorical(ctx context.Context, days int) (int, error) {
	start := time.Now().AddDate(0, 0, -days).UnixMilli()

	total := 0
	for _, symbol := range c.cfg.Symbols {
		n, err := c.backfillSymbol(ctx, symbol, start)
		total += n
		if err != nil {
			return total, fmt.Errorf("backfill %s: %w", symbol, err)
		}
		c.logger.Info("backfill complete",
			"collector", c.Name(),
			"symbol", symbol,
			"interval", c.cfg.CandleInterval,
			"records", n,
		)
	}
	return total, nil
}

func (c *Collector) collectTicker(ctx context.Context, symbol string) (int, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return 0, err
	}
	ticker, err := c.client.Ticker24h(ctx, symbol)
	if err != nil {
		return 0, err
	}

	n, err := c.store.SaveTickers(ctx, []model.Ticker{ticker})
	if err != nil {
		return 0, fmt.Errorf("save: %w", err)
	}

	c.writeSnapshot(ctx, cache.TickerKey(symbol), ticker, c.cfg.TickerTTL)
	return n, nil
}

func (c *Collector) collectOrderBook(ctx context.Context, symbol string) (int, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return 0, err
	}
	book, err := c.client.Depth(ctx, symbol, c.cfg.DepthLimit)
	if err != nil {
		return 0, err
	}

	n, err := c.store.SaveOrderBooks(ctx, []model.OrderBook{book})
	if err != nil {
		return 0, fmt.Errorf("save: %w", err)
	}

	c.writeSnapshot(ctx, cache.OrderBookKey(symbol), trimBook(book), c.cfg.OrderBookTTL)
	return n, nil
}

func (c *Collector) collectTrades(ctx context.Context, symbol string) (int, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return 0, err
	}
	trades, err := c.client.RecentTrades(ctx, symbol, c.cfg.TradeLimit)
	if err != nil {
		return 0, err
	}

	n, err := c.store.SaveTrades(ctx, trades)
	if err != nil {
		return 0, fmt.Errorf("save: %w", err)
	}
	return n, nil
}

func (c *Collector) collectCandles(ctx context.Context, symbol string) (int, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return 0, err
	}
	candles, err := c.client.Klines(ctx, symbol, c.cfg.CandleInterval, c.cfg.KlineLimit, 0)
	if err != nil {
		return 0, err
	}

	n, err := c.store.SaveCandles(ctx, candles)
	if err != nil {
		return 0, fmt.Errorf("save: %w", err)
	}

	c.writeSnapshot(ctx, cache.CandlesKey(symbol, c.cfg.CandleInterval), candles, c.cfg.CandlesTTL)
	return n, nil
}

// backfillSymbol pages klines forward from start until a fetch comes
// back short, meaning the stream has caught up to now.
func (c *Collector) backfillSymbol(ctx context.Context, symbol string, start int64) (int, error) {
	total := 0
	for {
		if err := c.limiter.Acquire(ctx); err != nil {
			return total, err
		}
		candles, err := c.client.Klines(ctx, symbol, c.cfg.CandleInterval, historicalPageSize, start)
		if err != nil {
			return total, err
		}
		if len(candles) == 0 {
			return total, nil
		}

		n, err := c.store.SaveCandles(ctx, candles)
		if err != nil {
			return total, fmt.Errorf("save: %w", err)
		}
		total += n

		if len(candles) < historicalPageSize {
			return total, nil
		}
		start = candles[len(candles)-1].CloseTime + 1
	}
}

// writeSnapshot is best effort: stream consumers tolerate a stale or
// missing snapshot, so cache failures only warn.
func (c *Collector) writeSnapshot(ctx context.Context, key string, v any, ttl time.Duration) {
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.SetJSON(ctx, key, v, ttl); err != nil {
		c.logger.Warn("snapshot write failed", "key", key, "error", err)
	}
}

// trimBook keeps the top levels of each side for the hot snapshot.
func trimBook(book model.OrderBook) model.OrderBook {
	if len(book.Bids) > cacheDepth {
		book.Bids = book.Bids[:cacheDepth]
	}
	if len(book.Asks) > cacheDepth {
		book.Asks = book.Asks[:cacheDepth]
	}
	return book
}
