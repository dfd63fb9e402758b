package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/crypto-data/internal/model"
)

// Store persists collected market data. All writes are batched inserts
// with ON CONFLICT DO NOTHING, so re-collected rows deduplicate on
// their natural keys instead of erroring.
type Store struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a store over the given pool.
func NewStore(db *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool { return s.db }

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// SaveTickers batch-inserts ticker rows and returns the number actually
// written.
func (s *Store) SaveTickers(ctx context.Context, rows []model.Ticker) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO tickers (symbol, exchange_ts, received_at, last_price, bid_price, ask_price, open_price, high_price, low_price, volume, quote_volume, price_change_pct, trades)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (symbol, exchange_ts) DO NOTHING
		`, tickerArgs(r)...)
	}

	inserted, err := s.runBatch(ctx, batch, len(rows))
	if err != nil {
		return 0, fmt.Errorf("insert tickers: %w", err)
	}
	s.logger.Debug("saved tickers", "inserted", inserted, "duplicates", len(rows)-inserted)
	return inserted, nil
}

// SaveOrderBooks batch-inserts order book snapshots, bids and asks as
// JSONB level arrays.
func (s *Store) SaveOrderBooks(ctx context.Context, rows []model.OrderBook) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		args, err := orderBookArgs(r)
		if err != nil {
			return 0, err
		}
		batch.Queue(`
			INSERT INTO order_books (symbol, last_update_id, bids, asks, captured_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (symbol, last_update_id) DO NOTHING
		`, args...)
	}

	inserted, err := s.runBatch(ctx, batch, len(rows))
	if err != nil {
		return 0, fmt.Errorf("insert order books: %w", err)
	}
	s.logger.Debug("saved order books", "inserted", inserted, "duplicates", len(rows)-inserted)
	return inserted, nil
}

// SaveCandles batch-inserts candle rows.
func (s *Store) SaveCandles(ctx context.Context, rows []model.Candle) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO candles (symbol, bar_interval, open_time, close_time, open, high, low, close, volume, quote_volume, trades)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (symbol, bar_interval, open_time) DO NOTHING
		`, candleArgs(r)...)
	}

	inserted, err := s.runBatch(ctx, batch, len(rows))
	if err != nil {
		return 0, fmt.Errorf("insert candles: %w", err)
	}
	s.logger.Debug("saved candles", "inserted", inserted, "duplicates", len(rows)-inserted)
	return inserted, nil
}

// SaveTrades batch-inserts trade rows.
func (s *Store) SaveTrades(ctx context.Context, rows []model.Trade) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO trades (symbol, trade_id, price, qty, quote_qty, trade_time, buyer_maker)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (symbol, trade_id) DO NOTHING
		`, tradeArgs(r)...)
	}

	inserted, err := s.runBatch(ctx, batch, len(rows))
	if err != nil {
		return 0, fmt.Errorf("insert trades: %w", err)
	}
	s.logger.Debug("saved trades", "inserted", inserted, "duplicates", len(rows)-inserted)
	return inserted, nil
}

// SaveMarketMetrics batch-inserts market-wide metric rows.
func (s *Store) SaveMarketMetrics(ctx context.Context, rows []model.MarketMetrics) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO market_metrics (symbol, coin_id, price_usd, market_cap, volume_24h, circulating_supply, total_supply, rank, price_change_24h_pct, ts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (symbol, ts) DO NOTHING
		`, marketMetricsArgs(r)...)
	}

	inserted, err := s.runBatch(ctx, batch, len(rows))
	if err != nil {
		return 0, fmt.Errorf("insert market metrics: %w", err)
	}
	s.logger.Debug("saved market metrics", "inserted", inserted, "duplicates", len(rows)-inserted)
	return inserted, nil
}

// runBatch executes the batch and counts rows the conflict clause
// swallowed.
func (s *Store) runBatch(ctx context.Context, batch *pgx.Batch, n int) (int, error) {
	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	conflicts := 0
	for i := 0; i < n; i++ {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}
	return n - conflicts, nil
}

// Decimals travel as strings so NUMERIC columns keep full precision.

func tickerArgs(t model.Ticker) []any {
	return []any{
		t.Symbol,
		t.ExchangeTS,
		t.ReceivedAt,
		t.LastPrice.String(),
		t.BidPrice.String(),
		t.AskPrice.String(),
		t.OpenPrice.String(),
		t.HighPrice.String(),
		t.LowPrice.String(),
		t.Volume.String(),
		t.QuoteVolume.String(),
		t.PriceChangePct.String(),
		t.Trades,
	}
}

func orderBookArgs(b model.OrderBook) ([]any, error) {
	bids, err := json.Marshal(b.Bids)
	if err != nil {
		return nil, fmt.Errorf("marshal bids: %w", err)
	}
	asks, err := json.Marshal(b.Asks)
	if err != nil {
		return nil, fmt.Errorf("marshal asks: %w", err)
	}
	return []any{b.Symbol, b.LastUpdateID, bids, asks, b.CapturedAt}, nil
}

func candleArgs(c model.Candle) []any {
	return []any{
		c.Symbol,
		c.Interval,
		c.OpenTime,
		c.CloseTime,
		c.Open.String(),
		c.High.String(),
		c.Low.String(),
		c.Close.String(),
		c.Volume.String(),
		c.QuoteVolume.String(),
		c.Trades,
	}
}

func tradeArgs(t model.Trade) []any {
	return []any{
		t.Symbol,
		t.TradeID,
		t.Price.String(),
		t.Qty.String(),
		t.QuoteQty.String(),
		t.Time,
		t.BuyerMaker,
	}
}

func marketMetricsArgs(m model.MarketMetrics) []any {
	return []any{
		m.Symbol,
		m.CoinID,
		m.PriceUSD.String(),
		m.MarketCap.String(),
		m.Volume24h.String(),
		m.CirculatingSupply.String(),
		m.TotalSupply.String(),
		m.Rank,
		m.PriceChange24hPct.String(),
		m.TS,
	}
}
