package database

import (
	"context"
	"fmt"
)

// One statement per entry. pgx's extended protocol rejects
// multi-statement scripts.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tickers (
		symbol TEXT NOT NULL,
		exchange_ts BIGINT NOT NULL,
		received_at BIGINT NOT NULL,
		last_price NUMERIC NOT NULL,
		bid_price NUMERIC,
		ask_price NUMERIC,
		open_price NUMERIC,
		high_price NUMERIC,
		low_price NUMERIC,
		volume NUMERIC,
		quote_volume NUMERIC,
		price_change_pct NUMERIC,
		trades BIGINT,
		PRIMARY KEY (symbol, exchange_ts)
	)`,
	`CREATE TABLE IF NOT EXISTS order_books (
		symbol TEXT NOT NULL,
		last_update_id BIGINT NOT NULL,
		bids JSONB NOT NULL,
		asks JSONB NOT NULL,
		captured_at BIGINT NOT NULL,
		PRIMARY KEY (symbol, last_update_id)
	)`,
	`CREATE TABLE IF NOT EXISTS candles (
		symbol TEXT NOT NULL,
		bar_interval TEXT NOT NULL,
		open_time BIGINT NOT NULL,
		close_time BIGINT NOT NULL,
		open NUMERIC NOT NULL,
		high NUMERIC NOT NULL,
		low NUMERIC NOT NULL,
		close NUMERIC NOT NULL,
		volume NUMERIC,
		quote_volume NUMERIC,
		trades BIGINT,
		PRIMARY KEY (symbol, bar_interval, open_time)
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		symbol TEXT NOT NULL,
		trade_id BIGINT NOT NULL,
		price NUMERIC NOT NULL,
		qty NUMERIC NOT NULL,
		quote_qty NUMERIC,
		trade_time BIGINT NOT NULL,
		buyer_maker BOOLEAN,
		PRIMARY KEY (symbol, trade_id)
	)`,
	`CREATE TABLE IF NOT EXISTS market_metrics (
		symbol TEXT NOT NULL,
		coin_id TEXT,
		price_usd NUMERIC,
		market_cap NUMERIC,
		volume_24h NUMERIC,
		circulating_supply NUMERIC,
		total_supply NUMERIC,
		rank INT,
		price_change_24h_pct NUMERIC,
		ts BIGINT NOT NULL,
		PRIMARY KEY (symbol, ts)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickers_received_at ON tickers (received_at)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_trade_time ON trades (trade_time)`,
	`CREATE INDEX IF NOT EXISTS idx_candles_open_time ON candles (open_time)`,
}

// EnsureSchema creates the engine's tables and indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
