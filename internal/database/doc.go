// Package database provides the PostgreSQL pool and batch persistence.
//
// The engine keeps five append-only tables:
//   - tickers: 24h rolling stats per symbol
//   - order_books: depth snapshots with bids/asks as JSONB
//   - candles: OHLCV bars per symbol and interval
//   - trades: individual fills
//   - market_metrics: market-wide stats from Coingecko
//
// Writes are batched with ON CONFLICT DO NOTHING so overlapping
// collection cycles deduplicate on natural keys.
package database
