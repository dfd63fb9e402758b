// Package binance collects spot market data from the Binance REST API.
//
// Endpoints used:
//   - /api/v3/ticker/24hr: rolling 24h price statistics
//   - /api/v3/depth: order book snapshots
//   - /api/v3/klines: OHLCV bars, also used for historical backfill
//   - /api/v3/trades: recent public trades
//
// Numeric fields arrive as strings and are kept exact as decimals.
package binance
