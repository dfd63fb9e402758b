// Package coingecko collects coin-level market metrics from the
// CoinGecko REST API.
//
// Endpoints used:
//   - /coins/markets: one batched request per cycle for all tracked coins
//   - /coins/{id}/market_chart: daily historical series for backfill
//
// Trading symbols map to CoinGecko coin identifiers through a static
// table (BTCUSDT -> bitcoin).
package coingecko
