// Package provider implements the shared REST plumbing for market data
// providers: retries with jittered backoff, a per-provider circuit breaker,
// optional HMAC request signing, and request observation hooks.
//
// Concrete providers live in subpackages:
//   - binance: spot tickers, order books, klines, trades
//   - coingecko: coin-level market metrics
package provider
