package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080

	DefaultDBPort    = 5432
	DefaultDBName    = "cryptodata"
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultRedisAddr = "localhost:6379"

	DefaultBinanceURL   = "https://api.binance.com"
	DefaultCoingeckoURL = "https://api.coingecko.com/api/v3"

	// Binance allows 1200 request weight per minute, Coingecko's free
	// tier roughly 50 calls per minute.
	DefaultBinanceRate   = 1200
	DefaultCoingeckoRate = 50
	DefaultLimitRate     = 100
	DefaultLimitPeriod   = time.Minute

	DefaultBinanceInterval   = time.Minute
	DefaultCoingeckoInterval = 5 * time.Minute
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = 5 * time.Second
	DefaultHistoricalDays    = 30
	DefaultCandleInterval    = "1h"

	DefaultHeartbeat     = 30 * time.Second
	DefaultTickerPush    = time.Second
	DefaultOrderBookPush = 2 * time.Second
	DefaultCandlesPush   = 5 * time.Second

	DefaultTickerTTL        = 60 * time.Second
	DefaultOrderBookTTL     = 30 * time.Second
	DefaultCandlesTTL       = 5 * time.Minute
	DefaultMarketMetricsTTL = 5 * time.Minute
)

// DefaultSymbols is the collection universe used when none is configured.
var DefaultSymbols = []string{"BTCUSDT", "ETHUSDT"}

func (c *EngineConfig) applyDefaults() {
	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.Name == "" {
		c.Database.Name = DefaultDBName
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}

	// Provider defaults
	if c.Providers.Binance.BaseURL == "" {
		c.Providers.Binance.BaseURL = DefaultBinanceURL
	}
	applyLimitDefaults(&c.Providers.Binance.Limit, "bucket", DefaultBinanceRate)
	if c.Providers.Coingecko.BaseURL == "" {
		c.Providers.Coingecko.BaseURL = DefaultCoingeckoURL
	}
	applyLimitDefaults(&c.Providers.Coingecko.Limit, "window", DefaultCoingeckoRate)
	applyLimitDefaults(&c.DefaultLimit, "bucket", DefaultLimitRate)

	// Collection defaults
	if len(c.Collection.Symbols) == 0 {
		c.Collection.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if c.Collection.BinanceInterval == 0 {
		c.Collection.BinanceInterval = DefaultBinanceInterval
	}
	if c.Collection.CoingeckoInterval == 0 {
		c.Collection.CoingeckoInterval = DefaultCoingeckoInterval
	}
	if c.Collection.MaxRetries == 0 {
		c.Collection.MaxRetries = DefaultMaxRetries
	}
	if c.Collection.RetryDelay == 0 {
		c.Collection.RetryDelay = DefaultRetryDelay
	}
	if c.Collection.HistoricalDays == 0 {
		c.Collection.HistoricalDays = DefaultHistoricalDays
	}
	if c.Collection.CandleInterval == "" {
		c.Collection.CandleInterval = DefaultCandleInterval
	}

	// Stream defaults
	if c.Stream.Heartbeat == 0 {
		c.Stream.Heartbeat = DefaultHeartbeat
	}
	if c.Stream.PushIntervals.Ticker == 0 {
		c.Stream.PushIntervals.Ticker = DefaultTickerPush
	}
	if c.Stream.PushIntervals.OrderBook == 0 {
		c.Stream.PushIntervals.OrderBook = DefaultOrderBookPush
	}
	if c.Stream.PushIntervals.Candles == 0 {
		c.Stream.PushIntervals.Candles = DefaultCandlesPush
	}

	// Cache TTL defaults
	if c.CacheTTLs.Ticker == 0 {
		c.CacheTTLs.Ticker = DefaultTickerTTL
	}
	if c.CacheTTLs.OrderBook == 0 {
		c.CacheTTLs.OrderBook = DefaultOrderBookTTL
	}
	if c.CacheTTLs.Candles == 0 {
		c.CacheTTLs.Candles = DefaultCandlesTTL
	}
	if c.CacheTTLs.MarketMetrics == 0 {
		c.CacheTTLs.MarketMetrics = DefaultMarketMetricsTTL
	}
}

func applyLimitDefaults(l *LimitConfig, kind string, rate int) {
	if l.Kind == "" {
		l.Kind = kind
	}
	if l.Rate == 0 {
		l.Rate = rate
	}
	if l.Period == 0 {
		l.Period = DefaultLimitPeriod
	}
}
