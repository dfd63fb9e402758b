// Package config loads, defaults, and validates engine configuration.
package config

import "time"

// EngineConfig is the root configuration for an engine instance.
type EngineConfig struct {
	Instance     string           `yaml:"instance"`
	Logging      LoggingConfig    `yaml:"logging"`
	Server       ServerConfig     `yaml:"server"`
	Database     DatabaseConfig   `yaml:"database"`
	Redis        RedisConfig      `yaml:"redis"`
	Providers    ProvidersConfig  `yaml:"providers"`
	DefaultLimit LimitConfig      `yaml:"default_limit"`
	Collection   CollectionConfig `yaml:"collection"`
	Stream       StreamConfig     `yaml:"stream"`
	CacheTTLs    CacheTTLConfig   `yaml:"cache_ttls"`
}

// LoggingConfig holds slog handler settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AllowAnyOrigin bool   `yaml:"allow_any_origin"` // skip the websocket origin check
}

// DatabaseConfig holds the PostgreSQL connection.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds the snapshot cache connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProvidersConfig holds the upstream data sources.
type ProvidersConfig struct {
	Binance   ProviderConfig `yaml:"binance"`
	Coingecko ProviderConfig `yaml:"coingecko"`
}

// ProviderConfig holds one upstream data source.
type ProviderConfig struct {
	BaseURL   string      `yaml:"base_url"`
	APIKey    string      `yaml:"api_key"`
	APISecret string      `yaml:"api_secret"`
	Limit     LimitConfig `yaml:"limit"`
}

// LimitConfig holds one rate limiter's settings.
type LimitConfig struct {
	Kind   string        `yaml:"kind"` // "bucket" or "window"
	Rate   int           `yaml:"rate"`
	Period time.Duration `yaml:"period"`
}

// CollectionConfig holds collector loop settings.
type CollectionConfig struct {
	Symbols           []string      `yaml:"symbols"`
	BinanceInterval   time.Duration `yaml:"binance_interval"`
	CoingeckoInterval time.Duration `yaml:"coingecko_interval"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	HistoricalDays    int           `yaml:"historical_days"`
	CandleInterval    string        `yaml:"candle_interval"`
}

// StreamConfig holds per-connection stream session settings.
type StreamConfig struct {
	Heartbeat     time.Duration `yaml:"heartbeat"`
	PushIntervals PushIntervals `yaml:"push_intervals"`
}

// PushIntervals holds the per-channel-kind pause between push turns.
type PushIntervals struct {
	Ticker    time.Duration `yaml:"ticker"`
	OrderBook time.Duration `yaml:"orderbook"`
	Candles   time.Duration `yaml:"candles"`
}

// CacheTTLConfig holds snapshot expiry per key family.
type CacheTTLConfig struct {
	Ticker        time.Duration `yaml:"ticker"`
	OrderBook     time.Duration `yaml:"orderbook"`
	Candles       time.Duration `yaml:"candles"`
	MarketMetrics time.Duration `yaml:"market_metrics"`
}
