// Package cache implements the Redis snapshot store.
//
// The cache is the sole hand-off point between collectors and stream
// sessions: collectors overwrite per-symbol snapshot keys on every
// cycle, sessions poll them. Everything here is best effort; a broken
// Redis degrades freshness, it does not take the engine down.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot TTLs per key family.
const (
	TickerTTL        = 60 * time.Second
	OrderBookTTL     = 30 * time.Second
	CandlesTTL       = 5 * time.Minute
	MarketMetricsTTL = 5 * time.Minute
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Cache wraps a go-redis client with JSON snapshot operations.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New creates a cache client.
func New(cfg Config, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{rdb: rdb, logger: logger}
}

// Ping verifies the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// SetJSON marshals v and stores it under key with the given TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Snapshot returns the raw JSON stored under key. Misses and transient
// Redis errors both read as absent; errors are logged, not surfaced.
func (c *Cache) Snapshot(ctx context.Context, key string) (json.RawMessage, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache get failed", "key", key, "err", err)
		}
		return nil, false
	}
	return json.RawMessage(data), true
}

// ---- Keys ----

// TickerKey returns the snapshot key for a symbol's ticker.
func TickerKey(symbol string) string {
	return "ticker:" + strings.ToUpper(symbol)
}

// OrderBookKey returns the snapshot key for a symbol's order book.
func OrderBookKey(symbol string) string {
	return "orderbook:" + strings.ToUpper(symbol)
}

// CandlesKey returns the snapshot key for a symbol's candles at one
// bar interval.
func CandlesKey(symbol, interval string) string {
	return "candles:" + strings.ToUpper(symbol) + ":" + interval
}

// MarketMetricsKey returns the snapshot key for a symbol's market-wide
// metrics.
func MarketMetricsKey(symbol string) string {
	return "market_metrics:" + strings.ToUpper(symbol)
}
