package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *EngineConfig) Validate() error {
	if c.Instance == "" {
		return errors.New("instance is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}

	if c.Providers.Binance.BaseURL == "" {
		return errors.New("providers.binance.base_url is required")
	}
	if c.Providers.Coingecko.BaseURL == "" {
		return errors.New("providers.coingecko.base_url is required")
	}
	if err := c.Providers.Binance.Limit.validate("providers.binance.limit"); err != nil {
		return err
	}
	if err := c.Providers.Coingecko.Limit.validate("providers.coingecko.limit"); err != nil {
		return err
	}
	if err := c.DefaultLimit.validate("default_limit"); err != nil {
		return err
	}

	if len(c.Collection.Symbols) == 0 {
		return errors.New("collection.symbols must not be empty")
	}
	if c.Collection.MaxRetries < 1 {
		return errors.New("collection.max_retries must be >= 1")
	}
	if c.Collection.RetryDelay <= 0 {
		return errors.New("collection.retry_delay must be positive")
	}
	if c.Collection.BinanceInterval <= 0 || c.Collection.CoingeckoInterval <= 0 {
		return errors.New("collection intervals must be positive")
	}
	if c.Collection.HistoricalDays < 1 {
		return errors.New("collection.historical_days must be >= 1")
	}

	if c.Stream.Heartbeat <= 0 {
		return errors.New("stream.heartbeat must be positive")
	}

	return nil
}

func (db *DatabaseConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (l *LimitConfig) validate(prefix string) error {
	if l.Kind != "bucket" && l.Kind != "window" {
		return fmt.Errorf("%s.kind must be bucket or window, got %q", prefix, l.Kind)
	}
	if l.Rate < 1 {
		return fmt.Errorf("%s.rate must be >= 1", prefix)
	}
	if l.Period <= 0 {
		return fmt.Errorf("%s.period must be positive", prefix)
	}
	return nil
}
