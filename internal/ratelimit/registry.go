package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Kind selects the limiter algorithm.
type Kind string

const (
	KindBucket Kind = "bucket"
	KindWindow Kind = "window"
)

// Config describes one limiter: Rate permits per Period.
type Config struct {
	Kind   Kind
	Rate   int
	Period time.Duration
}

// DefaultConfig is used for providers with no explicit limit.
func DefaultConfig() Config {
	return Config{Kind: KindBucket, Rate: 100, Period: time.Minute}
}

// Registry hands out one shared limiter per provider name. Limiters are
// created lazily on first use; unknown providers get the fallback config.
type Registry struct {
	configs  map[string]Config
	fallback Config
	logger   *slog.Logger
	clock    clockwork.Clock
	observe  func(provider string, wait time.Duration)

	mu       sync.Mutex
	limiters map[string]Limiter
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithClock sets the clock used by limiters the registry creates.
func WithClock(clock clockwork.Clock) RegistryOption {
	return func(r *Registry) {
		r.clock = clock
	}
}

// WithWaitObserver registers a callback receiving the blocking time of every
// Acquire made through the registry.
func WithWaitObserver(f func(provider string, wait time.Duration)) RegistryOption {
	return func(r *Registry) {
		r.observe = f
	}
}

// NewRegistry creates a registry with per-provider configs and a fallback
// for providers not listed. A zero fallback means DefaultConfig.
func NewRegistry(configs map[string]Config, fallback Config, opts ...RegistryOption) *Registry {
	if fallback == (Config{}) {
		fallback = DefaultConfig()
	}
	r := &Registry{
		configs:  make(map[string]Config, len(configs)),
		fallback: fallback,
		logger:   slog.Default(),
		clock:    clockwork.NewRealClock(),
		limiters: make(map[string]Limiter),
	}
	for name, cfg := range configs {
		r.configs[name] = cfg
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the limiter for the named provider, creating it on first use.
// The same instance is returned for every subsequent call.
func (r *Registry) Get(name string) Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[name]; ok {
		return l
	}

	cfg, ok := r.configs[name]
	if !ok {
		cfg = r.fallback
	}

	l := r.build(cfg)
	r.limiters[name] = l

	r.logger.Debug("limiter created",
		"provider", name,
		"kind", cfg.Kind,
		"rate", cfg.Rate,
		"period", cfg.Period,
	)
	return l
}

// Acquire takes one permit from the named provider's limiter.
func (r *Registry) Acquire(ctx context.Context, name string) error {
	l := r.Get(name)
	if r.observe == nil {
		return l.Acquire(ctx)
	}

	start := r.clock.Now()
	err := l.Acquire(ctx)
	r.observe(name, r.clock.Since(start))
	return err
}

func (r *Registry) build(cfg Config) Limiter {
	switch cfg.Kind {
	case KindWindow:
		return NewSlidingWindow(cfg.Rate, cfg.Period, r.clock)
	default:
		return NewTokenBucket(cfg.Rate, cfg.Period, r.clock)
	}
}
