package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/crypto-data/internal/auth"
	"github.com/rickgao/crypto-data/internal/broadcast"
	"github.com/rickgao/crypto-data/internal/cache"
	"github.com/rickgao/crypto-data/internal/collector"
	"github.com/rickgao/crypto-data/internal/config"
	"github.com/rickgao/crypto-data/internal/database"
	"github.com/rickgao/crypto-data/internal/metrics"
	"github.com/rickgao/crypto-data/internal/provider"
	"github.com/rickgao/crypto-data/internal/provider/binance"
	"github.com/rickgao/crypto-data/internal/provider/coingecko"
	"github.com/rickgao/crypto-data/internal/ratelimit"
	"github.com/rickgao/crypto-data/internal/server"
	"github.com/rickgao/crypto-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/engine.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Bootstrap logger until the configured one is built
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting engine",
		"version", version.Version,
		"commit", version.Commit,
		"instance", cfg.Instance,
		"config", *configPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := database.NewStore(pool, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// Connect to the snapshot cache. A broken cache degrades stream
	// freshness but does not stop the engine.
	snapshots := cache.New(cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	defer snapshots.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := snapshots.Ping(pingCtx); err != nil {
		logger.Warn("cache unreachable, snapshots disabled until it returns", "error", err)
	} else {
		logger.Info("cache connected", "addr", cfg.Redis.Addr)
	}
	pingCancel()

	// Metrics registry and engine instruments
	promReg := metrics.NewRegistry()
	m := metrics.New(promReg)

	// Per-provider rate limits
	limits := ratelimit.NewRegistry(map[string]ratelimit.Config{
		"binance":   limitFromConfig(cfg.Providers.Binance.Limit),
		"coingecko": limitFromConfig(cfg.Providers.Coingecko.Limit),
	}, limitFromConfig(cfg.DefaultLimit), ratelimit.WithLogger(logger))

	// Broadcaster for stream fan-out; supervisors publish lifecycle
	// events through it on the events channel.
	bc := broadcast.New(logger, m.BroadcastObserver())
	sink := &eventSink{bc: bc, metrics: m}

	// Binance collector
	binanceREST, err := newBinanceClient(cfg.Providers.Binance, m, logger)
	if err != nil {
		logger.Error("failed to build binance client", "error", err)
		os.Exit(1)
	}
	binanceCollector := binance.NewCollector(
		binance.NewClient(binanceREST),
		m.TimedLimiter("binance", limits.Get("binance")),
		store,
		snapshots,
		binance.CollectorConfig{
			Symbols:        cfg.Collection.Symbols,
			CandleInterval: cfg.Collection.CandleInterval,
			TickerTTL:      cfg.CacheTTLs.Ticker,
			OrderBookTTL:   cfg.CacheTTLs.OrderBook,
			CandlesTTL:     cfg.CacheTTLs.Candles,
		},
		logger,
	)

	// CoinGecko collector
	coingeckoCollector := coingecko.NewCollector(
		coingecko.NewClient(newCoingeckoClient(cfg.Providers.Coingecko, m, logger)),
		m.TimedLimiter("coingecko", limits.Get("coingecko")),
		store,
		snapshots,
		coingecko.CollectorConfig{
			Symbols:    cfg.Collection.Symbols,
			MetricsTTL: cfg.CacheTTLs.MarketMetrics,
		},
		logger,
	)

	// Supervisors
	supervisors := []*collector.Supervisor{
		collector.NewSupervisor(binanceCollector, collector.SupervisorConfig{
			Interval:   cfg.Collection.BinanceInterval,
			MaxRetries: cfg.Collection.MaxRetries,
			RetryDelay: cfg.Collection.RetryDelay,
		}, collector.WithLogger(logger), collector.WithEvents(sink)),
		collector.NewSupervisor(coingeckoCollector, collector.SupervisorConfig{
			Interval:   cfg.Collection.CoingeckoInterval,
			MaxRetries: cfg.Collection.MaxRetries,
			RetryDelay: cfg.Collection.RetryDelay,
		}, collector.WithLogger(logger), collector.WithEvents(sink)),
	}

	// Live gauges are read at scrape time
	promReg.MustRegister(metrics.NewStateCollector(
		func() []collector.Status {
			statuses := make([]collector.Status, 0, len(supervisors))
			for _, sup := range supervisors {
				statuses = append(statuses, sup.Status())
			}
			return statuses
		},
		bc.Counts,
	))

	// HTTP/WebSocket front end
	runners := make([]server.Runner, 0, len(supervisors))
	for _, sup := range supervisors {
		runners = append(runners, sup)
	}
	srv := server.New(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		AllowAnyOrigin: cfg.Server.AllowAnyOrigin,
		Heartbeat:      cfg.Stream.Heartbeat,
		TickerPush:     cfg.Stream.PushIntervals.Ticker,
		OrderBookPush:  cfg.Stream.PushIntervals.OrderBook,
		CandlesPush:    cfg.Stream.PushIntervals.Candles,
		CandleInterval: cfg.Collection.CandleInterval,
		HistoricalDays: cfg.Collection.HistoricalDays,
	}, server.Deps{
		DB:          store,
		Cache:       snapshots,
		Broadcaster: bc,
		Runners:     runners,
		Metrics:     metrics.Handler(promReg),
		Logger:      logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	// Collection loops run on gctx so a server failure stops them too.
	for _, sup := range supervisors {
		if err := sup.Start(gctx); err != nil {
			logger.Error("failed to start collector", "collector", sup.Name(), "error", err)
			os.Exit(1)
		}
	}

	g.Go(func() error { return srv.Start(gctx) })

	logger.Info("engine running",
		"instance", cfg.Instance,
		"symbols", strings.Join(cfg.Collection.Symbols, ","),
		"health_url", fmt.Sprintf("http://localhost:%d/healthz", cfg.Server.Port),
	)

	err = g.Wait()

	// Stop the loops so they deregister cleanly
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	for _, sup := range supervisors {
		if serr := sup.Stop(shutdownCtx); serr != nil {
			logger.Warn("collector stop timed out", "collector", sup.Name(), "error", serr)
		}
	}

	if err != nil {
		logger.Error("engine stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("engine stopped")
}

// newLogger builds the configured slog handler.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// limitFromConfig maps a config limit onto a registry config.
func limitFromConfig(cfg config.LimitConfig) ratelimit.Config {
	return ratelimit.Config{
		Kind:   ratelimit.Kind(cfg.Kind),
		Rate:   cfg.Rate,
		Period: cfg.Period,
	}
}

// newBinanceClient builds the Binance REST client, signing requests
// when credentials are configured.
func newBinanceClient(cfg config.ProviderConfig, m *metrics.Metrics, logger *slog.Logger) (*provider.Client, error) {
	opts := []provider.ClientOption{
		provider.WithLogger(logger),
		provider.WithTimeout(30 * time.Second),
		provider.WithRetries(3, time.Second),
		provider.WithRequestObserver(m.RequestObserver("binance")),
	}
	if cfg.APIKey != "" || cfg.APISecret != "" {
		creds, err := auth.NewCredentials(cfg.APIKey, cfg.APISecret)
		if err != nil {
			return nil, err
		}
		opts = append(opts, provider.WithCredentials(creds))
	}
	return provider.NewClient("binance", cfg.BaseURL, opts...), nil
}

// newCoingeckoClient builds the CoinGecko REST client. CoinGecko
// authenticates with a plain API key header.
func newCoingeckoClient(cfg config.ProviderConfig, m *metrics.Metrics, logger *slog.Logger) *provider.Client {
	opts := []provider.ClientOption{
		provider.WithLogger(logger),
		provider.WithTimeout(30 * time.Second),
		provider.WithRetries(3, time.Second),
		provider.WithRequestObserver(m.RequestObserver("coingecko")),
	}
	if cfg.APIKey != "" {
		opts = append(opts, provider.WithHeader("x-cg-pro-api-key", cfg.APIKey))
	}
	return provider.NewClient("coingecko", cfg.BaseURL, opts...)
}

// eventSink fans supervisor lifecycle events out to stream subscribers
// and the metrics counters.
type eventSink struct {
	bc      *broadcast.Broadcaster
	metrics *metrics.Metrics
}

func (s *eventSink) PublishEvent(_ context.Context, ev collector.Event) {
	s.metrics.ObserveEvent(ev)
	s.bc.Broadcast("events", ev)
}
