package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/rickgao/crypto-data/internal/broadcast"
	"github.com/rickgao/crypto-data/internal/collector"
)

// Config holds the HTTP listener and stream session settings.
type Config struct {
	Host           string
	Port           int           // Listen port (default: 8080)
	AllowAnyOrigin bool          // Skip the websocket origin check
	Heartbeat      time.Duration // Stream session heartbeat (default: 30s)
	TickerPush     time.Duration // Push interval for ticker streams (default: 1s)
	OrderBookPush  time.Duration // Push interval for order book streams (default: 2s)
	CandlesPush    time.Duration // Push interval for candle streams (default: 5s)
	CandleInterval string        // Bar interval when a candle stream names none (default: 1h)
	HistoricalDays int           // Days backfilled when a historical run names none (default: 30)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SnapshotCache serves cached snapshots and reports cache health.
type SnapshotCache interface {
	Pinger
	Snapshot(ctx context.Context, key string) (json.RawMessage, bool)
}

// Runner is one supervised collector under server control.
type Runner interface {
	Name() string
	Running() bool
	Status() collector.Status
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Collector() collector.Collector
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	DB          Pinger
	Cache       SnapshotCache
	Broadcaster *broadcast.Broadcaster
	Runners     []Runner
	Metrics     http.Handler // Serves /metrics when non-nil
	Logger      *slog.Logger
	Clock       clockwork.Clock
}

// Server is the engine's HTTP and WebSocket front end.
type Server struct {
	cfg       Config
	db        Pinger
	snapshots SnapshotCache
	bc        *broadcast.Broadcaster
	runners   map[string]Runner
	order     []string
	metrics   http.Handler
	logger    *slog.Logger
	clock     clockwork.Clock
	upgrader  websocket.Upgrader
	started   time.Time

	mu      sync.RWMutex
	baseCtx context.Context
}

// New creates a server over the given collaborators.
func New(cfg Config, deps Deps) *Server {
	if cfg.Port <= 0 {
		cfg.Port = 8080
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 30 * time.Second
	}
	if cfg.TickerPush <= 0 {
		cfg.TickerPush = time.Second
	}
	if cfg.OrderBookPush <= 0 {
		cfg.OrderBookPush = 2 * time.Second
	}
	if cfg.CandlesPush <= 0 {
		cfg.CandlesPush = 5 * time.Second
	}
	if cfg.CandleInterval == "" {
		cfg.CandleInterval = "1h"
	}
	if cfg.HistoricalDays <= 0 {
		cfg.HistoricalDays = 30
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	s := &Server{
		cfg:       cfg,
		db:        deps.DB,
		snapshots: deps.Cache,
		bc:        deps.Broadcaster,
		runners:   make(map[string]Runner, len(deps.Runners)),
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		clock:     deps.Clock,
		started:   deps.Clock.Now(),
	}
	for _, run := range deps.Runners {
		s.runners[run.Name()] = run
		s.order = append(s.order, run.Name())
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if cfg.AllowAnyOrigin {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return s
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/collectors", s.handleCollectors).Methods(http.MethodGet)
	api.HandleFunc("/collectors/{name}/start", s.handleCollectorStart).Methods(http.MethodPost)
	api.HandleFunc("/collectors/{name}/stop", s.handleCollectorStop).Methods(http.MethodPost)
	api.HandleFunc("/collectors/{name}/historical", s.handleCollectorHistorical).Methods(http.MethodPost)
	api.HandleFunc("/ticker/{symbol}", s.handleTicker).Methods(http.MethodGet)
	api.HandleFunc("/orderbook/{symbol}", s.handleOrderBook).Methods(http.MethodGet)
	api.HandleFunc("/candles/{symbol}", s.handleCandles).Methods(http.MethodGet)
	api.HandleFunc("/candles/{symbol}/{interval}", s.handleCandles).Methods(http.MethodGet)
	api.HandleFunc("/market-metrics/{symbol}", s.handleMarketMetrics).Methods(http.MethodGet)

	// Static /ws routes must register before the {kind} wildcard.
	r.HandleFunc("/ws/status", s.handleStreamStatus).Methods(http.MethodGet)
	r.HandleFunc("/ws/events", s.handleEventStream).Methods(http.MethodGet)
	r.HandleFunc("/ws/{kind}/{symbol}", s.handleStream).Methods(http.MethodGet)

	return r
}

// Start runs the listener until ctx is cancelled, then shuts down
// gracefully. The ctx also bounds every stream session and background
// historical run the server spawns.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// lifetime returns the server's run context. Outside Start, such as in
// tests driving Handler directly, it falls back to Background.
func (s *Server) lifetime() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
