package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/rickgao/crypto-data/internal/cache"
	"github.com/rickgao/crypto-data/internal/collector"
	"github.com/rickgao/crypto-data/internal/version"
)

// handleHealth reports engine health. A broken database is unhealthy
// (503); a broken cache only degrades freshness, so it reads degraded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Version    string         `json:"version"`
		Uptime     string         `json:"uptime"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Version:    version.Version,
		Uptime:     s.clock.Since(s.started).Round(time.Second).String(),
		Components: make(map[string]any),
	}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}
	}

	if s.snapshots != nil {
		if err := s.snapshots.Ping(ctx); err != nil {
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
			health.Components["redis"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["redis"] = "connected"
		}
	}

	collectors := make(map[string]bool, len(s.runners))
	for name, run := range s.runners {
		collectors[name] = run.Running()
	}
	health.Components["collectors"] = collectors

	if s.bc != nil {
		health.Components["stream_subscribers"] = s.bc.TotalCount()
	}

	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

// handleCollectors lists every supervisor's status, in wiring order.
func (s *Server) handleCollectors(w http.ResponseWriter, r *http.Request) {
	statuses := make([]collector.Status, 0, len(s.order))
	for _, name := range s.order {
		statuses = append(statuses, s.runners[name].Status())
	}
	writeJSON(w, http.StatusOK, map[string]any{"collectors": statuses})
}

func (s *Server) handleCollectorStart(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runnerFor(w, r)
	if !ok {
		return
	}

	// The loop must outlive this request, so it runs on the server's
	// lifetime context rather than the request's.
	if err := run.Start(s.lifetime()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run.Status())
}

func (s *Server) handleCollectorStop(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runnerFor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := run.Stop(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run.Status())
}

// handleCollectorHistorical kicks off a one-shot backfill in the
// background and replies immediately with its run id.
func (s *Server) handleCollectorHistorical(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runnerFor(w, r)
	if !ok {
		return
	}

	days := s.cfg.HistoricalDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	runID := uuid.NewString()
	go func() {
		n, err := run.Collector().CollectHistorical(s.lifetime(), days)
		if err != nil {
			s.logger.Error("historical run failed",
				"collector", run.Name(),
				"run_id", runID,
				"err", err,
			)
			return
		}
		s.logger.Info("historical run complete",
			"collector", run.Name(),
			"run_id", runID,
			"records", n,
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":    runID,
		"collector": run.Name(),
		"days":      days,
	})
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	s.serveSnapshot(w, r, cache.TickerKey(mux.Vars(r)["symbol"]))
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	s.serveSnapshot(w, r, cache.OrderBookKey(mux.Vars(r)["symbol"]))
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	interval := vars["interval"]
	if interval == "" {
		interval = s.cfg.CandleInterval
	}
	s.serveSnapshot(w, r, cache.CandlesKey(vars["symbol"], interval))
}

func (s *Server) handleMarketMetrics(w http.ResponseWriter, r *http.Request) {
	s.serveSnapshot(w, r, cache.MarketMetricsKey(mux.Vars(r)["symbol"]))
}

// serveSnapshot writes the cached snapshot under key straight through,
// or 404 when nothing is cached.
func (s *Server) serveSnapshot(w http.ResponseWriter, r *http.Request, key string) {
	if s.snapshots == nil {
		writeError(w, http.StatusNotFound, "no snapshot for "+key)
		return
	}
	snap, ok := s.snapshots.Snapshot(r.Context(), key)
	if !ok {
		writeError(w, http.StatusNotFound, "no snapshot for "+key)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(snap)
}

// runnerFor resolves the {name} path var to a runner, writing a 404
// when it names nothing.
func (s *Server) runnerFor(w http.ResponseWriter, r *http.Request) (Runner, bool) {
	name := mux.Vars(r)["name"]
	run, ok := s.runners[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown collector: "+name)
		return nil, false
	}
	return run, true
}
