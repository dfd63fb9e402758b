package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rickgao/crypto-data/internal/broadcast"
	"github.com/rickgao/crypto-data/internal/cache"
)

// handleStream upgrades the connection and runs a session for one
// snapshot channel. The handler blocks for the life of the connection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, symbol := vars["kind"], vars["symbol"]

	channel, push, ok := s.channelFor(kind, symbol, r.URL.Query().Get("interval"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown stream kind: "+kind)
		return
	}

	s.runSession(w, r, channel, push, s.snapshots)
}

// handleEventStream serves collector lifecycle events. The events
// channel has no cached snapshot behind it; subscribers only see what
// is broadcast while they are connected.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	s.runSession(w, r, "events", time.Second, nil)
}

// handleStreamStatus reports live subscriber counts.
func (s *Server) handleStreamStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"total_connections": s.bc.TotalCount(),
		"channels":          s.bc.Counts(),
	})
}

func (s *Server) runSession(w http.ResponseWriter, r *http.Request, channel string, push time.Duration, source broadcast.SnapshotSource) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the handshake error.
		s.logger.Warn("websocket upgrade failed", "channel", channel, "err", err)
		return
	}

	sess := broadcast.NewSession(
		broadcast.SessionConfig{
			Channel:      channel,
			Heartbeat:    s.cfg.Heartbeat,
			PushInterval: push,
		},
		broadcast.NewWSTransport(conn, broadcast.DefaultWSConfig()),
		source,
		s.bc,
		s.logger,
		s.clock,
	)

	if err := sess.Run(s.lifetime()); err != nil {
		s.logger.Debug("stream session ended", "channel", channel, "err", err)
	}
}

// channelFor maps a stream kind to its registry channel and push
// interval. The channel doubles as the snapshot cache key.
func (s *Server) channelFor(kind, symbol, interval string) (string, time.Duration, bool) {
	switch kind {
	case "ticker":
		return cache.TickerKey(symbol), s.cfg.TickerPush, true
	case "orderbook":
		return cache.OrderBookKey(symbol), s.cfg.OrderBookPush, true
	case "candles":
		if interval == "" {
			interval = s.cfg.CandleInterval
		}
		return cache.CandlesKey(symbol, interval), s.cfg.CandlesPush, true
	}
	return "", 0, false
}
