// Package server exposes the engine over HTTP and WebSocket.
//
// The surface splits into four groups:
//
//   - /healthz and /metrics for operators
//   - /api/v1/collectors for collector control (list, start, stop,
//     one-shot historical runs)
//   - /api/v1/{ticker,orderbook,candles,market-metrics} for cached
//     snapshot reads
//   - /ws/{kind}/{symbol} for live stream sessions, plus /ws/events
//     and /ws/status
//
// Stream handlers upgrade the connection, wrap it in a transport, and
// block in the session loop until the peer leaves or the server shuts
// down. Snapshot reads never touch the database; they serve whatever
// the collectors last cached.
package server
