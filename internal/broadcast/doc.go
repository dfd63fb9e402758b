// Package broadcast implements the subscriber registry and the
// per-connection stream sessions.
//
// The broadcaster:
//   - Groups subscribers into named channels
//   - Fans one message out to a snapshot of a channel's subscribers
//   - Drops subscribers whose sends fail in a single cleanup pass
//
// A session:
//   - Registers its transport under one channel for its lifetime
//   - Answers ping probes and emits heartbeat frames on idle turns
//   - Polls the snapshot cache and pushes fresh data to its peer
package broadcast
