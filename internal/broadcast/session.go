package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Envelope is the wire frame for structured session messages.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// SnapshotSource hands out the latest cached snapshot for a channel key.
type SnapshotSource interface {
	Snapshot(ctx context.Context, key string) (json.RawMessage, bool)
}

// SessionConfig configures one stream session.
type SessionConfig struct {
	Channel      string        // Registry channel, doubles as the cache key
	Heartbeat    time.Duration // Inbound wait per loop turn (default: 30s)
	PushInterval time.Duration // Pause between loop turns (default: 1s)
	InboundRate  float64       // Probe replies admitted per second (default: 5)
	InboundBurst int           // Probe reply burst allowance (default: 10)
}

// Session ties one transport to one channel subscription and drives the
// heartbeat / cache-push loop for that connection.
type Session struct {
	id        string
	cfg       SessionConfig
	kind      string
	transport Transport
	source    SnapshotSource
	bc        *Broadcaster
	logger    *slog.Logger
	clock     clockwork.Clock
	inbound   *rate.Limiter
}

// NewSession creates a session for an accepted transport. source may be
// nil for channels that have no cached snapshot behind them.
func NewSession(cfg SessionConfig, t Transport, source SnapshotSource, bc *Broadcaster, logger *slog.Logger, clock clockwork.Clock) *Session {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 30 * time.Second
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = time.Second
	}
	if cfg.InboundRate <= 0 {
		cfg.InboundRate = 5
	}
	if cfg.InboundBurst < 1 {
		cfg.InboundBurst = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	// The envelope type is the channel's kind prefix, "ticker" for
	// "ticker:BTCUSDT".
	kind := cfg.Channel
	if i := strings.IndexByte(cfg.Channel, ':'); i > 0 {
		kind = cfg.Channel[:i]
	}

	return &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		kind:      kind,
		transport: t,
		source:    source,
		bc:        bc,
		logger:    logger,
		clock:     clock,
		inbound:   rate.NewLimiter(rate.Limit(cfg.InboundRate), cfg.InboundBurst),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// SendJSON implements Subscriber by writing straight to the transport.
func (s *Session) SendJSON(v any) error {
	return s.transport.SendJSON(v)
}

// Run registers the session and drives its loop until the peer goes
// away, a send fails, or ctx is cancelled. The transport is closed and
// the session deregistered on the way out.
func (s *Session) Run(ctx context.Context) error {
	s.bc.Connect(s.cfg.Channel, s)
	defer func() {
		s.bc.Disconnect(s.cfg.Channel, s)
		s.transport.Close()
	}()

	s.logger.Info("stream session open", "channel", s.cfg.Channel, "session", s.id)

	// Initial push, when the cache already has a snapshot.
	if err := s.pushSnapshot(ctx); err != nil {
		return err
	}

	for {
		msg, err := s.transport.ReceiveText(s.cfg.Heartbeat)
		switch {
		case err == nil:
			// Probe replies are rate limited; all other inbound
			// content is ignored.
			if msg == "ping" && s.inbound.Allow() {
				if werr := s.transport.SendText("pong"); werr != nil {
					return fmt.Errorf("send pong: %w", werr)
				}
			}

		case errors.Is(err, ErrTimeout):
			if werr := s.sendHeartbeat(); werr != nil {
				return fmt.Errorf("send heartbeat: %w", werr)
			}

		case errors.Is(err, ErrClosed):
			s.logger.Info("stream session closed by peer", "channel", s.cfg.Channel, "session", s.id)
			return nil

		default:
			return fmt.Errorf("receive: %w", err)
		}

		if err := s.pushSnapshot(ctx); err != nil {
			return err
		}
		if !s.sleep(ctx) {
			return nil
		}
	}
}

// pushSnapshot sends the latest cached snapshot for the channel, when
// one exists.
func (s *Session) pushSnapshot(ctx context.Context) error {
	if s.source == nil {
		return nil
	}
	snap, ok := s.source.Snapshot(ctx, s.cfg.Channel)
	if !ok {
		return nil
	}

	env := Envelope{
		Type:      s.kind,
		Data:      snap,
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.transport.SendJSON(env); err != nil {
		return fmt.Errorf("push snapshot: %w", err)
	}
	return nil
}

func (s *Session) sendHeartbeat() error {
	return s.transport.SendJSON(Envelope{
		Type:      "heartbeat",
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339Nano),
	})
}

// sleep waits the push interval, returning false when ctx ends the wait.
func (s *Session) sleep(ctx context.Context) bool {
	timer := s.clock.NewTimer(s.cfg.PushInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
