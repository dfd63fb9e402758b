package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SupervisorConfig holds supervisor configuration.
type SupervisorConfig struct {
	Interval   time.Duration // Poll period (default: 1m)
	MaxRetries int           // Consecutive failures before the loop halts (default: 3)
	RetryDelay time.Duration // Sleep after a failed cycle (default: 5s)
}

// DefaultSupervisorConfig returns sensible defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		Interval:   time.Minute,
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
	}
}

// Supervisor runs one collector on a poll loop with a bounded retry budget.
// Its lifecycle is Stopped -> Running -> Stopped; a halted loop can be
// started again.
type Supervisor struct {
	cfg       SupervisorConfig
	collector Collector
	logger    *slog.Logger
	clock     clockwork.Clock
	events    EventPublisher

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	runs       int64
	failures   int64
	retryCount int
	total      int64
	lastCount  int
	lastRun    time.Time
	lastErr    string
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithClock sets the clock used for interval and retry sleeps.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Supervisor) {
		s.clock = clock
	}
}

// WithEvents sets the lifecycle event publisher.
func WithEvents(p EventPublisher) Option {
	return func(s *Supervisor) {
		s.events = p
	}
}

// NewSupervisor creates a supervisor for the given collector.
func NewSupervisor(c Collector, cfg SupervisorConfig, opts ...Option) *Supervisor {
	def := DefaultSupervisorConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}

	s := &Supervisor{
		cfg:       cfg,
		collector: c,
		logger:    slog.Default(),
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the underlying collector's name.
func (s *Supervisor) Name() string {
	return s.collector.Name()
}

// Collector returns the supervised collector, for one-shot operations such
// as historical backfills.
func (s *Supervisor) Collector() Collector {
	return s.collector
}

// Start begins the collection loop. Starting a running supervisor is a no-op.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug("collector already running", "collector", s.Name())
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.running = true
	s.retryCount = 0
	s.mu.Unlock()

	s.logger.Info("collector started",
		"collector", s.Name(),
		"interval", s.cfg.Interval,
		"max_retries", s.cfg.MaxRetries,
	)
	// Published before the loop spawns so the started event always
	// precedes the first cycle event.
	s.publish(ctx, Event{Type: EventStarted})

	go s.run(runCtx, done)
	return nil
}

// Stop cancels the loop and waits for it to exit, bounded by ctx.
// Stopping a stopped supervisor is a no-op.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
		s.logger.Info("collector stopped", "collector", s.Name())
		s.publish(ctx, Event{Type: EventStopped})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the loop is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns a snapshot of the supervisor state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Name:         s.collector.Name(),
		Running:      s.running,
		Runs:         s.runs,
		Failures:     s.failures,
		RetryCount:   s.retryCount,
		TotalRecords: s.total,
		LastCount:    s.lastCount,
		LastRun:      s.lastRun,
		LastError:    s.lastErr,
	}
}

// run is the collection loop.
func (s *Supervisor) run(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	for {
		start := s.clock.Now()
		n, err := s.collector.Collect(ctx)

		switch {
		case ctx.Err() != nil:
			// Shutdown, not a failure.
			return

		case err == nil:
			s.recordSuccess(n)
			s.logger.Info("collection cycle complete",
				"collector", s.Name(),
				"records", n,
				"duration", s.clock.Since(start),
			)
			s.publish(ctx, Event{Type: EventCycle, Records: n})

			if !s.sleep(ctx, s.cfg.Interval) {
				return
			}

		default:
			retry, halt := s.recordFailure(err)
			s.logger.Warn("collection cycle failed",
				"collector", s.Name(),
				"retry", retry,
				"max_retries", s.cfg.MaxRetries,
				"err", err,
			)
			s.publish(ctx, Event{Type: EventError, Error: err.Error()})

			if halt {
				s.logger.Error("collector halted after repeated failures",
					"collector", s.Name(),
					"failures", retry,
				)
				s.publish(ctx, Event{Type: EventHalted, Error: err.Error()})
				return
			}

			if !s.sleep(ctx, s.cfg.RetryDelay) {
				return
			}
		}
	}
}

func (s *Supervisor) recordSuccess(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.retryCount = 0
	s.total += int64(n)
	s.lastCount = n
	s.lastRun = s.clock.Now()
	s.lastErr = ""
}

func (s *Supervisor) recordFailure(err error) (retry int, halt bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.failures++
	s.retryCount++
	s.lastRun = s.clock.Now()
	s.lastErr = err.Error()
	return s.retryCount, s.retryCount >= s.cfg.MaxRetries
}

// sleep waits for d, returning false when ctx ends the wait.
func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func (s *Supervisor) publish(ctx context.Context, ev Event) {
	if s.events == nil {
		return
	}
	ev.Collector = s.Name()
	ev.TS = s.clock.Now().UnixMilli()
	s.events.PublishEvent(ctx, ev)
}
