package collector

import (
	"context"
	"time"
)

// Collector fetches one cycle of market data from a provider.
type Collector interface {
	// Name identifies the collector (e.g., "binance").
	Name() string

	// Collect runs one collection cycle and reports how many records were
	// stored. A nil error with a zero count is a valid empty cycle.
	Collect(ctx context.Context) (int, error)

	// CollectHistorical backfills the given number of days and reports how
	// many records were stored.
	CollectHistorical(ctx context.Context, days int) (int, error)
}

// Event types published by a supervisor.
const (
	EventStarted = "started"
	EventStopped = "stopped"
	EventCycle   = "cycle"
	EventError   = "error"
	EventHalted  = "halted"
)

// Event is a lifecycle notification for stream subscribers.
type Event struct {
	Type      string `json:"type"`
	Collector string `json:"collector"`
	Records   int    `json:"records,omitempty"`
	Error     string `json:"error,omitempty"`
	TS        int64  `json:"ts"` // ms since epoch
}

// EventPublisher receives supervisor lifecycle events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev Event)
}

// Status is a point-in-time snapshot of a supervisor.
type Status struct {
	Name         string    `json:"name"`
	Running      bool      `json:"running"`
	Runs         int64     `json:"runs"`
	Failures     int64     `json:"failures"`
	RetryCount   int       `json:"retry_count"`
	TotalRecords int64     `json:"total_records"`
	LastCount    int       `json:"last_count"`
	LastRun      time.Time `json:"last_run"`
	LastError    string    `json:"last_error,omitempty"`
}
