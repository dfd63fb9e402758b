package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/crypto-data/internal/collector"
)

const namespace = "cryptodata"

// NewRegistry creates a Prometheus registry with Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Metrics holds the engine's Prometheus instruments.
type Metrics struct {
	CollectorRuns    *prometheus.CounterVec
	CollectorRecords *prometheus.CounterVec
	RateLimitWait    *prometheus.HistogramVec
	BroadcastSends   *prometheus.CounterVec
	ProviderRequests *prometheus.CounterVec
}

// New creates and registers the engine metrics on the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CollectorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collector_runs_total",
			Help:      "Collection cycles by collector and result.",
		}, []string{"collector", "result"}),
		CollectorRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collector_records_total",
			Help:      "Records stored per collector.",
		}, []string{"collector"}),
		RateLimitWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ratelimit_wait_seconds",
			Help:      "Time spent waiting for a rate limit permit.",
			Buckets:   []float64{.001, .01, .05, .1, .5, 1, 5, 15, 60},
		}, []string{"provider"}),
		BroadcastSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_sends_total",
			Help:      "Broadcast fan-out sends by result.",
		}, []string{"result"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Provider HTTP attempts by response code.",
		}, []string{"provider", "code"}),
	}

	reg.MustRegister(
		m.CollectorRuns,
		m.CollectorRecords,
		m.RateLimitWait,
		m.BroadcastSends,
		m.ProviderRequests,
	)
	return m
}

// ObserveEvent folds a supervisor lifecycle event into the counters.
func (m *Metrics) ObserveEvent(ev collector.Event) {
	switch ev.Type {
	case collector.EventCycle:
		m.CollectorRuns.WithLabelValues(ev.Collector, "success").Inc()
		m.CollectorRecords.WithLabelValues(ev.Collector).Add(float64(ev.Records))
	case collector.EventError:
		m.CollectorRuns.WithLabelValues(ev.Collector, "failure").Inc()
	}
}

// RequestObserver returns a provider request callback that counts HTTP
// attempts per response code. A zero status means a transport failure.
func (m *Metrics) RequestObserver(provider string) func(status int) {
	return func(status int) {
		code := "error"
		if status > 0 {
			code = strconv.Itoa(status)
		}
		m.ProviderRequests.WithLabelValues(provider, code).Inc()
	}
}

// BroadcastObserver returns a fan-out callback for the broadcaster.
func (m *Metrics) BroadcastObserver() func(sent, failed int) {
	return func(sent, failed int) {
		if sent > 0 {
			m.BroadcastSends.WithLabelValues("ok").Add(float64(sent))
		}
		if failed > 0 {
			m.BroadcastSends.WithLabelValues("failed").Add(float64(failed))
		}
	}
}

// Limiter matches the rate limiter acquire contract.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// TimedLimiter wraps a limiter and observes the time each caller spends
// waiting for a permit.
func (m *Metrics) TimedLimiter(provider string, inner Limiter) Limiter {
	return &timedLimiter{
		inner:    inner,
		observer: m.RateLimitWait.WithLabelValues(provider),
	}
}

type timedLimiter struct {
	inner    Limiter
	observer prometheus.Observer
}

func (l *timedLimiter) Acquire(ctx context.Context) error {
	start := time.Now()
	err := l.inner.Acquire(ctx)
	l.observer.Observe(time.Since(start).Seconds())
	return err
}
