package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/crypto-data/internal/collector"
)

// StateCollector exports gauges computed from live engine state. Both
// sources are polled on every scrape.
type StateCollector struct {
	statuses func() []collector.Status
	counts   func() map[string]int

	running     *prometheus.Desc
	retryCount  *prometheus.Desc
	subscribers *prometheus.Desc
}

// NewStateCollector builds a scrape-time collector over supervisor
// statuses and per-channel subscriber counts. Either source may be nil.
func NewStateCollector(statuses func() []collector.Status, counts func() map[string]int) *StateCollector {
	return &StateCollector{
		statuses: statuses,
		counts:   counts,
		running: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "collector_running"),
			"Whether the collector loop is running.",
			[]string{"collector"}, nil,
		),
		retryCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "collector_retry_count"),
			"Consecutive failed cycles for the collector.",
			[]string{"collector"}, nil,
		),
		subscribers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "broadcast_subscribers"),
			"Current stream subscribers per channel.",
			[]string{"channel"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.running
	ch <- c.retryCount
	ch <- c.subscribers
}

// Collect implements prometheus.Collector.
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	if c.statuses != nil {
		for _, st := range c.statuses() {
			running := 0.0
			if st.Running {
				running = 1.0
			}
			ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running, st.Name)
			ch <- prometheus.MustNewConstMetric(c.retryCount, prometheus.GaugeValue, float64(st.RetryCount), st.Name)
		}
	}
	if c.counts != nil {
		for channel, n := range c.counts() {
			ch <- prometheus.MustNewConstMetric(c.subscribers, prometheus.GaugeValue, float64(n), channel)
		}
	}
}
