// Package metrics provides Prometheus instruments for the engine.
//
// Key metrics:
//   - Collection cycle counts, results and stored records
//   - Rate limiter wait times per provider
//   - Provider HTTP attempts by response code
//   - Stream fan-out results and live subscriber counts
//
// Counters update through small observer callbacks handed to the owning
// components; live gauges are computed at scrape time by StateCollector.
package metrics
