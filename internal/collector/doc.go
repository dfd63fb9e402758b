// Package collector implements the supervised collection loops.
//
// Each provider collector runs under a Supervisor:
//   - Collects immediately on start, then once per interval
//   - Counts consecutive failures and halts at the retry budget
//   - Resets the failure count on any successful cycle
//   - Publishes lifecycle events for stream subscribers
package collector
