package provider

import "github.com/sony/gobreaker"

// Trip thresholds shared by all provider breakers.
var (
	breakerMinRequests  = 10
	breakerFailureRatio = 0.6
)

// newBreaker builds a circuit breaker that opens once a provider shows a
// sustained failure ratio over a minimum number of requests.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: name,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return int(counts.Requests) > breakerMinRequests && ratio >= breakerFailureRatio
		},
	})
}
