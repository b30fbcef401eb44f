package resilience

import "time"

// Breaker defaults sized for the capacity lookup, which sits on the quote
// and availability paths and must fail fast when the provider is down.
const (
	DefaultFailureThreshold      uint32  = 5
	DefaultMinRequestsToTrip     uint32  = 20
	DefaultFailureRatioThreshold float64 = 0.6

	DefaultMaxRequests uint32        = 2
	DefaultInterval    time.Duration = time.Minute
	DefaultTimeout     time.Duration = 15 * time.Second
)
