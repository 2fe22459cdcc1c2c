package resilience

// HealthStatus is a point-in-time view of one circuit breaker.
type HealthStatus struct {
	// Name is the breaker name.
	Name string `json:"name"`

	// Healthy is false only while the circuit is open.
	Healthy bool `json:"healthy"`

	// State is "closed", "half-open" or "open".
	State string `json:"state"`

	// FailureRate is the failure percentage of the current window.
	FailureRate float64 `json:"failure_rate"`

	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"total_successes"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
}

func newHealthStatus(name string, state CircuitBreakerState, counts CircuitBreakerCounts) HealthStatus {
	return HealthStatus{
		Name:                 name,
		Healthy:              state != StateOpen,
		State:                state.String(),
		FailureRate:          counts.FailureRate(),
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
	}
}
