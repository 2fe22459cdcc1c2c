package resilience

import (
	"log/slog"
	"time"
)

// RetryConfig holds retry configuration options.
type RetryConfig struct {
	// ErrorClassifier determines which errors should trigger retries.
	// Default: TransientClassifier
	ErrorClassifier ErrorClassifier

	// Logger for retry operations.
	// Default: slog.Default()
	Logger *slog.Logger

	// MaxTries is the maximum number of attempts, including the first one.
	// Default: 2
	MaxTries int

	// Interval is the constant wait between two attempts.
	// Default: 1 second
	Interval time.Duration

	// Timeout is the wall-clock ceiling for all attempts and waits together.
	// Zero disables the ceiling.
	// Default: 16 seconds
	Timeout time.Duration

	// ThrowOriginal surfaces the last underlying failure after the final attempt
	// instead of ErrRetriesExhausted / ErrRetryTimeout.
	// Default: true
	ThrowOriginal bool
}

// RetryOption is a functional option for configuring retry behavior.
type RetryOption func(*RetryConfig)

// WithMaxTries sets the maximum number of attempts, including the first one.
//
// Example:
//
//	resilience.WithMaxTries(3) // one call plus up to two retries
func WithMaxTries(tries int) RetryOption {
	return func(c *RetryConfig) {
		c.MaxTries = tries
	}
}

// WithInterval sets the wait between attempts.
func WithInterval(interval time.Duration) RetryOption {
	return func(c *RetryConfig) {
		c.Interval = interval
	}
}

// WithRetryTimeout sets the overall retry ceiling.
func WithRetryTimeout(timeout time.Duration) RetryOption {
	return func(c *RetryConfig) {
		c.Timeout = timeout
	}
}

// WithThrowOriginal chooses between surfacing the last underlying error (true)
// and a generic exhaustion error wrapping it (false).
func WithThrowOriginal(throwOriginal bool) RetryOption {
	return func(c *RetryConfig) {
		c.ThrowOriginal = throwOriginal
	}
}

// WithErrorClassifier sets a custom error classifier for retry decisions.
func WithErrorClassifier(classifier ErrorClassifier) RetryOption {
	return func(c *RetryConfig) {
		c.ErrorClassifier = classifier
	}
}

// WithRetryLogger sets a custom logger for retry operations.
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(c *RetryConfig) {
		c.Logger = logger
	}
}

// DefaultRetryConfig returns retry configuration with the client's defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxTries:        2,
		Interval:        time.Second,
		Timeout:         16 * time.Second,
		ThrowOriginal:   true,
		ErrorClassifier: DefaultErrorClassifier(),
		Logger:          slog.Default(),
	}
}

// CircuitBreakerConfig holds circuit breaker configuration options.
type CircuitBreakerConfig struct {
	// ErrorClassifier determines which errors count as failures.
	// Default: TransientClassifier
	ErrorClassifier CircuitBreakerErrorClassifier

	// OnStateChange is called whenever the circuit breaker changes state.
	OnStateChange func(name string, from, to CircuitBreakerState)

	// Logger for circuit breaker operations.
	// Default: slog.Default()
	Logger *slog.Logger

	// Name identifies the breaker in logs and state change callbacks.
	// Default: "resilient-client"
	Name string

	// CallTimeout bounds every call passing through the breaker. A call exceeding it
	// fails with ErrCallTimeout and counts as a failure. Zero disables the bound.
	// Default: 12 seconds
	CallTimeout time.Duration

	// Threshold is the failure percentage (0-100) at which the circuit opens.
	// Default: 80
	Threshold float64

	// CircuitDuration is how long the circuit stays open before allowing probes.
	// Default: 3 hours
	CircuitDuration time.Duration

	// Window is the measurement period of the closed state; counts reset at the
	// end of every window. Zero keeps counts until the state changes.
	// Default: 10 seconds
	Window time.Duration

	// MinRequests is the number of calls a window needs before its failure rate is judged.
	// Zero judges every window.
	// Default: 0
	MinRequests uint32

	// MaxProbes is the number of calls allowed through while half-open. That many
	// consecutive successes close the circuit.
	// Default: 1
	MaxProbes uint32
}

// CircuitBreakerOption is a functional option for configuring circuit breaker behavior.
type CircuitBreakerOption func(*CircuitBreakerConfig)

// CircuitBreakerCounts holds the internal counts of the circuit breaker.
type CircuitBreakerCounts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// FailureRate returns failures as a percentage of requests.
func (c CircuitBreakerCounts) FailureRate() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.TotalFailures) * 100 / float64(c.Requests)
}

// ShouldTrip reports whether counts observed in the current window open the circuit.
func (c *CircuitBreakerConfig) ShouldTrip(counts CircuitBreakerCounts) bool {
	if counts.Requests < c.MinRequests {
		return false
	}
	return counts.FailureRate() >= c.Threshold
}

// CircuitBreakerState represents the state of the circuit breaker.
type CircuitBreakerState int

const (
	// StateClosed means the circuit is closed and requests flow normally.
	StateClosed CircuitBreakerState = iota

	// StateHalfOpen means a limited number of probes are testing recovery.
	StateHalfOpen

	// StateOpen means the circuit is open and requests are rejected immediately.
	StateOpen
)

// String returns the string representation of the circuit breaker state.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// WithBreakerName sets the breaker name.
func WithBreakerName(name string) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Name = name
	}
}

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(timeout time.Duration) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.CallTimeout = timeout
	}
}

// WithThreshold sets the failure percentage that opens the circuit.
//
// Example:
//
//	resilience.WithThreshold(50) // open once half the calls in a window fail
func WithThreshold(percent float64) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Threshold = percent
	}
}

// WithCircuitDuration sets how long the circuit stays open.
func WithCircuitDuration(d time.Duration) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.CircuitDuration = d
	}
}

// WithWindow sets the measurement window of the closed state.
func WithWindow(window time.Duration) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Window = window
	}
}

// WithMinRequests sets the call volume needed before the failure rate is judged.
func WithMinRequests(n uint32) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.MinRequests = n
	}
}

// WithMaxProbes sets the number of half-open probes.
func WithMaxProbes(n uint32) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.MaxProbes = n
	}
}

// WithCircuitBreakerErrorClassifier sets a custom error classifier for circuit breaker decisions.
func WithCircuitBreakerErrorClassifier(classifier CircuitBreakerErrorClassifier) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.ErrorClassifier = classifier
	}
}

// WithStateChangeHandler sets a callback for circuit breaker state changes.
//
// Example:
//
//	resilience.WithStateChangeHandler(func(name string, from, to resilience.CircuitBreakerState) {
//	    log.Printf("circuit %s changed from %s to %s", name, from, to)
//	})
func WithStateChangeHandler(fn func(name string, from, to CircuitBreakerState)) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.OnStateChange = fn
	}
}

// WithCircuitBreakerLogger sets a custom logger for circuit breaker operations.
func WithCircuitBreakerLogger(logger *slog.Logger) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Logger = logger
	}
}

// DefaultCircuitBreakerConfig returns circuit breaker configuration with the client's defaults.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:            "resilient-client",
		CallTimeout:     12 * time.Second,
		Threshold:       80,
		CircuitDuration: 3 * time.Hour,
		Window:          10 * time.Second,
		MaxProbes:       1,
		ErrorClassifier: DefaultCircuitBreakerErrorClassifier(),
		Logger:          slog.Default(),
	}
}
