package resilience

import (
	"context"
	"errors"

	pkgerrors "github.com/JohnPlummer/jp-go-errors"
)

var (
	// ErrCircuitOpen is returned without calling the wrapped client while the circuit is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyProbes is returned when the half-open probe budget is already in use.
	ErrTooManyProbes = errors.New("circuit breaker half-open probe limit reached")

	// ErrCallTimeout is returned when a single call outlives the breaker's per-call timeout.
	ErrCallTimeout = errors.New("call timed out")

	// ErrRetriesExhausted wraps the last failure when every attempt failed and
	// ThrowOriginal is off.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrRetryTimeout is returned when the overall retry ceiling elapsed and
	// there is no original error to surface.
	ErrRetryTimeout = errors.New("retry timeout exceeded")

	// ErrInvalidMaxTries is returned by RetryWrapper.Execute when MaxTries < 1.
	ErrInvalidMaxTries = errors.New("max tries must be positive")
)

// ErrorClassifier determines whether an error should trigger a retry.
type ErrorClassifier interface {
	// IsRetryable returns true if the error represents a transient failure
	// that should be retried.
	IsRetryable(err error) bool
}

// CircuitBreakerErrorClassifier determines whether an error counts as a breaker failure.
type CircuitBreakerErrorClassifier interface {
	// ShouldTripCircuit returns true if the error should be recorded as a failure
	// in the breaker's measurement window.
	ShouldTripCircuit(err error) bool
}

// HTTPError represents an error with an associated HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// TransientClassifier classifies failures of an HTTP API client.
//
// Retryable: status codes at or above MinServerStatus, per-call timeouts,
// rate limiting and transport errors without a status code.
// Not retryable: circuit rejections, caller cancellation, any other status code.
//
// The breaker counts per-call timeouts and transport errors as failures. Status codes
// only count when they are server errors; rate limiting and caller cancellation never do.
type TransientClassifier struct {
	// MinServerStatus is the lowest status code treated as transient.
	// Defaults to 500 when zero.
	MinServerStatus int
}

// NewTransientClassifier creates a TransientClassifier that treats every 5xx status as transient.
func NewTransientClassifier() *TransientClassifier {
	return &TransientClassifier{MinServerStatus: 500}
}

// IsRetryable implements ErrorClassifier.
func (c *TransientClassifier) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// A breaker timeout may carry a deadline error in its chain; it is still ours to retry.
	if errors.Is(err, ErrCallTimeout) {
		return true
	}

	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyProbes) {
		return false
	}

	// The parent context is gone; retrying with it fails immediately.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, pkgerrors.ErrRateLimited) {
		return true
	}
	if pkgerrors.IsTimeout(err) {
		return true
	}

	statusCode := extractStatusCode(err)
	if statusCode == 0 {
		// Connection refused, reset, DNS and friends.
		return true
	}

	return statusCode >= c.minServerStatus()
}

// ShouldTripCircuit implements CircuitBreakerErrorClassifier.
func (c *TransientClassifier) ShouldTripCircuit(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrCallTimeout) {
		return true
	}

	if errors.Is(err, pkgerrors.ErrRateLimited) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	statusCode := extractStatusCode(err)
	if statusCode == 0 {
		return true
	}

	return statusCode >= c.minServerStatus()
}

func (c *TransientClassifier) minServerStatus() int {
	if c.MinServerStatus > 0 {
		return c.MinServerStatus
	}
	return 500
}

// extractStatusCode returns the status code carried by err, or 0 when there is none.
func extractStatusCode(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	return 0
}

// DefaultErrorClassifier returns the retry classifier used when none is configured.
func DefaultErrorClassifier() ErrorClassifier {
	return NewTransientClassifier()
}

// DefaultCircuitBreakerErrorClassifier returns the breaker classifier used when none is configured.
func DefaultCircuitBreakerErrorClassifier() CircuitBreakerErrorClassifier {
	return NewTransientClassifier()
}

// StatusCodeError wraps an error with an HTTP status code.
type StatusCodeError struct {
	Err  error
	Code int
}

// Error implements the error interface.
func (e *StatusCodeError) Error() string {
	return e.Err.Error()
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *StatusCodeError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code.
func (e *StatusCodeError) StatusCode() int {
	return e.Code
}

// NewStatusCodeError creates a new StatusCodeError.
//
// Example:
//
//	if resp.StatusCode >= 500 {
//	    return nil, resilience.NewStatusCodeError(resp.StatusCode, errors.New(resp.Status))
//	}
func NewStatusCodeError(statusCode int, err error) error {
	return &StatusCodeError{
		Code: statusCode,
		Err:  err,
	}
}
