package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jperrors "github.com/JohnPlummer/jp-go-errors"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerWrapper wraps a ResilientClient with a failure-rate circuit breaker.
// Every call is bounded by the configured per-call timeout; timeouts count as failures.
type CircuitBreakerWrapper[Req, Resp any] struct {
	client      ResilientClient[Req, Resp]
	cb          *gobreaker.CircuitBreaker[Resp]
	logger      *slog.Logger
	classifier  CircuitBreakerErrorClassifier
	name        string
	callTimeout time.Duration
}

// NewCircuitBreakerWrapper creates a new circuit breaker wrapper around a ResilientClient.
//
// Example:
//
//	wrapper := resilience.NewCircuitBreakerWrapper(
//	    client,
//	    resilience.WithThreshold(80),
//	    resilience.WithCircuitDuration(time.Minute),
//	)
func NewCircuitBreakerWrapper[Req, Resp any](
	client ResilientClient[Req, Resp],
	opts ...CircuitBreakerOption,
) *CircuitBreakerWrapper[Req, Resp] {
	config := DefaultCircuitBreakerConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if config.ErrorClassifier == nil {
		config.ErrorClassifier = DefaultCircuitBreakerErrorClassifier()
	}

	if config.Name == "" {
		config.Name = "resilient-client"
	}

	classifier := config.ErrorClassifier

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxProbes,
		Interval:    config.Window,
		Timeout:     config.CircuitDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return config.ShouldTrip(convertGobreakerCounts(counts))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			config.Logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())

			if config.OnStateChange != nil {
				config.OnStateChange(name, convertGobreakerState(from), convertGobreakerState(to))
			}
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !classifier.ShouldTripCircuit(err)
		},
	}

	return &CircuitBreakerWrapper[Req, Resp]{
		client:      client,
		cb:          gobreaker.NewCircuitBreaker[Resp](settings),
		logger:      config.Logger,
		classifier:  classifier,
		name:        config.Name,
		callTimeout: config.CallTimeout,
	}
}

// Execute executes the request through the circuit breaker.
// While the circuit is open, requests are rejected with ErrCircuitOpen without calling
// the underlying client. In half-open state, calls beyond the probe budget get ErrTooManyProbes.
func (w *CircuitBreakerWrapper[Req, Resp]) Execute(ctx context.Context, req Req) (Resp, error) {
	var zero Resp

	resp, err := w.cb.Execute(func() (Resp, error) {
		return w.call(ctx, req)
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			counts := w.cb.Counts()
			w.logger.Warn("circuit breaker is open, request rejected",
				"name", w.name,
				"counts", counts)
			return zero, fmt.Errorf("%w: %w", ErrCircuitOpen, jperrors.NewCircuitBreakerError(
				"request rejected",
				w.name,
				"open",
				jperrors.WithCause(err),
				jperrors.WithCounts(toCircuitCounts(counts)),
			))
		case errors.Is(err, gobreaker.ErrTooManyRequests):
			counts := w.cb.Counts()
			w.logger.Debug("circuit breaker in half-open state, too many requests",
				"name", w.name)
			return zero, fmt.Errorf("%w: %w", ErrTooManyProbes, jperrors.NewCircuitBreakerError(
				"too many requests in half-open state",
				w.name,
				"half-open",
				jperrors.WithCause(err),
				jperrors.WithCounts(toCircuitCounts(counts)),
			))
		default:
			w.logger.Debug("request failed through circuit breaker",
				"name", w.name,
				"error", err,
				"counted", w.classifier.ShouldTripCircuit(err))
		}
		return zero, err
	}

	return resp, nil
}

type callResult[Resp any] struct {
	resp Resp
	err  error
}

// call runs one request bounded by the per-call timeout. The client gets a context carrying
// the deadline; the wait is also bounded here so a client ignoring its context cannot hold
// the breaker past the timeout.
func (w *CircuitBreakerWrapper[Req, Resp]) call(ctx context.Context, req Req) (Resp, error) {
	if w.callTimeout <= 0 {
		return w.client.Execute(ctx, req)
	}

	var zero Resp
	callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	defer cancel()

	done := make(chan callResult[Resp], 1)
	go func() {
		resp, err := w.client.Execute(callCtx, req)
		done <- callResult[Resp]{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return zero, w.timeoutError()
		}
		return res.resp, res.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, w.timeoutError()
	}
}

func (w *CircuitBreakerWrapper[Req, Resp]) timeoutError() error {
	return fmt.Errorf("%w after %s: %w", ErrCallTimeout, w.callTimeout,
		jperrors.NewTimeoutError("call exceeded breaker timeout", w.name, w.callTimeout))
}

// Name returns the breaker name.
func (w *CircuitBreakerWrapper[Req, Resp]) Name() string {
	return w.name
}

// State returns the current state of the circuit breaker.
func (w *CircuitBreakerWrapper[Req, Resp]) State() CircuitBreakerState {
	return convertGobreakerState(w.cb.State())
}

// Counts returns the counts of the current measurement window.
func (w *CircuitBreakerWrapper[Req, Resp]) Counts() CircuitBreakerCounts {
	return convertGobreakerCounts(w.cb.Counts())
}

// GetHealth returns the health status of the circuit breaker.
func (w *CircuitBreakerWrapper[Req, Resp]) GetHealth() HealthStatus {
	return newHealthStatus(w.name, w.State(), w.Counts())
}

func convertGobreakerState(state gobreaker.State) CircuitBreakerState {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

func convertGobreakerCounts(counts gobreaker.Counts) CircuitBreakerCounts {
	return CircuitBreakerCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

func toCircuitCounts(counts gobreaker.Counts) jperrors.CircuitCounts {
	return jperrors.CircuitCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}
