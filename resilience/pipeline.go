package resilience

import (
	"context"
	"log/slog"
)

// Pipeline composes the three layers around a client, outer to inner:
//
//	retry -> response check -> circuit breaker (with per-call timeout) -> client
//
// The breaker sees every attempt, so its failure rate reflects real traffic, and an open
// circuit rejects attempts before they reach the client.
type Pipeline[Req, Resp any] struct {
	breaker *CircuitBreakerWrapper[Req, Resp]
	retry   *RetryWrapper[Req, Resp]
}

// NewPipeline builds a Pipeline. Nil configs fall back to the defaults; a non-nil logger
// replaces the loggers of both configs.
func NewPipeline[Req, Resp any](
	client ResilientClient[Req, Resp],
	check ResponseCheck[Resp],
	retryConfig *RetryConfig,
	cbConfig *CircuitBreakerConfig,
	logger *slog.Logger,
) *Pipeline[Req, Resp] {
	if logger != nil {
		if retryConfig != nil {
			retryConfig.Logger = logger
		}
		if cbConfig != nil {
			cbConfig.Logger = logger
		}
	}

	breaker := NewCircuitBreakerWrapper(client, func(c *CircuitBreakerConfig) {
		if cbConfig != nil {
			*c = *cbConfig
		}
	})

	checked := NewResponseCheckWrapper[Req, Resp](breaker, check)

	retry := NewRetryWrapper[Req, Resp](checked, func(c *RetryConfig) {
		if retryConfig != nil {
			*c = *retryConfig
		}
	})

	return &Pipeline[Req, Resp]{
		breaker: breaker,
		retry:   retry,
	}
}

// Execute runs the request through every layer.
func (p *Pipeline[Req, Resp]) Execute(ctx context.Context, req Req) (Resp, error) {
	return p.retry.Execute(ctx, req)
}

// State returns the breaker state.
func (p *Pipeline[Req, Resp]) State() CircuitBreakerState {
	return p.breaker.State()
}

// Counts returns the breaker counts of the current window.
func (p *Pipeline[Req, Resp]) Counts() CircuitBreakerCounts {
	return p.breaker.Counts()
}

// Health returns the breaker health.
func (p *Pipeline[Req, Resp]) Health() HealthStatus {
	return p.breaker.GetHealth()
}

// RetryStats returns the retry layer statistics.
func (p *Pipeline[Req, Resp]) RetryStats() RetryStats {
	return p.retry.GetRetryStats()
}
