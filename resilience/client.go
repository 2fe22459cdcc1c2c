// Package resilience provides the retry and circuit breaker pipeline used by the Tinder client.
// The pieces are generic over request and response types so each layer can be tested on its own
// with plain values, and composed around a real HTTP transport by the client.
package resilience

import (
	"context"
)

// ResilientClient defines a generic interface for executing requests.
// Every layer of the pipeline both consumes and implements it.
//
// Example:
//
//	type Transport struct{ http *http.Client }
//
//	func (t *Transport) Execute(ctx context.Context, req *http.Request) (*http.Response, error) {
//	    return t.http.Do(req.WithContext(ctx))
//	}
//
//	pipeline := resilience.NewPipeline(transport, nil,
//	    resilience.DefaultRetryConfig(),
//	    resilience.DefaultCircuitBreakerConfig(),
//	    logger,
//	)
type ResilientClient[Req, Resp any] interface {
	// Execute performs a request and returns a response or error.
	// The context should be used to control timeouts and cancellation.
	Execute(ctx context.Context, req Req) (Resp, error)
}

// ClientFunc adapts an ordinary function to ResilientClient.
type ClientFunc[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Execute calls f(ctx, req).
func (f ClientFunc[Req, Resp]) Execute(ctx context.Context, req Req) (Resp, error) {
	return f(ctx, req)
}
