package resilience

import (
	"context"
)

// ResponseCheck inspects a response that came back without a transport error and
// returns a non-nil error when the response must be treated as a failure.
type ResponseCheck[Resp any] func(resp Resp) error

// ResponseCheckWrapper turns responses rejected by a ResponseCheck into errors.
//
// Placed between the retry layer and the circuit breaker, the breaker records such a
// call as a success (the transport answered), while the retry layer still sees a failure
// it can classify and retry.
type ResponseCheckWrapper[Req, Resp any] struct {
	client ResilientClient[Req, Resp]
	check  ResponseCheck[Resp]
}

// NewResponseCheckWrapper wraps client with check. A nil check passes every response through.
func NewResponseCheckWrapper[Req, Resp any](client ResilientClient[Req, Resp], check ResponseCheck[Resp]) *ResponseCheckWrapper[Req, Resp] {
	return &ResponseCheckWrapper[Req, Resp]{
		client: client,
		check:  check,
	}
}

// Execute calls the wrapped client and applies the check to its response.
func (w *ResponseCheckWrapper[Req, Resp]) Execute(ctx context.Context, req Req) (Resp, error) {
	var zero Resp

	resp, err := w.client.Execute(ctx, req)
	if err != nil {
		return zero, err
	}

	if w.check != nil {
		if err := w.check(resp); err != nil {
			return zero, err
		}
	}

	return resp, nil
}
