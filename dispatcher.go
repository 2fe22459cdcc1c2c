package tinder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JohnPlummer/jp-go-tinder/resilience"
)

// dispatcher owns one resilience pipeline per verb. The GET and POST breakers trip
// independently, so a failing read path does not block messages and likes sent by POST.
type dispatcher struct {
	pipelines map[string]*resilience.Pipeline[*Request, *Response]
	metrics   *Metrics
	logger    *slog.Logger
}

func newDispatcher(transport Transport, config Config, logger *slog.Logger, metrics *Metrics) *dispatcher {
	d := &dispatcher{
		pipelines: make(map[string]*resilience.Pipeline[*Request, *Response], 2),
		metrics:   metrics,
		logger:    logger,
	}

	for _, verb := range []string{http.MethodGet, http.MethodPost} {
		breaker := config.Breaker.resilienceConfig(verb)
		breaker.OnStateChange = func(name string, _, to resilience.CircuitBreakerState) {
			metrics.setCircuitState(name, to)
		}
		metrics.setCircuitState(verb, resilience.StateClosed)

		d.pipelines[verb] = resilience.NewPipeline[*Request, *Response](
			transport,
			rejectServerErrors,
			config.Retry.resilienceConfig(),
			breaker,
			logger.With("verb", verb),
		)
	}

	return d
}

// dispatch sends req through the pipeline of its verb. Responses below 500 come back
// as-is for the interpreter; everything else is an error.
func (d *dispatcher) dispatch(ctx context.Context, req *Request) (*Response, error) {
	pipeline, ok := d.pipelines[req.Method]
	if !ok {
		return nil, fmt.Errorf("tinder: unsupported method %q", req.Method)
	}

	start := time.Now()
	resp, err := pipeline.Execute(ctx, req)
	elapsed := time.Since(start)

	d.metrics.observe(req, resp, err, elapsed)

	if err != nil {
		d.logger.Debug("request failed",
			"method", req.Method,
			"route", req.Route,
			"elapsed", elapsed,
			"error", err)
		return nil, err
	}

	d.logger.Debug("request completed",
		"method", req.Method,
		"route", req.Route,
		"status", resp.StatusCode,
		"elapsed", elapsed)
	return resp, nil
}

func (d *dispatcher) health() []resilience.HealthStatus {
	return []resilience.HealthStatus{
		d.pipelines[http.MethodGet].Health(),
		d.pipelines[http.MethodPost].Health(),
	}
}

// rejectServerErrors turns 5xx responses into retryable errors. It runs after the
// breaker has recorded the attempt, so server errors alone never open the circuit.
func rejectServerErrors(resp *Response) error {
	if resp.StatusCode >= 500 {
		return newHTTPError(resp)
	}
	return nil
}
