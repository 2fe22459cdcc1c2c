package tinder

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JohnPlummer/jp-go-tinder/resilience"
)

// Call outcomes recorded by Metrics.
const (
	OutcomeOK          = "ok"
	OutcomeHTTPError   = "http_error"
	OutcomeTransient   = "transient"
	OutcomeCircuitOpen = "circuit_open"
	OutcomeTimeout     = "timeout"
	OutcomeCanceled    = "canceled"
	OutcomeError       = "error"
)

// Metrics holds the Prometheus collectors for dispatched calls.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	circuitState *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinder_client_requests_total",
				Help: "Total number of dispatched API calls by outcome",
			},
			[]string{"verb", "route", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tinder_client_request_duration_seconds",
				Help:    "Duration of dispatched API calls including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"verb", "route"},
		),
		circuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tinder_client_circuit_state",
				Help: "Circuit breaker state per verb (0 closed, 1 half-open, 2 open)",
			},
			[]string{"verb"},
		),
	}
}

func (m *Metrics) observe(req *Request, resp *Response, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(req.Method, req.Route, outcome(resp, err)).Inc()
	m.duration.WithLabelValues(req.Method, req.Route).Observe(elapsed.Seconds())
}

func (m *Metrics) setCircuitState(verb string, state resilience.CircuitBreakerState) {
	if m == nil {
		return
	}
	m.circuitState.WithLabelValues(verb).Set(float64(state))
}

func outcome(resp *Response, err error) string {
	switch {
	case err == nil && resp != nil && resp.StatusCode < 300:
		return OutcomeOK
	case err == nil:
		return OutcomeHTTPError
	case errors.Is(err, ErrTransientHTTP):
		return OutcomeTransient
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyProbes):
		return OutcomeCircuitOpen
	case errors.Is(err, resilience.ErrCallTimeout),
		errors.Is(err, resilience.ErrRetryTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
