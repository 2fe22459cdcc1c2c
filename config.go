package tinder

import (
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/JohnPlummer/jp-go-tinder/resilience"
)

const (
	// DefaultBaseURL is the API endpoint every request is sent to.
	DefaultBaseURL = "https://api.gotinder.com"

	// DefaultUserAgent identifies the client as the Android app.
	DefaultUserAgent = "Tinder Android Version 4.5.5"

	// AuthTokenHeader carries the session token on authenticated requests.
	AuthTokenHeader = "X-Auth-Token"
)

// RequestConfig is the base request shared by every call.
type RequestConfig struct {
	BaseURL   string            `mapstructure:"base_url" yaml:"base_url"`
	UserAgent string            `mapstructure:"user_agent" yaml:"user_agent"`
	Headers   map[string]string `mapstructure:"headers" yaml:"headers"`
}

// RetryPolicy configures the retry layer of both pipelines.
type RetryPolicy struct {
	// MaxTries is the total number of attempts per call.
	MaxTries int `mapstructure:"max_tries" yaml:"max_tries"`
	// Interval is the wait between attempts.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	// Timeout is the ceiling for all attempts of one call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// ThrowOriginal surfaces the last failure instead of a generic exhaustion error.
	ThrowOriginal bool `mapstructure:"throw_original" yaml:"throw_original"`
}

// BreakerPolicy configures the circuit breaker of each pipeline.
type BreakerPolicy struct {
	// Timeout bounds a single attempt.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Threshold is the failure percentage that opens the circuit.
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
	// CircuitDuration is how long an open circuit rejects calls.
	CircuitDuration time.Duration `mapstructure:"circuit_duration" yaml:"circuit_duration"`
	// Window is the measurement window for the failure rate.
	Window time.Duration `mapstructure:"window" yaml:"window"`
	// MinRequests is the call volume a window needs before it can trip. Zero, the
	// default, lets any window whose failure rate reaches Threshold trip.
	MinRequests uint32 `mapstructure:"min_requests" yaml:"min_requests"`
	// HalfOpenProbes is the number of trial calls after CircuitDuration.
	HalfOpenProbes uint32 `mapstructure:"half_open_probes" yaml:"half_open_probes"`
}

// Config holds everything New needs. Zero numeric and string fields take the
// value from DefaultConfig; Headers are merged over the default headers.
type Config struct {
	Request RequestConfig `mapstructure:"request" yaml:"request"`
	Retry   RetryPolicy   `mapstructure:"retry" yaml:"retry"`
	Breaker BreakerPolicy `mapstructure:"breaker" yaml:"breaker"`
}

// DefaultConfig returns the documented defaults: two tries one second apart within
// sixteen seconds surfacing the original error; twelve second calls, an 80% failure
// threshold and a three hour open circuit.
func DefaultConfig() Config {
	return Config{
		Request: RequestConfig{
			BaseURL:   DefaultBaseURL,
			UserAgent: DefaultUserAgent,
			Headers: map[string]string{
				"platform":        "android",
				"os_version":      "23",
				"app-version":     "854",
				"Accept-Language": "en",
			},
		},
		Retry: RetryPolicy{
			MaxTries:      2,
			Interval:      time.Second,
			Timeout:       16 * time.Second,
			ThrowOriginal: true,
		},
		Breaker: BreakerPolicy{
			Timeout:         12 * time.Second,
			Threshold:       80,
			CircuitDuration: 3 * time.Hour,
			Window:          10 * time.Second,
			HalfOpenProbes:  1,
		},
	}
}

// withDefaults fills unset fields from DefaultConfig. ThrowOriginal is a plain bool and
// is taken as given.
func (c Config) withDefaults() Config {
	d := DefaultConfig()

	if c.Request.BaseURL == "" {
		c.Request.BaseURL = d.Request.BaseURL
	}
	if c.Request.UserAgent == "" {
		c.Request.UserAgent = d.Request.UserAgent
	}
	headers := d.Request.Headers
	maps.Copy(headers, c.Request.Headers)
	c.Request.Headers = headers

	if c.Retry.MaxTries <= 0 {
		c.Retry.MaxTries = d.Retry.MaxTries
	}
	if c.Retry.Interval <= 0 {
		c.Retry.Interval = d.Retry.Interval
	}
	if c.Retry.Timeout <= 0 {
		c.Retry.Timeout = d.Retry.Timeout
	}

	if c.Breaker.Timeout <= 0 {
		c.Breaker.Timeout = d.Breaker.Timeout
	}
	if c.Breaker.Threshold <= 0 {
		c.Breaker.Threshold = d.Breaker.Threshold
	}
	if c.Breaker.CircuitDuration <= 0 {
		c.Breaker.CircuitDuration = d.Breaker.CircuitDuration
	}
	if c.Breaker.Window <= 0 {
		c.Breaker.Window = d.Breaker.Window
	}
	if c.Breaker.HalfOpenProbes == 0 {
		c.Breaker.HalfOpenProbes = d.Breaker.HalfOpenProbes
	}

	return c
}

func (p RetryPolicy) resilienceConfig() *resilience.RetryConfig {
	config := resilience.DefaultRetryConfig()
	config.MaxTries = p.MaxTries
	config.Interval = p.Interval
	config.Timeout = p.Timeout
	config.ThrowOriginal = p.ThrowOriginal
	return config
}

func (p BreakerPolicy) resilienceConfig(name string) *resilience.CircuitBreakerConfig {
	config := resilience.DefaultCircuitBreakerConfig()
	config.Name = name
	config.CallTimeout = p.Timeout
	config.Threshold = p.Threshold
	config.CircuitDuration = p.CircuitDuration
	config.Window = p.Window
	config.MinRequests = p.MinRequests
	config.MaxProbes = p.HalfOpenProbes
	return config
}

// Option configures a Client.
type Option func(*options)

type options struct {
	config     Config
	logger     *slog.Logger
	metrics    *Metrics
	httpClient *http.Client
	token      string
}

func newOptions() *options {
	return &options{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
}

// WithConfig replaces the whole configuration. Unset fields still take their defaults.
func WithConfig(config Config) Option {
	return func(o *options) {
		o.config = config
	}
}

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.config.Request.BaseURL = baseURL
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		o.config.Request.UserAgent = userAgent
	}
}

// WithHeader adds or overrides one base header.
func WithHeader(name, value string) Option {
	return func(o *options) {
		if o.config.Request.Headers == nil {
			o.config.Request.Headers = make(map[string]string)
		}
		o.config.Request.Headers[name] = value
	}
}

// WithRetryPolicy replaces the retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(o *options) {
		o.config.Retry = policy
	}
}

// WithBreakerPolicy replaces the circuit breaker policy.
func WithBreakerPolicy(policy BreakerPolicy) Option {
	return func(o *options) {
		o.config.Breaker = policy
	}
}

// WithLogger sets the logger used by the client and its pipelines.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records every dispatched call in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithHTTPClient sets the underlying *http.Client (proxies, custom TLS).
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithToken starts the client with a saved session token.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}
