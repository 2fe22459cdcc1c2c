package tinder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JohnPlummer/jp-go-tinder/resilience"
)

// Client talks to the API through two resilient pipelines, one per verb.
// It is safe for concurrent use; the session token is shared by all calls.
type Client struct {
	dispatcher *dispatcher
	logger     *slog.Logger
	config     Config

	mu    sync.RWMutex
	token string
}

// New creates a Client. Options are applied over DefaultConfig, then unset fields are
// filled with defaults; the configuration does not change afterwards.
//
// Example:
//
//	client := tinder.New(
//	    tinder.WithLogger(logger),
//	    tinder.WithRetryPolicy(tinder.RetryPolicy{MaxTries: 3, ThrowOriginal: true}),
//	)
//	if _, err := client.Authorize(ctx, fbToken, fbUserID); err != nil {
//	    return err
//	}
//	recs, err := client.GetRecommendations(ctx)
func New(opts ...Option) *Client {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	config := o.config.withDefaults()
	transport := newRestyTransport(config.Request, o.httpClient, o.logger)

	return newClient(transport, config, o)
}

func newClient(transport Transport, config Config, o *options) *Client {
	return &Client{
		dispatcher: newDispatcher(transport, config, o.logger, o.metrics),
		logger:     o.logger,
		config:     config,
		token:      o.token,
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Token returns the session token, or "" before authorization.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the session token, e.g. with one saved from an earlier session.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// IsAuthorized reports whether a session token is held.
func (c *Client) IsAuthorized() bool {
	return c.Token() != ""
}

// Health returns the breaker health of the GET and POST pipelines, in that order.
func (c *Client) Health() []resilience.HealthStatus {
	return c.dispatcher.health()
}

// authorize attaches the session token to req, failing when there is none.
func (c *Client) authorize(req *Request) error {
	token := c.Token()
	if token == "" {
		return fmt.Errorf("%w: no session token, call Authorize first", ErrNotAuthorized)
	}
	req.Headers[AuthTokenHeader] = token
	return nil
}

// do dispatches req and interprets the response.
func (c *Client) do(ctx context.Context, req *Request) (json.RawMessage, error) {
	resp, err := c.dispatcher.dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return interpret(resp)
}

// doAuthorized is do for calls that need the session token.
func (c *Client) doAuthorized(ctx context.Context, req *Request) (json.RawMessage, error) {
	if err := c.authorize(req); err != nil {
		return nil, err
	}
	return c.do(ctx, req)
}
