package tinder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// Transport executes a Request once. It is the innermost layer of both pipelines.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// restyTransport sends requests with resty. Retries belong to the pipeline, so resty's
// own retry loop stays off.
type restyTransport struct {
	client *resty.Client
}

func newRestyTransport(config RequestConfig, httpClient *http.Client, logger *slog.Logger) *restyTransport {
	var client *resty.Client
	if httpClient != nil {
		client = resty.NewWithClient(httpClient)
	} else {
		client = resty.New()
	}

	client.
		SetBaseURL(config.BaseURL).
		SetRetryCount(0).
		SetLogger(&slogAdapter{logger: logger}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeaders(config.Headers).
		SetHeader("User-Agent", config.UserAgent)

	return &restyTransport{client: client}
}

func (t *restyTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	r := t.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers)

	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Route, err)
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       resp.Body(),
	}, nil
}

// slogAdapter routes resty's printf-style logging into slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Errorf(format string, v ...any) {
	a.logger.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (a *slogAdapter) Warnf(format string, v ...any) {
	a.logger.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (a *slogAdapter) Debugf(format string, v ...any) {
	a.logger.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
