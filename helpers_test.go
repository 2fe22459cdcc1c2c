package tinder_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	tinder "github.com/JohnPlummer/jp-go-tinder"
)

// recordedRequest is what fakeAPI saw of one request.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// bodyField decodes the JSON body and returns one string field.
func (r recordedRequest) bodyField(name string) string {
	var fields map[string]string
	_ = json.Unmarshal(r.Body, &fields)
	return fields[name]
}

type reply struct {
	status int
	body   string
}

// responder answers one request.
type responder func(req recordedRequest) reply

// always answers every request the same way.
func always(status int, body string) responder {
	return func(recordedRequest) reply {
		return reply{status: status, body: body}
	}
}

// sequence answers with the next reply on every call and repeats the last one.
func sequence(replies ...reply) responder {
	var calls atomic.Int32
	return func(recordedRequest) reply {
		i := min(int(calls.Add(1))-1, len(replies)-1)
		return replies[i]
	}
}

// fakeAPI serves canned replies keyed by "METHOD /path" and records every request.
type fakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]responder
	requests []recordedRequest
}

func newFakeAPI() *fakeAPI {
	api := &fakeAPI{routes: make(map[string]responder)}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	return api
}

func (a *fakeAPI) on(method, path string, r responder) *fakeAPI {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[method+" "+path] = r
	return a
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	req := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	}

	a.mu.Lock()
	a.requests = append(a.requests, req)
	route, ok := a.routes[r.Method+" "+r.URL.Path]
	a.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	rep := route(req)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_, _ = io.WriteString(w, rep.body)
}

func (a *fakeAPI) recorded() []recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]recordedRequest(nil), a.requests...)
}

func (a *fakeAPI) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func (a *fakeAPI) last() recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[len(a.requests)-1]
}

// fastRetries keeps retry waits short enough for tests.
func fastRetries(tries int) tinder.RetryPolicy {
	return tinder.RetryPolicy{
		MaxTries:      tries,
		Interval:      10 * time.Millisecond,
		Timeout:       2 * time.Second,
		ThrowOriginal: true,
	}
}

func newTestClient(api *fakeAPI, opts ...tinder.Option) *tinder.Client {
	base := []tinder.Option{
		tinder.WithBaseURL(api.URL),
		tinder.WithLogger(quietLogger()),
		tinder.WithRetryPolicy(fastRetries(3)),
	}
	return tinder.New(append(base, opts...)...)
}

// fakeTransport answers every request by calling fn and counts the calls.
type fakeTransport struct {
	fn    func(ctx context.Context, req *tinder.Request) (*tinder.Response, error)
	calls atomic.Int32
}

func (t *fakeTransport) Execute(ctx context.Context, req *tinder.Request) (*tinder.Response, error) {
	t.calls.Add(1)
	return t.fn(ctx, req)
}

func (t *fakeTransport) getCallCount() int {
	return int(t.calls.Load())
}

var errConnRefused = errors.New("dial tcp: connection refused")
