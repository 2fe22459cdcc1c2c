package tinder

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// Request describes one API call before it enters a pipeline.
type Request struct {
	// Method is http.MethodGet or http.MethodPost; it selects the pipeline.
	Method string
	// Route is the path template ("/user/{id}"), used as a metrics label.
	Route string
	// Path is the concrete, escaped path.
	Path    string
	Query   url.Values
	Headers map[string]string
	// Body is encoded as JSON when non-nil.
	Body any
}

// Response is what the transport read back.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

func newRequest(method, route, path string) *Request {
	return &Request{
		Method:  method,
		Route:   route,
		Path:    path,
		Headers: make(map[string]string),
	}
}

func getRequest(route, path string) *Request {
	return newRequest(http.MethodGet, route, path)
}

func postRequest(route, path string, body any) *Request {
	req := newRequest(http.MethodPost, route, path)
	req.Body = body
	return req
}

// Decode unmarshals a body returned by Client into a T.
//
// Example:
//
//	body, err := client.GetAccount(ctx)
//	account, err := tinder.Decode[map[string]any](body)
func Decode[T any](body json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(body, &v)
	return v, err
}
