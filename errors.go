package tinder

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Every error returned by Client matches at most one of them with errors.Is,
// with the structured variants below reachable through errors.As.
var (
	// ErrNotAuthorized: no session token, an upstream 401, or an auth response without a token.
	ErrNotAuthorized = errors.New("tinder: not authorized")

	// ErrOutOfLikes: the like quota is exhausted. See OutOfLikesError.
	ErrOutOfLikes = errors.New("tinder: out of likes")

	// ErrInvalidArguments: caller input rejected before any request was made. See ArgumentError.
	ErrInvalidArguments = errors.New("tinder: invalid arguments")

	// ErrTransientHTTP: a 5xx response that was still failing after every retry. See HTTPError.
	ErrTransientHTTP = errors.New("tinder: transient http error")

	// ErrGenericHTTP: any other non-2xx response, or a 2xx body carrying an error status.
	// See HTTPError and AppError.
	ErrGenericHTTP = errors.New("tinder: http error")
)

// HTTPError is a response with status >= 300.
type HTTPError struct {
	// Code is the HTTP status code.
	Code int
	// Status is the HTTP status line text, e.g. "404 Not Found".
	Status string
	// Body is the raw response body.
	Body []byte
	// Transient marks 5xx responses.
	Transient bool
}

func newHTTPError(resp *Response) *HTTPError {
	return &HTTPError{
		Code:      resp.StatusCode,
		Status:    resp.Status,
		Body:      resp.Body,
		Transient: resp.StatusCode >= 500,
	}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("tinder: http %d: %s", e.Code, e.Status)
}

// StatusCode returns the HTTP status code; the retry classifier reads it.
func (e *HTTPError) StatusCode() int {
	return e.Code
}

// Is maps the error onto its kind.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrNotAuthorized:
		return e.Code == 401
	case ErrTransientHTTP:
		return e.Transient
	case ErrGenericHTTP:
		return !e.Transient && e.Code != 401
	}
	return false
}

// AppError is a 2xx response whose body reports a non-200 application status.
type AppError struct {
	Status  int
	Message string
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tinder: api status %d", e.Status)
	}
	return fmt.Sprintf("tinder: api status %d: %s", e.Status, e.Message)
}

func (e *AppError) Is(target error) bool {
	return target == ErrGenericHTTP
}

// ArgumentError names the argument that failed validation.
type ArgumentError struct {
	Arg    string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tinder: invalid argument %s: %s", e.Arg, e.Reason)
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArguments
}

func required(arg, value string) error {
	if value == "" {
		return &ArgumentError{Arg: arg, Reason: "is required"}
	}
	return nil
}

// OutOfLikesError reports an exhausted like quota.
type OutOfLikesError struct {
	// RateLimitedUntil is when likes become available again; zero when the API did not say.
	RateLimitedUntil time.Time
}

func (e *OutOfLikesError) Error() string {
	if e.RateLimitedUntil.IsZero() {
		return ErrOutOfLikes.Error()
	}
	return fmt.Sprintf("%s until %s", ErrOutOfLikes, e.RateLimitedUntil.Format(time.RFC3339))
}

func (e *OutOfLikesError) Is(target error) bool {
	return target == ErrOutOfLikes
}
