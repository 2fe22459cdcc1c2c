package tinder

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// UpdateHandler receives each batch returned by the updates endpoint.
type UpdateHandler func(ctx context.Context, updates json.RawMessage) error

type updatesCursor struct {
	LastActivityDate string `json:"last_activity_date"`
}

// PollUpdates calls GetUpdates every interval, starting immediately, and hands each batch to
// handler. After a batch, since moves to the batch's last_activity_date, or to the time the
// call started when the body has none.
//
// Polling stops with nil when ctx is done. It stops with an error when the session is not
// authorized or the handler fails; any other failure is logged and the next tick tries again
// from the same point.
func (c *Client) PollUpdates(ctx context.Context, interval time.Duration, since time.Time, handler UpdateHandler) error {
	if interval <= 0 {
		return &ArgumentError{Arg: "interval", Reason: "must be positive"}
	}
	if handler == nil {
		return &ArgumentError{Arg: "handler", Reason: "is required"}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := c.pollOnce(ctx, since, handler)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrNotAuthorized):
			return err
		case errors.As(err, new(*handlerError)):
			return err
		case err != nil:
			c.logger.Warn("poll updates failed",
				"since", FormatActivityDate(since),
				"error", err)
		default:
			since = next
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// handlerError marks a failure returned by the UpdateHandler.
type handlerError struct {
	err error
}

func (e *handlerError) Error() string { return "tinder: update handler: " + e.err.Error() }
func (e *handlerError) Unwrap() error { return e.err }

func (c *Client) pollOnce(ctx context.Context, since time.Time, handler UpdateHandler) (time.Time, error) {
	started := time.Now()

	updates, err := c.GetUpdates(ctx, since)
	if err != nil {
		return since, err
	}

	if err := handler(ctx, updates); err != nil {
		return since, &handlerError{err: err}
	}

	return nextSince(updates, started), nil
}

func nextSince(updates json.RawMessage, fallback time.Time) time.Time {
	cursor, err := Decode[updatesCursor](updates)
	if err != nil || cursor.LastActivityDate == "" {
		return fallback
	}
	t, err := ParseActivityDate(cursor.LastActivityDate)
	if err != nil {
		return fallback
	}
	return t
}
