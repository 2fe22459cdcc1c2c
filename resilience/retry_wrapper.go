package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// maxTriesCap bounds MaxTries so the retry count converts safely to uint64.
const maxTriesCap = 1000

// RetryWrapper wraps a ResilientClient with constant-interval retries under an
// overall time ceiling.
type RetryWrapper[Req, Resp any] struct {
	client     ResilientClient[Req, Resp]
	config     *RetryConfig
	logger     *slog.Logger
	classifier ErrorClassifier
	stats      *retryStats
}

// retryStats backs RetryStats.
type retryStats struct {
	mu              sync.RWMutex
	totalAttempts   int64
	totalRetries    int64
	totalSuccesses  int64
	totalFailures   int64
	lastAttemptTime time.Time
	lastError       error
}

// NewRetryWrapper creates a new retry wrapper around a ResilientClient.
//
// Example:
//
//	wrapper := resilience.NewRetryWrapper(
//	    client,
//	    resilience.WithMaxTries(3),
//	    resilience.WithInterval(500*time.Millisecond),
//	)
func NewRetryWrapper[Req, Resp any](
	client ResilientClient[Req, Resp],
	opts ...RetryOption,
) *RetryWrapper[Req, Resp] {
	config := DefaultRetryConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if config.ErrorClassifier == nil {
		config.ErrorClassifier = DefaultErrorClassifier()
	}

	return &RetryWrapper[Req, Resp]{
		client:     client,
		config:     config,
		logger:     config.Logger,
		classifier: config.ErrorClassifier,
		stats:      &retryStats{},
	}
}

// Execute performs the request, retrying retryable failures up to MaxTries attempts
// with Interval between them, all within Timeout.
//
// When the attempts run out, ThrowOriginal decides what surfaces: the last failure
// itself, or ErrRetriesExhausted wrapping it. Non-retryable failures return unchanged.
func (w *RetryWrapper[Req, Resp]) Execute(ctx context.Context, req Req) (Resp, error) {
	var zero Resp

	if w.config.MaxTries <= 0 {
		return zero, ErrInvalidMaxTries
	}

	select {
	case <-ctx.Done():
		w.logger.Warn("context already done before request (expected condition)",
			"error", ctx.Err())
		return zero, ctx.Err()
	default:
	}

	retryCtx := ctx
	if w.config.Timeout > 0 {
		var cancel context.CancelFunc
		retryCtx, cancel = context.WithTimeout(ctx, w.config.Timeout)
		defer cancel()
	}

	var (
		response  Resp
		attempts  int
		lastErr   error
		exhausted bool
	)

	err := retry.Do(retryCtx, w.backoff(), func(ctx context.Context) error {
		attempts++

		w.stats.attempt(attempts > 1)

		resp, err := w.client.Execute(ctx, req)
		if err == nil {
			if attempts > 1 {
				w.logger.Info("request succeeded after retry",
					"attempts", attempts)
			}
			response = resp
			return nil
		}

		// Failures caused by the ceiling itself are not worth surfacing as the original.
		if ctx.Err() == nil {
			lastErr = err
		}

		if !w.classifier.IsRetryable(err) {
			w.logger.Debug("non-retryable error, giving up",
				"error", err,
				"attempts", attempts)
			return err
		}

		exhausted = attempts >= w.maxTries()
		if !exhausted {
			w.logger.Debug("retrying request after delay",
				"attempt", attempts,
				"interval", w.config.Interval,
				"error", err)
		}

		return retry.RetryableError(err)
	})
	if err != nil {
		err = w.surface(ctx, retryCtx, err, lastErr, attempts, exhausted)

		w.logger.Warn("request failed after retries",
			"attempts", attempts,
			"error", err)

		w.stats.finish(err)
		return zero, err
	}

	w.stats.finish(nil)

	return response, nil
}

// surface picks the error returned to the caller once the retry loop has stopped.
func (w *RetryWrapper[Req, Resp]) surface(parent, retryCtx context.Context, err, lastErr error, attempts int, exhausted bool) error {
	// Our own ceiling fired while the caller's context is still alive.
	if retryCtx.Err() != nil && parent.Err() == nil {
		if w.config.ThrowOriginal && lastErr != nil {
			return lastErr
		}
		return fmt.Errorf("%w after %d attempts in %s: %w", ErrRetryTimeout, attempts, w.config.Timeout, err)
	}

	if exhausted && !w.config.ThrowOriginal {
		return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
	}

	return err
}

func (w *RetryWrapper[Req, Resp]) maxTries() int {
	return min(w.config.MaxTries, maxTriesCap)
}

// backoff builds a fresh constant backoff for one Execute call.
// retry.Do counts the initial attempt, so MaxTries-1 retries are allowed.
func (w *RetryWrapper[Req, Resp]) backoff() retry.Backoff {
	maxRetries := max(w.maxTries()-1, 0)

	interval := w.config.Interval
	return retry.WithMaxRetries(
		uint64(maxRetries), // #nosec G115 - bounds checked above
		retry.BackoffFunc(func() (time.Duration, bool) {
			if interval < 0 {
				return 0, false
			}
			return interval, false
		}),
	)
}

// RetryStats is a snapshot of a RetryWrapper's counters.
type RetryStats struct {
	// TotalAttempts counts every call to the wrapped client.
	TotalAttempts int64
	// TotalRetries counts the attempts after the first one of each Execute.
	TotalRetries int64
	// TotalSuccesses and TotalFailures count Execute results.
	TotalSuccesses int64
	TotalFailures  int64

	LastAttemptTime time.Time
	// LastError is the error most recently returned by Execute.
	LastError error
}

func (s *retryStats) attempt(isRetry bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalAttempts++
	if isRetry {
		s.totalRetries++
	}
	s.lastAttemptTime = time.Now()
}

func (s *retryStats) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.totalFailures++
		s.lastError = err
		return
	}
	s.totalSuccesses++
}

func (s *retryStats) snapshot() RetryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RetryStats{
		TotalAttempts:   s.totalAttempts,
		TotalRetries:    s.totalRetries,
		TotalSuccesses:  s.totalSuccesses,
		TotalFailures:   s.totalFailures,
		LastAttemptTime: s.lastAttemptTime,
		LastError:       s.lastError,
	}
}

// GetRetryStats returns the current counters.
func (w *RetryWrapper[Req, Resp]) GetRetryStats() RetryStats {
	return w.stats.snapshot()
}
