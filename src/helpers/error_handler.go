package helpers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"volume-screener/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ScreenerError struct {
	Message string
	Cause   error
}

func (e *ScreenerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ScreenerError) Unwrap() error {
	return e.Cause
}

// Distinct error kinds for errors.As
type ConfigurationError struct{ ScreenerError }
type DataSourceError struct{ ScreenerError }
type CacheError struct{ ScreenerError }
type DatabaseError struct{ ScreenerError }

// NetworkError is a transport failure or a non-2xx response. StatusCode is 0
// when no response was received.
type NetworkError struct {
	ScreenerError
	StatusCode int
}

// Retryable reports whether repeating the request may succeed.
func (e *NetworkError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode == http.StatusForbidden,
		e.StatusCode == http.StatusTeapot: // exchange IP ban warning
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

func NewScreenerError(msg string, cause error) *ScreenerError {
	return &ScreenerError{Message: msg, Cause: cause}
}

func NewNetworkError(msg string, status int, cause error) *NetworkError {
	return &NetworkError{ScreenerError: ScreenerError{Message: msg, Cause: cause}, StatusCode: status}
}

func NewDataSourceError(msg string, cause error) *DataSourceError {
	return &DataSourceError{ScreenerError{Message: msg, Cause: cause}}
}

func NewCacheError(msg string, cause error) *CacheError {
	return &CacheError{ScreenerError{Message: msg, Cause: cause}}
}

func NewConfigurationError(msg string, cause error) *ConfigurationError {
	return &ConfigurationError{ScreenerError{Message: msg, Cause: cause}}
}

func NewDatabaseError(msg string, cause error) *DatabaseError {
	return &DatabaseError{ScreenerError{Message: msg, Cause: cause}}
}

// IsRetryable treats network errors by status and everything else as
// retryable, except context cancellation.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Retryable()
	}
	return true
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to maxRetries+1 times, doubling the delay from
// baseDelay between attempts. Non-retryable errors and context cancellation
// stop early.
func RetryWithBackoff[T any](
	ctx context.Context,
	log *logger.Logger,
	operation string,
	maxRetries int,
	baseDelay time.Duration,
	fn func() (T, error),
) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}
		lastErr = err
		if attempt == maxRetries || !IsRetryable(err) {
			break
		}

		delay := baseDelay * time.Duration(1<<attempt)
		log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries+1, operation, err, delay)
		if err := Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
