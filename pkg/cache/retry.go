package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork is returned when a cache backend cannot be reached.
var ErrNetwork = errors.New("network error")

// Backend calls are attempted retryAttempts times, doubling the pause after
// each transient failure.
const retryAttempts = 3

var retryDelay = time.Second

// RetryableError marks a failure as transient.
type RetryableError struct{ Err error }

// Retryable marks err as transient. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err, or anything it wraps, was marked transient.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// RetryWithBackoff calls fn until it succeeds, returns a permanent error, or
// the attempts run out. Waiting between attempts honors ctx.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	var err error
	delay := retryDelay
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !IsRetryable(err) || attempt == retryAttempts {
			return err
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}
