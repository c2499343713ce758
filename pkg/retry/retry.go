package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) IsRetryable() bool {
	return true
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func NewRetryableError(err error) RetryableError {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// Classifier decides whether a failed attempt may be retried.
type Classifier func(err error) bool

// IsRetryable is the default classifier: only errors that declare
// themselves retryable are retried.
func IsRetryable(err error) bool {
	var retryableErr RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.IsRetryable()
	}
	return false
}

// Policy bounds the number of retries and shapes the delay between them.
// The delay before retry k (0-based) is InitialInterval*Multiplier^k,
// capped at MaxInterval. There is no jitter.
type Policy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}
}

// Attempt describes a failed attempt that is about to be retried.
type Attempt struct {
	Number    int
	Err       error
	NextDelay time.Duration
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// PermanentError is returned when an attempt failed with an error the
// classifier rejected. No further attempts were made.
type PermanentError struct {
	Attempts int
	Err      error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("attempt %d failed permanently: %v", e.Attempts, e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// policy's retries are used up. onRetry, when set, is called before each
// wait.
func Do(ctx context.Context, policy Policy, classify Classifier, fn func(ctx context.Context) error, onRetry func(Attempt)) error {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if classify == nil {
		classify = IsRetryable
	}

	var b backoff.BackOff = ExponentialBackoff(policy.InitialInterval, policy.MaxInterval, policy.Multiplier)
	b = backoff.WithContext(b, ctx)
	b = backoff.WithMaxRetries(b, uint64(policy.MaxRetries))

	attempts := 0
	var lastErr error
	permanent := false

	operation := func() error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !classify(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		if onRetry != nil {
			onRetry(Attempt{Number: attempts, Err: err, NextDelay: next})
		}
	}

	err := backoff.RetryNotify(operation, b, notify)
	switch {
	case err == nil:
		return nil
	case permanent:
		return &PermanentError{Attempts: attempts, Err: lastErr}
	case lastErr == nil:
		return err
	default:
		return &ExhaustedError{Attempts: attempts, Err: lastErr}
	}
}
