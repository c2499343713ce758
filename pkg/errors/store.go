package errors

import (
	"fmt"
	"net/http"
)

// StatusError is returned by HTTP-backed stores for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("store responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("store responded with status %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether the status is one the store uses for
// throttling or temporary unavailability.
func (e *StatusError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

// NewTransientStoreError reports that operation kept failing with
// retryable errors after the given number of attempts.
func NewTransientStoreError(operation string, attempts int, cause error) *Error {
	return ErrTransientStore.
		WithCause(cause).
		WithDetail("operation", operation).
		WithDetail("attempts", attempts).
		WithMessage(fmt.Sprintf("%s failed after %d attempts", operation, attempts))
}

func NewPermanentStoreError(operation string, cause error) *Error {
	return ErrPermanentStore.
		WithCause(cause).
		WithDetail("operation", operation).
		WithMessage(fmt.Sprintf("%s failed", operation))
}

func NewConfigurationError(ruleID, message string) *Error {
	return ErrConfiguration.
		WithDetail("rule_id", ruleID).
		WithMessage(message)
}

func NewUnsupportedActionError(actionType string) *Error {
	return ErrUnsupportedAction.
		WithDetail("action_type", actionType).
		WithMessage(fmt.Sprintf("action %q is not supported", actionType))
}
