package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound   = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrValidation = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrInternal   = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
)

// Automation engine taxonomy.
var (
	ErrConfiguration           = NewError("CONFIGURATION_ERROR", "rule is misconfigured", http.StatusUnprocessableEntity).AsFatal()
	ErrResolutionFailure       = NewError("RESOLUTION_FAILURE", "target record could not be resolved", http.StatusUnprocessableEntity).AsFatal()
	ErrUnsupportedRelationship = NewError("UNSUPPORTED_RELATIONSHIP", "no relationship between tables", http.StatusUnprocessableEntity).AsFatal()
	ErrUnsupportedAction       = NewError("UNSUPPORTED_ACTION", "action type is not supported", http.StatusNotImplemented).AsFatal()
	ErrTransientStore          = NewError("TRANSIENT_STORE_ERROR", "record store temporarily unavailable", http.StatusBadGateway).AsRetryable()
	ErrPermanentStore          = NewError("PERMANENT_STORE_ERROR", "record store rejected the request", http.StatusBadGateway).AsFatal()
)

type RetryableError interface {
	error
	IsRetryable() bool
}

// Error is a coded application error. Values are immutable: every With*
// and As* method returns a copy.
type Error struct {
	Code      string
	Message   string
	Status    int
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Code so that errors.Is(err, ErrConfiguration) holds for any
// derived copy produced by WithCause or WithDetail.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// IsRetryable reports the explicit flag when one was set, otherwise asks
// the cause. Validation and not-found errors never retry.
func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Code == ErrValidation.Code || e.Code == ErrNotFound.Code {
		return false
	}
	var retryableErr RetryableError
	if e.Cause != nil && errors.As(e.Cause, &retryableErr) {
		return retryableErr.IsRetryable()
	}
	return true
}

func (e *Error) IsFatal() bool {
	return !e.IsRetryable()
}

func (e *Error) clone() *Error {
	err := *e
	return &err
}

func (e *Error) WithCause(cause error) *Error {
	err := e.clone()
	err.Cause = cause
	return err
}

func (e *Error) WithMessage(message string) *Error {
	err := e.clone()
	err.Message = message
	return err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := e.clone()
	err.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		err.Details[k] = v
	}
	err.Details[key] = value
	return err
}

func (e *Error) AsRetryable() *Error {
	return e.withRetryable(true)
}

func (e *Error) AsFatal() *Error {
	return e.withRetryable(false)
}

func (e *Error) withRetryable(v bool) *Error {
	err := e.clone()
	err.retryable = &v
	return err
}

func hasCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound.Code)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrValidation.Code)
}

func IsConfiguration(err error) bool {
	return hasCode(err, ErrConfiguration.Code)
}

func IsUnsupportedAction(err error) bool {
	return hasCode(err, ErrUnsupportedAction.Code)
}

func IsTransientStore(err error) bool {
	return hasCode(err, ErrTransientStore.Code)
}

func IsPermanentStore(err error) bool {
	return hasCode(err, ErrPermanentStore.Code)
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// ToErrorResponse renders err as the JSON body used by every HTTP error
// reply. Transient store failures carry "retryable": true so callers know
// the dispatch can be sent again.
func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}
	if appErr.Code == ErrTransientStore.Code {
		response["retryable"] = true
	}
	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}
