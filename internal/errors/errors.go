// Package errors defines the structured error taxonomy shared by every
// memory engine component. An AppError carries a machine-checkable Type
// alongside an HTTP status code for the facade surface and an optional
// Details string for additional context that should never reach an
// external caller verbatim.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jordigilh/kubernaut/pkg/shared/logging"
)

// ErrorType enumerates the failure kinds recognized across the storage,
// indexing, and learning layers.
type ErrorType string

const (
	// ErrorTypeNotFound indicates the requested entity id is absent.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeInvalidState indicates the operation is not allowed given
	// the entity's current lifecycle state.
	ErrorTypeInvalidState ErrorType = "invalid_state"
	// ErrorTypeInvalidInput indicates a validation failure on caller-supplied
	// data (malformed regex, bad UUID, impossible filter bounds).
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	// ErrorTypeStorage indicates a backend I/O or query failure. Storage
	// errors are retryable and count toward circuit breaker state.
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeSerialization indicates an encoding or decoding failure.
	ErrorTypeSerialization ErrorType = "serialization"
	// ErrorTypeCircuitBreakerOpen indicates the call was rejected by an
	// open circuit breaker.
	ErrorTypeCircuitBreakerOpen ErrorType = "circuit_breaker_open"
	// ErrorTypeConflict indicates a concurrent write was detected by a
	// uniqueness or version constraint.
	ErrorTypeConflict ErrorType = "conflict"
)

// ErrorMessages holds the safe, externally-presentable text for error
// types whose underlying details must not leak to callers.
var ErrorMessages = struct {
	ResourceNotFound       string
	ServiceUnavailable     string
	ConcurrentModification string
	StorageFailure         string
	SerializationFailure   string
}{
	ResourceNotFound:       "the requested resource was not found",
	ServiceUnavailable:     "the service is temporarily unavailable, please retry",
	ConcurrentModification: "a conflicting write was detected, please retry with a fresh read",
	StorageFailure:         "an internal storage error occurred",
	SerializationFailure:   "failed to process data",
}

var statusCodes = map[ErrorType]int{
	ErrorTypeNotFound:           http.StatusNotFound,
	ErrorTypeInvalidState:       http.StatusConflict,
	ErrorTypeInvalidInput:       http.StatusBadRequest,
	ErrorTypeStorage:            http.StatusInternalServerError,
	ErrorTypeSerialization:      http.StatusUnprocessableEntity,
	ErrorTypeCircuitBreakerOpen: http.StatusServiceUnavailable,
	ErrorTypeConflict:           http.StatusConflict,
}

func statusCodeFor(t ErrorType) int {
	if code, ok := statusCodes[t]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// AppError is the structured error type returned across package boundaries.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    string
	StatusCode int
	Cause      error
}

// New creates an AppError with no underlying cause.
func New(t ErrorType, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: statusCodeFor(t),
	}
}

// Wrap creates an AppError wrapping an underlying cause.
func Wrap(cause error, t ErrorType, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: statusCodeFor(t),
		Cause:      cause,
	}
}

// Wrapf creates an AppError wrapping an underlying cause with a formatted message.
func Wrapf(cause error, t ErrorType, format string, args ...interface{}) *AppError {
	return Wrap(cause, t, fmt.Sprintf(format, args...))
}

// WithDetails attaches additional context to the error in place and returns
// the same pointer for chaining.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithDetailsf attaches formatted additional context to the error in place.
func (e *AppError) WithDetailsf(format string, args ...interface{}) *AppError {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError builds a not-found error for the named resource kind.
func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource))
}

// NewInvalidStateError builds an invalid-state error.
func NewInvalidStateError(message string) *AppError {
	return New(ErrorTypeInvalidState, message)
}

// NewInvalidInputError builds an invalid-input error.
func NewInvalidInputError(message string) *AppError {
	return New(ErrorTypeInvalidInput, message)
}

// NewStorageError wraps a backend failure for the named operation.
func NewStorageError(operation string, cause error) *AppError {
	return Wrap(cause, ErrorTypeStorage, fmt.Sprintf("storage operation failed: %s", operation))
}

// NewSerializationError builds a serialization error.
func NewSerializationError(message string) *AppError {
	return New(ErrorTypeSerialization, message)
}

// NewCircuitBreakerOpenError builds a circuit-breaker-open error carrying a
// retry-after hint.
func NewCircuitBreakerOpenError(retryAfter time.Duration) *AppError {
	return New(ErrorTypeCircuitBreakerOpen, "circuit breaker is open").
		WithDetailsf("retry_after=%s", retryAfter)
}

// NewConflictError builds a conflict error.
func NewConflictError(message string) *AppError {
	return New(ErrorTypeConflict, message)
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	return appErr.Type == t
}

// GetType returns err's ErrorType, defaulting to ErrorTypeStorage for
// errors that are not an AppError.
func GetType(err error) ErrorType {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type
	}
	return ErrorTypeStorage
}

// GetStatusCode returns the HTTP status code associated with err.
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// SafeErrorMessage returns a message suitable for presentation to an
// external caller: it never includes raw backend detail.
func SafeErrorMessage(err error) string {
	appErr, ok := err.(*AppError)
	if !ok {
		return "An unexpected error occurred"
	}

	switch appErr.Type {
	case ErrorTypeInvalidInput, ErrorTypeInvalidState:
		return appErr.Message
	case ErrorTypeNotFound:
		return ErrorMessages.ResourceNotFound
	case ErrorTypeCircuitBreakerOpen:
		return ErrorMessages.ServiceUnavailable
	case ErrorTypeConflict:
		return ErrorMessages.ConcurrentModification
	case ErrorTypeSerialization:
		return ErrorMessages.SerializationFailure
	case ErrorTypeStorage:
		return ErrorMessages.StorageFailure
	default:
		return "An internal error occurred"
	}
}

// LogFields produces structured logging fields describing err, suitable
// for a logrus.WithFields call.
func LogFields(err error) logging.Fields {
	fields := logging.NewFields()
	fields["error"] = err.Error()

	appErr, ok := err.(*AppError)
	if !ok {
		return fields
	}

	fields["error_type"] = string(appErr.Type)
	fields["status_code"] = appErr.StatusCode
	if appErr.Details != "" {
		fields["error_details"] = appErr.Details
	}
	if appErr.Cause != nil {
		fields["underlying_error"] = appErr.Cause.Error()
	}
	return fields
}

// Chain joins a sequence of errors (ignoring nils) into a single error
// message separated by " -> ". It returns nil if every error is nil, and
// returns the sole error unwrapped if exactly one is non-nil.
func Chain(errs ...error) error {
	var nonNil []string
	var first error
	count := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		count++
		if first == nil {
			first = err
		}
		nonNil = append(nonNil, err.Error())
	}

	switch count {
	case 0:
		return nil
	case 1:
		return first
	default:
		return fmt.Errorf("%s", strings.Join(nonNil, " -> "))
	}
}
