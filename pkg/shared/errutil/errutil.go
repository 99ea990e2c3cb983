// Package errutil provides lightweight error-wrapping helpers used across
// the storage and learning packages, independent of the structured
// AppError taxonomy in internal/errors. These helpers favor readable,
// human-facing error text over machine-checkable error kinds.
package errutil

import (
	"fmt"
	"strings"
)

// OperationError describes a failed operation together with the
// component and resource it was acting on, when known.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

// Error renders a comma-separated description of the failure, omitting
// any field that was left unset.
func (e *OperationError) Error() string {
	parts := []string{fmt.Sprintf("failed to %s", e.Operation)}
	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("component: %s", e.Component))
	}
	if e.Resource != "" {
		parts = append(parts, fmt.Sprintf("resource: %s", e.Resource))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %s", e.Cause))
	}
	return strings.Join(parts, ", ")
}

// Unwrap exposes the underlying cause for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo builds a simple "failed to {action}: {cause}" error. Unlike
// FailedToWithDetails, it does not carry component/resource context and
// is not an *OperationError.
func FailedTo(action string, cause error) error {
	if cause == nil {
		return fmt.Errorf("failed to %s", action)
	}
	return fmt.Errorf("failed to %s: %w", action, cause)
}

// FailedToWithDetails builds an *OperationError carrying component and
// resource context alongside the operation and cause.
func FailedToWithDetails(operation, component, resource string, cause error) error {
	return &OperationError{
		Operation: operation,
		Component: component,
		Resource:  resource,
		Cause:     cause,
	}
}

// Wrapf prefixes err with a formatted message, returning nil when err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}

// DatabaseError builds an OperationError for a failed database operation.
func DatabaseError(operation string, cause error) error {
	return FailedToWithDetails(operation, "database", "", cause)
}

// NetworkError builds an OperationError for a failed network call to endpoint.
func NetworkError(operation, endpoint string, cause error) error {
	return FailedToWithDetails(operation, "network", endpoint, cause)
}

// ValidationError builds a field-level validation error.
func ValidationError(field, message string) error {
	return fmt.Errorf("validation failed for field %s: %s", field, message)
}

// ConfigurationError builds an error describing a bad configuration setting.
func ConfigurationError(setting, message string) error {
	return fmt.Errorf("configuration error for setting %s: %s", setting, message)
}

// TimeoutError builds an error describing an operation that exceeded its deadline.
func TimeoutError(operation, duration string) error {
	return fmt.Errorf("timeout while %s after %s", operation, duration)
}

// AuthenticationError builds an authentication failure error.
func AuthenticationError(reason string) error {
	return fmt.Errorf("authentication failed: %s", reason)
}

// AuthorizationError builds an authorization failure error for an action on a resource.
func AuthorizationError(action, resource string) error {
	return fmt.Errorf("authorization failed: insufficient permissions to %s %s", action, resource)
}

// ParseError builds an OperationError for a failed parse of target as format.
func ParseError(target, format string, cause error) error {
	return FailedToWithDetails(fmt.Sprintf("parse %s as %s", target, format), "parser", "", cause)
}

var retryableSubstrings = []string{
	"timeout",
	"connection refused",
	"service unavailable",
	"connection reset",
	"temporary failure",
	"too many requests",
}

// IsRetryable reports whether err looks like a transient failure worth
// retrying, based on its message text.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range retryableSubstrings {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// Chain joins a sequence of errors (ignoring nils) with "; ", prefixed by
// "multiple errors: " when more than one is present. It returns nil when
// every error is nil, and returns the sole error unwrapped when exactly
// one is non-nil.
func Chain(errs ...error) error {
	var msgs []string
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
		msgs = append(msgs, err.Error())
	}

	switch count {
	case 0:
		return nil
	case 1:
		return first
	default:
		return fmt.Errorf("multiple errors: %s", strings.Join(msgs, "; "))
	}
}
