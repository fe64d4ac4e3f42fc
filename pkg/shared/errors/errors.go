// Package errors provides a lightweight "failed to X, cause: Y" wrapper used
// throughout the component implementations. It sits below internal/errors,
// which classifies failures into the domain taxonomy at the pipeline
// boundary.
package errors

import (
	"fmt"
	"strings"
)

// OperationError describes a failed operation with enough context to
// diagnose it without a stack trace: what was being done, what component
// was doing it, which resource it touched, and the underlying cause.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	msg := "failed to " + e.Operation
	if e.Component != "" {
		msg += ", component: " + e.Component
	}
	if e.Resource != "" {
		msg += ", resource: " + e.Resource
	}
	if e.Cause != nil {
		msg += ", cause: " + e.Cause.Error()
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo builds a minimal OperationError from just an action and a cause.
// Returns the *OperationError typed as error; FailedTo(action, nil) still
// produces a sensible "failed to X" message.
func FailedTo(action string, cause error) error {
	return &OperationError{Operation: action, Cause: cause}
}

// FailedToWithDetails builds a fully-populated OperationError.
func FailedToWithDetails(action, component, resource string, cause error) error {
	return &OperationError{Operation: action, Component: component, Resource: resource, Cause: cause}
}

// Wrapf formats a message and attaches it ahead of cause's own text,
// mirroring fmt.Errorf's %w ergonomics but returning nil when cause is nil
// so call sites can unconditionally wrap a possibly-nil error.
func Wrapf(cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), cause)
}

// CacheError wraps a failure talking to the Redis-backed tick cache.
func CacheError(operation string, cause error) error {
	return &OperationError{Operation: operation, Component: "cache", Cause: cause}
}

// NetworkError wraps a failure reaching an external collaborator (the
// routing service, the Extractor's LLM endpoint, Slack).
func NetworkError(operation, endpoint string, cause error) error {
	return &OperationError{Operation: operation, Component: "network", Resource: endpoint, Cause: cause}
}

// ValidationError reports a single field-level validation failure.
func ValidationError(field, reason string) error {
	return fmt.Errorf("validation failed for field %s: %s", field, reason)
}

// ConfigurationError reports a misconfigured setting.
func ConfigurationError(setting, reason string) error {
	return fmt.Errorf("configuration error for setting %s: %s", setting, reason)
}

// TimeoutError reports an operation that exceeded its deadline.
func TimeoutError(operation, after string) error {
	return fmt.Errorf("timeout while %s after %s", operation, after)
}

// AuthenticationError reports a failed credential check against a
// collaborator (LLM API key, router API key).
func AuthenticationError(reason string) error {
	return fmt.Errorf("authentication failed: %s", reason)
}

// AuthorizationError reports an action a caller wasn't permitted to take.
func AuthorizationError(action, resource string) error {
	return fmt.Errorf("authorization failed: insufficient permissions to %s %s", action, resource)
}

// ParseError wraps a decode failure for a given format (JSON dataset,
// GeoJSON feature collection, YAML config).
func ParseError(what, format string, cause error) error {
	return &OperationError{Operation: fmt.Sprintf("parse %s as %s", what, format), Cause: cause}
}

// retryableSubstrings are substrings of transient error messages worth
// retrying — timeouts, refused/reset connections, temporary unavailability.
var retryableSubstrings = []string{
	"timeout", "connection refused", "connection reset",
	"service unavailable", "temporarily unavailable", "EOF",
}

// IsRetryable reports whether err looks like a transient failure worth
// retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// Chain joins multiple non-nil errors into one, or returns nil if none are
// set.
func Chain(errs ...error) error {
	var msgs []string
	for _, e := range errs {
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	}
	switch len(msgs) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s", msgs[0])
	default:
		return fmt.Errorf("multiple errors: %s", strings.Join(msgs, "; "))
	}
}
