// Package errors implements the domain error taxonomy from spec §7 as a
// typed AppError, so every layer above a component implementation can
// classify a failure the same way: does it short-circuit the whole query,
// or does it only degrade one contribution?
package errors

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// ErrorType is the closed set of error conditions spec §7 names.
type ErrorType string

const (
	// ErrorTypeNoOrigin: parse produced no origin. Short-circuits the query.
	ErrorTypeNoOrigin ErrorType = "no_origin"
	// ErrorTypeAdapterUnavailable: a source dataset is missing/malformed. Absorbed, logged.
	ErrorTypeAdapterUnavailable ErrorType = "adapter_unavailable"
	// ErrorTypeExtractorUnavailable: the LLM collaborator errored/timed out. Fallback taken.
	ErrorTypeExtractorUnavailable ErrorType = "extractor_unavailable"
	// ErrorTypeRouterUnavailable: the external routing collaborator errored/timed out. Degrade to straight-line.
	ErrorTypeRouterUnavailable ErrorType = "router_unavailable"
	// ErrorTypeNoPath: no route could be produced by any fallback. Route omitted.
	ErrorTypeNoPath ErrorType = "no_path"
	// ErrorTypeTimeout: the whole-query deadline was exceeded.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeResourceExhausted: the admission queue bound was exceeded. Short-circuits immediately.
	ErrorTypeResourceExhausted ErrorType = "resource_exhausted"
	// ErrorTypeInvalidInput: malformed timestamp/coordinate/event kind. Record discarded, counted.
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	// ErrorTypeInternal is the catch-all for anything not named above.
	ErrorTypeInternal ErrorType = "internal"
)

// AppError classifies a failure with enough structure to both log it and,
// if this process ever grows an HTTP surface, answer it with the right
// status code.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    string
	StatusCode int
	Cause      error
}

// New creates an AppError of the given type with its status code derived
// from the taxonomy mapping below.
func New(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: statusCodeFor(t)}
}

// Wrap creates an AppError of the given type around an existing cause.
func Wrap(cause error, t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, Cause: cause, StatusCode: statusCodeFor(t)}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(cause error, t ErrorType, format string, args ...any) *AppError {
	return Wrap(cause, t, fmt.Sprintf(format, args...))
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Details != "" {
		msg += fmt.Sprintf(" (%s)", e.Details)
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithDetails sets Details in place and returns the same *AppError.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithDetailsf sets a formatted Details string in place.
func (e *AppError) WithDetailsf(format string, args ...any) *AppError {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

func statusCodeFor(t ErrorType) int {
	switch t {
	case ErrorTypeNoOrigin, ErrorTypeInvalidInput:
		return http.StatusBadRequest
	case ErrorTypeNoPath:
		return http.StatusNotFound
	case ErrorTypeTimeout:
		return http.StatusRequestTimeout
	case ErrorTypeResourceExhausted:
		return http.StatusTooManyRequests
	case ErrorTypeExtractorUnavailable, ErrorTypeRouterUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeAdapterUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Predefined constructors, one per taxonomy entry.

func NewNoOriginError(reason string) *AppError {
	return New(ErrorTypeNoOrigin, reason)
}

func NewAdapterUnavailableError(source string, cause error) *AppError {
	return Wrapf(cause, ErrorTypeAdapterUnavailable, "adapter unavailable: %s", source)
}

func NewExtractorUnavailableError(cause error) *AppError {
	return Wrap(cause, ErrorTypeExtractorUnavailable, "extractor collaborator unavailable")
}

func NewRouterUnavailableError(cause error) *AppError {
	return Wrap(cause, ErrorTypeRouterUnavailable, "routing collaborator unavailable")
}

func NewNoPathError(origin, destination string) *AppError {
	return New(ErrorTypeNoPath, fmt.Sprintf("no path found from %s to %s", origin, destination))
}

func NewTimeoutError(operation string) *AppError {
	return New(ErrorTypeTimeout, fmt.Sprintf("operation timed out: %s", operation))
}

func NewResourceExhaustedError(reason string) *AppError {
	return New(ErrorTypeResourceExhausted, reason)
}

func NewInvalidInputError(field, reason string) *AppError {
	return New(ErrorTypeInvalidInput, fmt.Sprintf("%s: %s", field, reason))
}

// IsType reports whether err is an *AppError of type t.
func IsType(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == t
}

// GetType returns err's AppError type, or ErrorTypeInternal if err isn't one.
func GetType(err error) ErrorType {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetStatusCode returns err's mapped status code, or 500 if err isn't an AppError.
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// ErrorMessages are the canned, caller-safe messages for each error type —
// safe to surface to an end user without leaking internal detail.
var ErrorMessages = struct {
	NoPathFound       string
	ExtractorDegraded string
	RouterDegraded    string
	OperationTimeout  string
	QueueExhausted    string
}{
	NoPathFound:       "no delivery route could be found",
	ExtractorDegraded: "natural-language parsing degraded to keyword matching",
	RouterDegraded:    "routing degraded to a direct-distance estimate",
	OperationTimeout:  "the request took too long and returned partial results",
	QueueExhausted:    "too many requests in flight, try again shortly",
}

// SafeErrorMessage returns a message safe to show a caller: the literal
// message for validation-shaped errors (already user-facing text), a canned
// message for every other known type, and a generic fallback otherwise.
func SafeErrorMessage(err error) string {
	appErr, ok := err.(*AppError)
	if !ok {
		return "An unexpected error occurred"
	}
	switch appErr.Type {
	case ErrorTypeNoOrigin, ErrorTypeInvalidInput:
		return appErr.Message
	case ErrorTypeNoPath:
		return ErrorMessages.NoPathFound
	case ErrorTypeExtractorUnavailable:
		return ErrorMessages.ExtractorDegraded
	case ErrorTypeRouterUnavailable:
		return ErrorMessages.RouterDegraded
	case ErrorTypeTimeout:
		return ErrorMessages.OperationTimeout
	case ErrorTypeResourceExhausted:
		return ErrorMessages.QueueExhausted
	default:
		return "An internal error occurred"
	}
}

// LogFields turns err into a logrus.Fields set suitable for WithFields,
// whether or not it's an AppError.
func LogFields(err error) logrus.Fields {
	fields := logrus.Fields{"error": err.Error()}
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

// Chain joins non-nil errors with " -> ", or returns the single error
// unchanged, or nil if none are set.
func Chain(errs ...error) error {
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		msg := nonNil[0].Error()
		for _, e := range nonNil[1:] {
			msg += " -> " + e.Error()
		}
		return fmt.Errorf("%s", msg)
	}
}
