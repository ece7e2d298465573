package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorClass represents the classification of an error for retry and recovery logic.
type ErrorClass string

const (
	// ErrorClassTransient indicates a temporary failure that may succeed on retry.
	// Examples: network timeouts, 5xx responses from FunctionGraph.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassThrottled indicates rate limiting or quota exhaustion.
	ErrorClassThrottled ErrorClass = "throttled"

	// ErrorClassConflict indicates a resource state conflict.
	// Examples: a trigger was created concurrently with the same event data.
	ErrorClassConflict ErrorClass = "conflict"

	// ErrorClassPermanent indicates a non-recoverable error.
	// Examples: invalid declared configuration, permission denied.
	ErrorClassPermanent ErrorClass = "permanent"
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification for retry logic.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Resource is the function URN or trigger kind that caused the error.
	Resource string `json:"resource,omitempty"`

	// Operation is the remote operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	switch {
	case e.Resource != "" && e.Operation != "":
		return fmt.Sprintf("[%s] %s (resource=%s, operation=%s)", e.Class, msg, e.Resource, e.Operation)
	case e.Resource != "":
		return fmt.Sprintf("[%s] %s (resource=%s)", e.Class, msg, e.Resource)
	default:
		return fmt.Sprintf("[%s] %s", e.Class, msg)
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// Field returns the configuration field recorded on the error, if any.
func (e *EngineError) Field() string {
	if f, ok := e.Details[DetailField].(string); ok {
		return f
	}
	return ""
}

// NewTransientError creates a new transient error.
func NewTransientError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassTransient, Message: message, Err: err}
}

// NewThrottledError creates a new throttled error.
func NewThrottledError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassThrottled, Message: message, Err: err}
}

// NewConflictError creates a new conflict error.
func NewConflictError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassConflict, Message: message, Err: err}
}

// NewPermanentError creates a new permanent error.
func NewPermanentError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassPermanent, Message: message, Err: err}
}

// NewConfigurationError reports a declared configuration that cannot be
// reconciled. It is always raised before any remote call.
func NewConfigurationError(field, message string) *EngineError {
	return NewPermanentError(message, nil).
		WithCode(ErrCodeConfiguration).
		WithDetail(DetailField, field)
}

// NewRemoteOperationError wraps a failed create, update or delete call. The
// class is derived from the HTTP status carried by err, when there is one.
func NewRemoteOperationError(operation, resource string, err error) *EngineError {
	e := &EngineError{
		Class:   ClassifyStatus(statusOf(err)),
		Message: "remote operation failed",
		Err:     err,
	}
	return e.WithCode(ErrCodeRemoteOperation).WithOperation(operation).WithResource(resource)
}

// NewLookupError wraps a read failure that could not be told apart from absence.
func NewLookupError(resource string, err error) *EngineError {
	e := &EngineError{
		Class:   ClassifyStatus(statusOf(err)),
		Message: "remote lookup failed",
		Err:     err,
	}
	return e.WithCode(ErrCodeLookupFailed).WithOperation("lookup").WithResource(resource)
}

// ClassifyStatus maps an HTTP status code to an error class. Zero means the
// request never produced a response.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassThrottled
	case status == http.StatusConflict:
		return ErrorClassConflict
	case status == 0 || status >= http.StatusInternalServerError:
		return ErrorClassTransient
	default:
		return ErrorClassPermanent
	}
}

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

func statusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// WithResource adds resource context to an error.
func (e *EngineError) WithResource(resourceID string) *EngineError {
	e.Resource = resourceID
	return e
}

// WithOperation adds operation context to an error.
func (e *EngineError) WithOperation(operation string) *EngineError {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func hasCode(err error, code string) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func hasClass(err error, class ErrorClass) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

// IsTransient returns true if the error is classified as transient.
func IsTransient(err error) bool { return hasClass(err, ErrorClassTransient) }

// IsThrottled returns true if the error is classified as throttled.
func IsThrottled(err error) bool { return hasClass(err, ErrorClassThrottled) }

// IsConflict returns true if the error is classified as a conflict.
func IsConflict(err error) bool { return hasClass(err, ErrorClassConflict) }

// IsPermanent returns true if the error is classified as permanent.
func IsPermanent(err error) bool { return hasClass(err, ErrorClassPermanent) }

// IsRetryable returns true if the error can be retried.
// Transient, throttled, and conflict errors are retryable.
func IsRetryable(err error) bool {
	return IsTransient(err) || IsThrottled(err) || IsConflict(err)
}

// IsConfigurationError reports whether err is a declared-configuration error.
func IsConfigurationError(err error) bool { return hasCode(err, ErrCodeConfiguration) }

// IsRemoteOperationError reports whether err is a failed remote mutation.
func IsRemoteOperationError(err error) bool { return hasCode(err, ErrCodeRemoteOperation) }

// IsLookupError reports whether err is a strict-mode lookup failure.
func IsLookupError(err error) bool { return hasCode(err, ErrCodeLookupFailed) }

// IsPolicyViolation reports whether err was raised by the policy gate.
func IsPolicyViolation(err error) bool { return hasCode(err, ErrCodePolicyViolation) }

// Error codes.
const (
	ErrCodeConfiguration   = "CONFIGURATION_ERROR"
	ErrCodeRemoteOperation = "REMOTE_OPERATION_FAILED"
	ErrCodeLookupFailed    = "LOOKUP_FAILED"
	ErrCodePolicyViolation = "POLICY_VIOLATION"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// DetailField is the Details key naming the offending configuration field.
const DetailField = "field"
