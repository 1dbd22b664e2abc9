// Package errors provides unified error handling for the component scheduler.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code.
type ErrorCode string

const (
	// Registry errors (1xxx) - caller errors, thrown synchronously per spec §7.
	ErrCodeBadKind ErrorCode = "REG_1001"
	ErrCodeBadTag  ErrorCode = "REG_1002"

	// Activation execution errors (2xxx) - reject the activation's observing future.
	ErrCodeNoCallback     ErrorCode = "ACT_2001"
	ErrCodeNoElements     ErrorCode = "ACT_2002"
	ErrCodeNoDataFactory  ErrorCode = "ACT_2003"
	ErrCodeCallbackFailed ErrorCode = "ACT_2004"

	// Queue-level errors (3xxx) - fatal for the drain call, flush trailing activations.
	ErrCodeScriptLoadFailed ErrorCode = "QUEUE_3001"

	// Envelope decoding errors (4xxx).
	ErrCodeInvalidEnvelope ErrorCode = "ENV_4001"
	ErrCodeInvalidBase64   ErrorCode = "ENV_4002"

	// General service errors (5xxx).
	ErrCodeInternal      ErrorCode = "SVC_5001"
	ErrCodeNotFound      ErrorCode = "SVC_5002"
	ErrCodeInvalidInput  ErrorCode = "SVC_5003"
	ErrCodeUnavailable   ErrorCode = "SVC_5004"
)

// ServiceError represents a structured error with code, message, and HTTP status.
type ServiceError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails adds additional details to the error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new ServiceError.
func New(code ErrorCode, message string, httpStatus int) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error with a ServiceError.
func Wrap(code ErrorCode, message string, httpStatus int, err error) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// BadKind reports an asset-kind value outside {script, stylesheet}.
func BadKind(kind string) *ServiceError {
	return New(ErrCodeBadKind, "unknown asset kind", http.StatusBadRequest).
		WithDetails("kind", kind)
}

// BadTag reports a tag descriptor whose tag field mismatches the operation.
func BadTag(want, got string) *ServiceError {
	return New(ErrCodeBadTag, "tag descriptor kind mismatch", http.StatusBadRequest).
		WithDetails("want", want).
		WithDetails("got", got)
}

// NoCallback reports an activation that reached execution with no registered callbacks.
func NoCallback(classID string) *ServiceError {
	return New(ErrCodeNoCallback, "no callbacks registered for component class", http.StatusConflict).
		WithDetails("class_id", classID)
}

// NoElements reports an activation whose instance marker matched nothing in the host.
func NoElements(instanceID string) *ServiceError {
	return New(ErrCodeNoElements, "no elements found for instance", http.StatusConflict).
		WithDetails("instance_id", instanceID)
}

// NoDataFactory reports an activation whose data factory disappeared between readiness and execution.
func NoDataFactory(classID, dataHash string) *ServiceError {
	return New(ErrCodeNoDataFactory, "no data factory registered", http.StatusConflict).
		WithDetails("class_id", classID).
		WithDetails("data_hash", dataHash)
}

// CallbackFailed wraps a callback panic, thrown error, or rejection.
func CallbackFailed(classID, instanceID string, err error) *ServiceError {
	return Wrap(ErrCodeCallbackFailed, "component callback failed", http.StatusUnprocessableEntity, err).
		WithDetails("class_id", classID).
		WithDetails("instance_id", instanceID)
}

// ScriptLoadFailed reports an activation's wait-future rejecting, which flushes the queue.
func ScriptLoadFailed(classID, instanceID string, err error) *ServiceError {
	return Wrap(ErrCodeScriptLoadFailed, "upstream asset load failed, queue flushed", http.StatusFailedDependency, err).
		WithDetails("class_id", classID).
		WithDetails("instance_id", instanceID)
}

// InvalidEnvelope reports a malformed activation envelope payload.
func InvalidEnvelope(reason string) *ServiceError {
	return New(ErrCodeInvalidEnvelope, "invalid activation envelope", http.StatusBadRequest).
		WithDetails("reason", reason)
}

// InvalidBase64 reports a field that failed base64 decoding.
func InvalidBase64(field string, err error) *ServiceError {
	return Wrap(ErrCodeInvalidBase64, "invalid base64 field", http.StatusBadRequest, err).
		WithDetails("field", field)
}

// Internal wraps an unexpected internal error.
func Internal(message string, err error) *ServiceError {
	return Wrap(ErrCodeInternal, message, http.StatusInternalServerError, err)
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *ServiceError {
	return New(ErrCodeNotFound, "resource not found", http.StatusNotFound).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

// InvalidInput reports a caller-supplied value that failed validation.
func InvalidInput(field, reason string) *ServiceError {
	return New(ErrCodeInvalidInput, "invalid input", http.StatusBadRequest).
		WithDetails("field", field).
		WithDetails("reason", reason)
}

// Unavailable reports a dependency that could not service the request.
func Unavailable(what string, err error) *ServiceError {
	return Wrap(ErrCodeUnavailable, "dependency unavailable", http.StatusServiceUnavailable, err).
		WithDetails("what", what)
}

// IsServiceError checks if an error is a ServiceError.
func IsServiceError(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr)
}

// GetServiceError extracts a ServiceError from an error chain.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// GetHTTPStatus returns the HTTP status code for an error.
func GetHTTPStatus(err error) int {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
