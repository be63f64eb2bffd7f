package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced to API callers. They double as the "error" field of
// the JSON error envelope.
const (
	KindInvalidRequest      = "InvalidRequest"
	KindUpstreamUnavailable = "UpstreamUnavailable"
	KindInternal            = "InternalError"
)

// CustomError represents a custom application error
type CustomError struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Err     error  `json:"-"`
}

func (e *CustomError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewInvalidRequestError is returned for malformed query criteria.
func NewInvalidRequestError(detail string) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Kind:    KindInvalidRequest,
		Message: "Invalid request",
		Detail:  detail,
	}
}

// NewUpstreamUnavailableError wraps the final fetch failure when no snapshot
// is available to fall back on. Detail stays server side.
func NewUpstreamUnavailableError(cause error) *CustomError {
	return &CustomError{
		Code:    http.StatusServiceUnavailable,
		Kind:    KindUpstreamUnavailable,
		Message: "Inventory source is currently unavailable",
		Err:     cause,
	}
}

func NewInternalError(cause error) *CustomError {
	return &CustomError{
		Code:    http.StatusInternalServerError,
		Kind:    KindInternal,
		Message: "Internal server error",
		Err:     cause,
	}
}

// AsCustomError classifies err, mapping anything unknown to an internal error.
func AsCustomError(err error) *CustomError {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}
	return NewInternalError(err)
}
