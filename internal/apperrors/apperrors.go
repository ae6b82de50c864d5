// Package apperrors defines the uniform error envelope used across all
// fallible operations, plus the retryability classification applied at
// external call sites.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code tags an AppError with its failure class.
type Code string

const (
	CodeNetwork      Code = "NETWORK_ERROR"
	CodeTimeout      Code = "API_TIMEOUT"
	CodeRateLimit    Code = "API_RATE_LIMIT"
	CodeUnauthorized Code = "API_UNAUTHORIZED"
	CodeForbidden    Code = "API_FORBIDDEN"
	CodeNotFound     Code = "API_NOT_FOUND"
	CodeServer       Code = "API_SERVER_ERROR"
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeBusinessRule Code = "BUSINESS_RULE_VIOLATION"
	CodeStorageQuota Code = "STORAGE_QUOTA_EXCEEDED"
	CodeUnknown      Code = "UNKNOWN_ERROR"
)

// AppError is the error envelope crossing every fallible operation.
type AppError struct {
	Code      Code           `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	cause     error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// New creates an AppError with the given code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Timestamp: time.Now()}
}

// Wrap creates an AppError wrapping cause.
func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Timestamp: time.Now(), cause: cause}
}

// WithDetail attaches a key/value pair to the error details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// CodeOf extracts the Code from err, or CodeUnknown when err is not an
// AppError.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// Retryable reports whether an error class is transient and worth
// retrying with backoff. All other classes propagate immediately.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeNetwork, CodeTimeout, CodeRateLimit, CodeServer:
		return true
	}
	return false
}

// FromHTTPStatus maps an upstream HTTP status to an error class.
func FromHTTPStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusTooManyRequests:
		return CodeRateLimit
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return CodeTimeout
	case status >= 500:
		return CodeServer
	default:
		return CodeUnknown
	}
}

// HTTPStatus maps an error class to the status the API surfaces.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeBusinessRule:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
