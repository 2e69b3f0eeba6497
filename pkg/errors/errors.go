package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeParse        ErrorType = "parse"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeExternal     ErrorType = "external"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeUnavailable  ErrorType = "unavailable"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	StatusCode int                    `json:"status_code"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// Error constructors
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewParseError reports a webhook payload that could not be decoded or is
// missing required fields.
func NewParseError(provider, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeParse,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Context:    map[string]interface{}{"provider": provider},
	}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewExternalError(service, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Message:    fmt.Sprintf("%s service error: %s", service, message),
		StatusCode: http.StatusBadGateway,
		Context:    map[string]interface{}{"service": service},
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewRateLimitError(service string) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    fmt.Sprintf("Rate limit exceeded for %s", service),
		StatusCode: http.StatusTooManyRequests,
		Context:    map[string]interface{}{"service": service},
	}
}

func NewTimeoutError(service string, timeout string) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    fmt.Sprintf("Timeout calling %s after %s", service, timeout),
		StatusCode: http.StatusGatewayTimeout,
		Context:    map[string]interface{}{"service": service, "timeout": timeout},
	}
}

func NewUnavailableError(service string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Message:    fmt.Sprintf("Service %s is unavailable", service),
		StatusCode: http.StatusServiceUnavailable,
		Context:    map[string]interface{}{"service": service},
	}
}

// AsAppError finds the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type
func IsType(err error, t ErrorType) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == t
}
