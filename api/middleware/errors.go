package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/igorsal/commit-bridge/internal/interfaces"
	pkgerrors "github.com/igorsal/commit-bridge/pkg/errors"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"trace_id,omitempty"`
}

type ErrorDetail struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// WriteError writes a structured error response. Non-AppErrors are reported
// as internal errors without leaking their message.
func WriteError(w http.ResponseWriter, r *http.Request, logger interfaces.Logger, err error) {
	var statusCode int
	var errorResp ErrorResponse

	if appErr, ok := pkgerrors.AsAppError(err); ok {
		statusCode = appErr.StatusCode
		errorResp = ErrorResponse{
			Error: ErrorDetail{
				Type:    string(appErr.Type),
				Message: appErr.Message,
				Code:    appErr.Code,
				Context: appErr.Context,
			},
		}
	} else {
		statusCode = http.StatusInternalServerError
		errorResp = ErrorResponse{
			Error: ErrorDetail{
				Type:    string(pkgerrors.ErrorTypeInternal),
				Message: "Internal server error",
			},
		}
	}
	errorResp.TraceID = w.Header().Get(RequestIDHeader)

	fields := []interface{}{
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"status_code", statusCode,
		"error_type", errorResp.Error.Type,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("Request error", err, fields...)
	} else {
		logger.Warn("Request rejected", append(fields, "error", err.Error())...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if encErr := json.NewEncoder(w).Encode(errorResp); encErr != nil {
		logger.Error("Failed to encode error response", encErr)
	}
}

// PanicRecoveryMiddleware recovers from panics and converts them to errors
func PanicRecoveryMiddleware(logger interfaces.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovery := recover(); recovery != nil {
					logger.Error("Panic recovered",
						pkgerrors.NewInternalError("panic recovered"),
						"method", r.Method,
						"path", r.URL.Path,
						"remote_addr", r.RemoteAddr,
						"panic", recovery,
					)

					WriteError(w, r, logger, pkgerrors.NewInternalError("Internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
