package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/igorsal/commit-bridge/internal/interfaces"
)

// MetricsMiddleware tracks HTTP request metrics
func MetricsMiddleware(metrics interfaces.MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			labels := map[string]string{
				"method":      r.Method,
				"endpoint":    endpointLabel(r),
				"status_code": strconv.Itoa(wrapped.statusCode),
			}

			metrics.IncrementCounter("http_requests_total", labels)
			metrics.RecordDuration("http_request_duration_seconds", duration, labels)
		})
	}
}

// endpointLabel uses the matched route template so unknown paths cannot
// grow the label set
func endpointLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
