package middleware

import (
	"net"
	"net/http"

	"github.com/igorsal/commit-bridge/internal/interfaces"
	pkgerrors "github.com/igorsal/commit-bridge/pkg/errors"
)

// Limiter decides whether one more request for key may proceed
type Limiter interface {
	Allow(key string) bool
}

// RateLimitMiddleware rejects requests over the limit with 429. Buckets are
// kept per scope and client address, so one noisy sender cannot exhaust the
// budget of another.
func RateLimitMiddleware(limiter Limiter, scope string, logger interfaces.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(scope + "|" + clientIP(r)) {
				w.Header().Set("Retry-After", "60")
				WriteError(w, r, logger, pkgerrors.NewRateLimitError(scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the TCP peer address. Forwarding headers are not trusted since
// any sender can set them to rotate buckets.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
