package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/igorsal/commit-bridge/internal/interfaces"
	pkgerrors "github.com/igorsal/commit-bridge/pkg/errors"
)

// AdminTokenAuth requires "Authorization: Bearer <token>" matching token.
// An empty token rejects every request.
func AdminTokenAuth(token string, logger interfaces.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := extractToken(r)
			if got == "" {
				WriteError(w, r, logger, pkgerrors.NewUnauthorizedError("authorization token required"))
				return
			}

			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				WriteError(w, r, logger, pkgerrors.NewUnauthorizedError("invalid token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	return ""
}
