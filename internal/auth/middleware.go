// Package auth provides the shared-secret authentication middleware for
// write operations.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/tfprivate/tfregistry/internal/api/common"
	"github.com/tfprivate/tfregistry/pkg/logger"
)

// HeaderName is the request header carrying the shared secret.
const HeaderName = "X-API-Key"

// RequireAPIKey returns a middleware that rejects requests whose
// X-API-Key header does not match the configured key. The comparison is
// constant-time so the response does not leak how much of the key matched.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(HeaderName)
			if presented == "" {
				common.WriteErrorResponse(w, http.StatusUnauthorized, "missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				logger.Warnf("Rejected request with invalid API key: %s %s", r.Method, r.URL.Path)
				common.WriteErrorResponse(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
