// AngelaMos | 2026
// auth.go

package middleware

import (
	"net/http"
	"strings"

	"github.com/angelamos/gatekeeper/internal/core"
)

const sharedSecretScheme = "sharedsecret"

// SharedSecretAuth guards the admin surface. Callers authenticate with
// "Authorization: SharedSecret <secret>"; comparison is constant-time.
func SharedSecretAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := extractSharedSecret(r)
			if presented == "" {
				core.Unauthorized(w)
				return
			}

			if !core.SecureCompare(presented, secret) {
				core.Unauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractSharedSecret(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], sharedSecretScheme) {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
