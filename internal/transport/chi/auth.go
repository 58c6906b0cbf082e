package chi

import (
	"net/http"
	"strings"

	"github.com/fusegate/fusegate/internal/domain"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// anonymousTenant is used when authentication is disabled.
const anonymousTenant = "default"

// BearerAuthMiddleware validates Bearer tokens and resolves the tenant
// identity behind each API key. The pipeline trusts this mapping.
// With an empty key map, authentication is disabled and every request
// runs as the default tenant.
func BearerAuthMiddleware(identities map[string]domain.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if len(identities) == 0 {
				ctx := domain.ContextWithIdentity(r.Context(), domain.Identity{
					TenantID: anonymousTenant,
					OpClass:  domain.DefaultOpClass,
				})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "authorization header must use Bearer scheme")
				return
			}

			id, ok := identities[auth[len(bearerPrefix):]]
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid api key")
				return
			}
			if id.OpClass == "" {
				id.OpClass = domain.DefaultOpClass
			}

			next.ServeHTTP(w, r.WithContext(domain.ContextWithIdentity(r.Context(), id)))
		})
	}
}
