package middleware

import (
	"context"
	"net/http"
	"strings"
)

// PrincipalHeader carries the opaque id of the caller. User accounts live in
// an external identity system, so the id is taken as-is and threaded through
// the request context for access checks.
const PrincipalHeader = "X-User-Id"

type principalKey struct{}

func PrincipalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := strings.TrimSpace(r.Header.Get(PrincipalHeader))
		if principal != "" {
			r = r.WithContext(context.WithValue(r.Context(), principalKey{}, principal))
		}
		next.ServeHTTP(w, r)
	})
}

// PrincipalFromContext returns the caller id, or "" when the header was absent.
func PrincipalFromContext(ctx context.Context) string {
	principal, _ := ctx.Value(principalKey{}).(string)
	return principal
}
