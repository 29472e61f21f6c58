package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyRole the caller must hold at least one of the listed roles.
// Must run after SessionAuthMiddleware.
func RequireAnyRole(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, role := range required {
		want[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeRoleError(w, http.StatusUnauthorized, required...)
				return
			}

			if _, ok := want[identity.Role]; !ok {
				writeRoleError(w, http.StatusForbidden, required...)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRoleError(w http.ResponseWriter, code int, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_role", role="`+strings.Join(required, " ")+`"`)
	w.WriteHeader(code)
	_, _ = w.Write([]byte("insufficient_role"))
}
