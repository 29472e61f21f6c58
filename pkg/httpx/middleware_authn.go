package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/smartclassroom/authd/pkg/slogx"
)

// SessionVerifier resolves an opaque bearer token to an identity.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (Identity, error)
}

func SessionAuthMiddleware(v SessionVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			identity, err := v.VerifySession(ctx, raw)
			if err != nil {
				writeBearerError(w, "session verification failed")
				log.Warn("session verify failed", "err", err)
				return
			}

			// Inject into context for downstream handlers.
			ctx = context.WithValue(ctx, CtxKeyIdentity, identity)
			ctx = context.WithValue(ctx, CtxKeyToken, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
