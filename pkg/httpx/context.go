package httpx

import "context"

type ctxKey string

const (
	CtxKeyIdentity ctxKey = "identity"
	CtxKeyToken    ctxKey = "session_token"
)

// Identity is the authenticated caller attached to the request context by
// SessionAuthMiddleware.
type Identity struct {
	UserID    int64
	StudentID string
	Role      string
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(CtxKeyIdentity).(Identity)
	return id, ok
}

// TokenFromContext returns the raw session token the caller presented.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(CtxKeyToken).(string)
	return t, ok
}
