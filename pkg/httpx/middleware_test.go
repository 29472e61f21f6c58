package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartclassroom/authd/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})

	httpx.Chain(handler, mw("outer"), mw("inner")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

type stubVerifier struct {
	identity httpx.Identity
	err      error
}

func (v *stubVerifier) VerifySession(_ context.Context, token string) (httpx.Identity, error) {
	if v.err != nil {
		return httpx.Identity{}, v.err
	}
	return v.identity, nil
}

func TestSessionAuthMiddleware(t *testing.T) {
	identity := httpx.Identity{UserID: 7, StudentID: "STU007", Role: "student"}

	t.Run("injects identity and token", func(t *testing.T) {
		var gotIdentity httpx.Identity
		var gotToken string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotIdentity, _ = httpx.IdentityFromContext(r.Context())
			gotToken, _ = httpx.TokenFromContext(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer sometoken")
		rec := httptest.NewRecorder()

		httpx.SessionAuthMiddleware(&stubVerifier{identity: identity})(handler).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, identity, gotIdentity)
		require.Equal(t, "sometoken", gotToken)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		httpx.SessionAuthMiddleware(&stubVerifier{identity: identity})(okHandler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("rejects failed verification", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer expiredtoken")

		verifier := &stubVerifier{err: errors.New("expired")}
		httpx.SessionAuthMiddleware(verifier)(okHandler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAnyRole(t *testing.T) {
	serve := func(role string, required ...string) *httptest.ResponseRecorder {
		verifier := &stubVerifier{identity: httpx.Identity{UserID: 1, StudentID: "STU001", Role: role}}
		handler := httpx.Chain(okHandler(),
			httpx.SessionAuthMiddleware(verifier),
			httpx.RequireAnyRole(required...),
		)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, serve("admin", "admin").Code)
	require.Equal(t, http.StatusOK, serve("instructor", "admin", "instructor").Code)
	require.Equal(t, http.StatusForbidden, serve("student", "admin").Code)
}

func TestRequireAnyRoleWithoutIdentity(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	httpx.RequireAnyRole("admin")(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
