package http

import (
	"context"

	"github.com/smartclassroom/authd/internal/auth/service"
	"github.com/smartclassroom/authd/pkg/httpx"
)

// sessionVerifier adapts AuthService to the httpx middleware interface.
type sessionVerifier struct {
	auth *service.AuthService
}

func (v *sessionVerifier) VerifySession(ctx context.Context, token string) (httpx.Identity, error) {
	user, _, err := v.auth.ValidateSession(ctx, token)
	if err != nil {
		return httpx.Identity{}, err
	}
	return httpx.Identity{
		UserID:    user.ID,
		StudentID: user.StudentID,
		Role:      string(user.Role),
	}, nil
}
