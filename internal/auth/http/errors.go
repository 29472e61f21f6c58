package http

import (
	"errors"
	"net/http"

	"github.com/smartclassroom/authd/internal/auth/service"
	"github.com/smartclassroom/authd/pkg/httpx"
	"github.com/smartclassroom/authd/pkg/slogx"
)

// writeServiceError translates service errors into HTTP responses. The
// invalid-credentials message is deliberately identical for unknown ids
// and wrong passwords.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		lockErr   *service.AccountLockedError
		policyErr *service.PolicyViolationError
	)

	switch {
	case errors.As(err, &lockErr):
		httpx.WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{
			Error:            "account_locked",
			ErrorDescription: "account temporarily locked due to repeated failures",
			MinutesRemaining: lockErr.MinutesRemaining,
		})
	case errors.As(err, &policyErr):
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:            "password_policy_violation",
			ErrorDescription: "password does not meet the policy",
			Violations:       policyErr.Violations,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:            "invalid_credentials",
			ErrorDescription: "student id or password is incorrect",
		})
	case errors.Is(err, service.ErrAccountDisabled):
		httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
			Error:            "account_disabled",
			ErrorDescription: "this account has been disabled",
		})
	case errors.Is(err, service.ErrSessionExpired):
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:            "session_expired",
			ErrorDescription: "session has expired, log in again",
		})
	case errors.Is(err, service.ErrSessionNotFound):
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:            "invalid_session",
			ErrorDescription: "session is invalid or has been revoked",
		})
	case errors.Is(err, service.ErrDuplicateIdentity):
		httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
			Error:            "duplicate_identity",
			ErrorDescription: "student id or email is already registered",
		})
	case errors.Is(err, service.ErrPasswordReused):
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:            "password_reused",
			ErrorDescription: "new password was used recently, choose a different one",
		})
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_role",
			ErrorDescription: "role must be student, instructor or admin",
		})
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
			Error: "user_not_found",
		})
	case errors.Is(err, service.ErrNotAuthorized):
		httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
			Error: "not_authorized",
		})
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "server_error",
		})
	}
}

func writeBadRequest(w http.ResponseWriter, desc string) {
	httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:            "bad_request",
		ErrorDescription: desc,
	})
}
