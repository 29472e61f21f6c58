package http

import (
	"encoding/json"
	"net/http"

	"github.com/smartclassroom/authd/internal/auth/domain"
	"github.com/smartclassroom/authd/internal/auth/service"
	"github.com/smartclassroom/authd/pkg/httpx"
)

// AuthHandler serves the login, logout, registration, session and
// password-change endpoints.
type AuthHandler struct {
	AuthService    *service.AuthService
	AccountService *service.AccountService
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.StudentID == "" || req.Password == "" {
		writeBadRequest(w, "student_id and password are required")
		return
	}

	user, session, err := h.AuthService.Login(r.Context(),
		req.StudentID, req.Password, httpx.IPKeyExtractor(r), r.UserAgent())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      toUserResponse(user),
	})
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := httpx.TokenFromContext(r.Context())
	if !ok {
		// Unauthenticated logout is still a success; there is nothing to end.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.AuthService.Logout(r.Context(), token, httpx.IPKeyExtractor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	token, ok := httpx.TokenFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, service.ErrSessionNotFound)
		return
	}

	user, session, err := h.AuthService.ValidateSession(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, SessionResponse{
		User:      toUserResponse(user),
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	})
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.StudentID == "" || req.Email == "" || req.Password == "" {
		writeBadRequest(w, "student_id, email and password are required")
		return
	}

	// Self-registration is always a student; elevated roles go through the
	// admin surface.
	user, err := h.AccountService.Register(r.Context(), service.RegisterParams{
		StudentID: req.StudentID,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.RoleStudent,
	}, httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, service.ErrSessionNotFound)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeBadRequest(w, "current_password and new_password are required")
		return
	}

	err := h.AccountService.ChangePassword(r.Context(),
		identity.UserID, req.CurrentPassword, req.NewPassword, httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
