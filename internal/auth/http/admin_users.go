package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/smartclassroom/authd/internal/auth/domain"
	"github.com/smartclassroom/authd/internal/auth/service"
	"github.com/smartclassroom/authd/pkg/httpx"
)

// AdminUsersHandler serves the administrative account operations.
// RequireAnyRole("admin") guards every route before these run.
type AdminUsersHandler struct {
	UserService    *service.UserService
	AccountService *service.AccountService
}

func (h *AdminUsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	role := domain.Role(q.Get("role"))

	users, total, err := h.UserService.ListUsers(r.Context(), role, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := UserListResponse{Users: make([]UserResponse, 0, len(users)), Total: total}
	for _, u := range users {
		resp.Users = append(resp.Users, toUserResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AdminUsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	user, err := h.UserService.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *AdminUsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.StudentID == "" || req.Email == "" || req.Password == "" {
		writeBadRequest(w, "student_id, email and password are required")
		return
	}

	user, err := h.AccountService.Register(r.Context(), service.RegisterParams{
		StudentID: req.StudentID,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.Role(req.Role),
	}, httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *AdminUsersHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := h.UserService.UpdateProfile(r.Context(), userID, domain.ProfileUpdate{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		ProfileImage: req.ProfileImage,
	}, actorStudentID(r), httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *AdminUsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.UserService.DeleteUser(r.Context(), userID, actorStudentID(r), httpx.IPKeyExtractor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminUsersHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *AdminUsersHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *AdminUsersHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.UserService.SetActive(r.Context(), userID, active, actorStudentID(r), httpx.IPKeyExtractor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminUsersHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.UserService.Unlock(r.Context(), userID, actorStudentID(r), httpx.IPKeyExtractor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminUsersHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err := h.UserService.ChangeRole(r.Context(), userID, domain.Role(req.Role), actorStudentID(r), httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminUsersHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.NewPassword == "" {
		writeBadRequest(w, "new_password is required")
		return
	}

	err := h.AccountService.ResetPassword(r.Context(), userID, req.NewPassword, actorStudentID(r), httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminUsersHandler) HandleFailedLogins(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "invalid since timestamp, expected RFC 3339")
			return
		}
		since = t
	}

	user, err := h.UserService.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	count, err := h.UserService.FailedLoginSummary(r.Context(), user.StudentID, since)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, FailedLoginsResponse{
		StudentID:       user.StudentID,
		CurrentAttempts: user.FailedLoginAttempts,
		FailedSince:     count,
		Since:           since,
	})
}

func pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid user id")
		return 0, false
	}
	return id, true
}

func actorStudentID(r *http.Request) string {
	if identity, ok := httpx.IdentityFromContext(r.Context()); ok {
		return identity.StudentID
	}
	return ""
}
