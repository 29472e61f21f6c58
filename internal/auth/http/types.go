package http

import (
	"time"

	"github.com/smartclassroom/authd/internal/auth/domain"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description,omitempty"`
	Violations       []string `json:"violations,omitempty"`
	MinutesRemaining int      `json:"minutes_remaining,omitempty"`
}

type LoginRequest struct {
	StudentID string `json:"student_id"`
	Password  string `json:"password"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type RegisterRequest struct {
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type UpdateProfileRequest struct {
	Email        *string `json:"email,omitempty"`
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	ProfileImage *string `json:"profile_image,omitempty"`
}

// UserResponse is the wire shape of a user. The password hash never
// leaves the service.
type UserResponse struct {
	ID                  int64      `json:"id"`
	StudentID           string     `json:"student_id"`
	Email               string     `json:"email"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	Role                string     `json:"role"`
	ProfileImage        string     `json:"profile_image,omitempty"`
	IsActive            bool       `json:"is_active"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
	PasswordChangedAt   time.Time  `json:"password_changed_at"`
	CreatedAt           time.Time  `json:"created_at"`
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:                  u.ID,
		StudentID:           u.StudentID,
		Email:               u.Email,
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		Role:                string(u.Role),
		ProfileImage:        u.ProfileImage,
		IsActive:            u.IsActive,
		FailedLoginAttempts: u.FailedLoginAttempts,
		LastLogin:           u.LastLogin,
		PasswordChangedAt:   u.PasswordChangedAt,
		CreatedAt:           u.CreatedAt,
	}
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Total int            `json:"total"`
}

type SessionResponse struct {
	User      UserResponse `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
	CreatedAt time.Time    `json:"created_at"`
}

// FailedLoginsResponse is the admin security summary for one account.
// CurrentAttempts is the live lockout counter; FailedSince counts audit
// entries from the requested window.
type FailedLoginsResponse struct {
	StudentID       string    `json:"student_id"`
	CurrentAttempts int       `json:"current_attempts"`
	FailedSince     int       `json:"failed_since"`
	Since           time.Time `json:"since"`
}

type AuditLogResponse struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Category  string    `json:"category"`
	UserID    *int64    `json:"user_id,omitempty"`
	Username  string    `json:"username"`
	Success   bool      `json:"success"`
	IPAddress string    `json:"ip_address,omitempty"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLogListResponse struct {
	Entries []AuditLogResponse `json:"entries"`
	Total   int                `json:"total"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
}
