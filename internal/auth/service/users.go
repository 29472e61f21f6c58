package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smartclassroom/authd/internal/auth/audit"
	"github.com/smartclassroom/authd/internal/auth/domain"
	"github.com/smartclassroom/authd/internal/auth/store"
	"github.com/smartclassroom/authd/pkg/slogx"
)

// UserService covers profile updates and the administrative account
// operations (disable, enable, unlock, role changes, deletion).
type UserService struct {
	Store    store.Store
	Sessions *SessionManager
	Audit    AuditRecorder
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID int64) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

// ListUsers pages through users, optionally filtered by role.
func (s *UserService) ListUsers(ctx context.Context, role domain.Role, limit, offset int) ([]domain.User, int, error) {
	if role != "" && !role.Valid() {
		return nil, 0, ErrInvalidRole
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	users, err := s.Store.Users().ListUsers(ctx, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.Users().CountUsers(ctx, role)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateProfile applies a partial profile update to the user.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, upd domain.ProfileUpdate, actorStudentID, ip string) (domain.User, error) {
	if upd.Empty() {
		return s.GetUserByID(ctx, userID)
	}

	err := s.Store.Users().UpdateProfile(ctx, userID, upd)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return domain.User{}, ErrUserNotFound
		case errors.Is(err, store.ErrAlreadyExists):
			return domain.User{}, ErrDuplicateIdentity
		}
		return domain.User{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	s.Audit.Record(ctx, audit.Event{
		Action:    audit.ActionProfileUpdated,
		UserID:    &user.ID,
		Username:  user.StudentID,
		Success:   true,
		IPAddress: ip,
		Details:   map[string]any{"updated_by": actorStudentID},
	})
	return user, nil
}

// SetActive enables or disables an account. Disabling also ends every
// session the user has, taking effect immediately rather than at the next
// login.
func (s *UserService) SetActive(ctx context.Context, userID int64, active bool, actorStudentID, ip string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.Store.Users().SetActive(ctx, userID, active); err != nil {
		return err
	}

	action := audit.ActionAccountEnabled
	if !active {
		action = audit.ActionAccountDisabled
		if _, err := s.Sessions.InvalidateAll(ctx, userID); err != nil {
			return err
		}
	}

	s.Audit.Record(ctx, audit.Event{
		Action:    action,
		UserID:    &user.ID,
		Username:  user.StudentID,
		Success:   true,
		IPAddress: ip,
		Details:   map[string]any{"changed_by": actorStudentID},
	})
	return nil
}

// Unlock clears a lockout so the user can try again before the window
// expires on its own.
func (s *UserService) Unlock(ctx context.Context, userID int64, actorStudentID, ip string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.Store.Users().ResetFailedLogins(ctx, userID); err != nil {
		return err
	}

	s.Audit.Record(ctx, audit.Event{
		Action:    audit.ActionAccountUnlocked,
		UserID:    &user.ID,
		Username:  user.StudentID,
		Success:   true,
		IPAddress: ip,
		Details:   map[string]any{"unlocked_by": actorStudentID},
	})
	return nil
}

// ChangeRole assigns a new role to the user.
func (s *UserService) ChangeRole(ctx context.Context, userID int64, role domain.Role, actorStudentID, ip string) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == role {
		return nil
	}

	if err := s.Store.Users().UpdateRole(ctx, userID, role); err != nil {
		return err
	}

	s.Audit.Record(ctx, audit.Event{
		Action:    audit.ActionRoleChanged,
		UserID:    &user.ID,
		Username:  user.StudentID,
		Success:   true,
		IPAddress: ip,
		Details: map[string]any{
			"from":       string(user.Role),
			"to":         string(role),
			"changed_by": actorStudentID,
		},
	})
	return nil
}

// DeleteUser removes an account. Sessions and password history cascade at
// the schema level; audit entries keep the denormalised username.
func (s *UserService) DeleteUser(ctx context.Context, userID int64, actorStudentID, ip string) error {
	l := slogx.FromContext(ctx)

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.Store.Users().DeleteUser(ctx, userID); err != nil {
		return err
	}

	s.Audit.Record(ctx, audit.Event{
		Action:    audit.ActionUserDeleted,
		Username:  user.StudentID,
		Success:   true,
		IPAddress: ip,
		Details:   map[string]any{"deleted_by": actorStudentID},
	})
	l.Info("user deleted", slog.String("student_id", user.StudentID))
	return nil
}

// FailedLoginSummary reports how many failed attempts a student id has
// accumulated in the audit trail since the given time.
func (s *UserService) FailedLoginSummary(ctx context.Context, studentID string, since time.Time) (int, error) {
	return s.Store.AuditLogs().RecentFailedLogins(ctx, studentID, since)
}
