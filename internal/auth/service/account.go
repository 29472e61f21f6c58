package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smartclassroom/authd/internal/auth/audit"
	"github.com/smartclassroom/authd/internal/auth/domain"
	"github.com/smartclassroom/authd/internal/auth/store"
	"github.com/smartclassroom/authd/pkg/passwordx"
	"github.com/smartclassroom/authd/pkg/slogx"
)

const DefaultPasswordHistoryLimit = 5

// AccountService handles registration and credential changes.
type AccountService struct {
	Store        store.Store
	Hasher       *passwordx.Hasher
	Policy       passwordx.Policy
	Sessions     *SessionManager
	Audit        AuditRecorder
	HistoryLimit int

	nowFunc func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc()
	}
	return time.Now()
}

func (s *AccountService) historyLimit() int {
	if s.HistoryLimit > 0 {
		return s.HistoryLimit
	}
	return DefaultPasswordHistoryLimit
}

// RegisterParams is the input for creating an account. Role defaults to
// student when empty.
type RegisterParams struct {
	StudentID string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
}

// Register creates a user after checking the password policy and identity
// uniqueness. The initial hash is also seeded into the password history so
// the first change cannot reuse it.
func (s *AccountService) Register(ctx context.Context, p RegisterParams, actorIP string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	if p.Role == "" {
		p.Role = domain.RoleStudent
	}
	if !p.Role.Valid() {
		return domain.User{}, ErrInvalidRole
	}

	if violations := s.Policy.Validate(p.Password, p.StudentID); len(violations) > 0 {
		return domain.User{}, &PolicyViolationError{Violations: violations}
	}

	hash, err := s.Hasher.Hash(p.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now().UTC()
	user := domain.User{
		StudentID:         p.StudentID,
		Email:             p.Email,
		PasswordHash:      hash,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		Role:              p.Role,
		IsActive:          true,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		id, err := tx.Users().CreateUser(ctx, user)
		if err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateIdentity
			}
			return err
		}
		user.ID = id

		return tx.PasswordHistory().AddPasswordHistory(ctx, domain.PasswordHistoryEntry{
			UserID:       id,
			PasswordHash: hash,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return domain.User{}, err
	}

	s.Audit.Record(ctx, audit.Event{
		Action:    audit.ActionUserCreated,
		UserID:    &user.ID,
		Username:  user.StudentID,
		Success:   true,
		IPAddress: actorIP,
		Details:   map[string]any{"role": string(user.Role)},
	})
	l.Info("user registered",
		slog.String("student_id", user.StudentID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// ChangePassword rotates a user's own credential. The current password
// must verify, the new one must pass policy and must not match any of the
// recent hashes. All sessions end on success; the caller must log in again.
func (s *AccountService) ChangePassword(ctx context.Context, userID int64, current, next, ip string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !s.Hasher.Verify(current, user.PasswordHash) {
		s.Audit.Record(ctx, audit.Event{
			Action:    audit.ActionPasswordChanged,
			UserID:    &user.ID,
			Username:  user.StudentID,
			IPAddress: ip,
			Details:   map[string]any{"reason": "wrong_current_password"},
		})
		return ErrInvalidCredentials
	}

	if violations := s.Policy.Validate(next, user.StudentID); len(violations) > 0 {
		return &PolicyViolationError{Violations: violations}
	}

	if reused, err := s.isReused(ctx, userID, next); err != nil {
		return err
	} else if reused {
		return ErrPasswordReused
	}

	if err := s.rotate(ctx, user, next); err != nil {
		return err
	}

	s.Audit.Record(ctx, audit.Event{
		Action:    audit.ActionPasswordChanged,
		UserID:    &user.ID,
		Username:  user.StudentID,
		Success:   true,
		IPAddress: ip,
	})
	return nil
}

// ResetPassword sets a new credential without knowing the current one.
// Admin-only at the transport layer. History still applies so an admin
// cannot silently re-issue a recently used password.
func (s *AccountService) ResetPassword(ctx context.Context, userID int64, next, actorStudentID, ip string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if violations := s.Policy.Validate(next, user.StudentID); len(violations) > 0 {
		return &PolicyViolationError{Violations: violations}
	}

	if reused, err := s.isReused(ctx, userID, next); err != nil {
		return err
	} else if reused {
		return ErrPasswordReused
	}

	if err := s.rotate(ctx, user, next); err != nil {
		return err
	}

	s.Audit.Record(ctx, audit.Event{
		Action:    audit.ActionPasswordReset,
		UserID:    &user.ID,
		Username:  user.StudentID,
		Success:   true,
		IPAddress: ip,
		Details:   map[string]any{"reset_by": actorStudentID},
	})
	return nil
}

// isReused verifies the candidate against the recent history hashes. The
// hashes are salted so equality means verifying, not comparing strings.
func (s *AccountService) isReused(ctx context.Context, userID int64, candidate string) (bool, error) {
	hashes, err := s.Store.PasswordHistory().RecentPasswordHashes(ctx, userID, s.historyLimit())
	if err != nil {
		return false, err
	}
	for _, h := range hashes {
		if passwordx.ParseHash(h).Verify(candidate) {
			return true, nil
		}
	}
	return false, nil
}

// rotate writes the new hash, appends history, prunes old entries and
// invalidates every session, all in one transaction.
func (s *AccountService) rotate(ctx context.Context, user domain.User, next string) error {
	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash, now); err != nil {
			return err
		}
		if err := tx.PasswordHistory().AddPasswordHistory(ctx, domain.PasswordHistoryEntry{
			UserID:       user.ID,
			PasswordHash: hash,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		if err := tx.PasswordHistory().PrunePasswordHistory(ctx, user.ID, s.historyLimit()); err != nil {
			return err
		}
		_, err := tx.Sessions().InvalidateUserSessions(ctx, user.ID)
		return err
	})
}
