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

// AuditRecorder is the slice of the audit logger the services need.
type AuditRecorder interface {
	Record(ctx context.Context, ev audit.Event)
}

// AuthService drives the login and logout flows. It composes the hasher,
// the lockout guard and the session manager; each piece stays testable on
// its own.
type AuthService struct {
	Store    store.Store
	Hasher   *passwordx.Hasher
	Lockout  *LockoutGuard
	Sessions *SessionManager
	Audit    AuditRecorder

	nowFunc func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc()
	}
	return time.Now()
}

// Login authenticates a student id and password pair and mints a session.
//
// Failure ordering matters: an unknown identity and a wrong password both
// come back as ErrInvalidCredentials so the response does not leak which
// accounts exist, while disabled and locked accounts are reported as such
// only after the identity resolved.
func (s *AuthService) Login(ctx context.Context, studentID, password, ip, userAgent string) (domain.User, domain.Session, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Audit.Record(ctx, audit.Event{
				Action:    audit.ActionLoginFailed,
				Username:  studentID,
				IPAddress: ip,
				Details:   map[string]any{"reason": "unknown_identity"},
			})
			return domain.User{}, domain.Session{}, ErrInvalidCredentials
		}
		return domain.User{}, domain.Session{}, err
	}

	if !user.IsActive {
		s.Audit.Record(ctx, audit.Event{
			Action:    audit.ActionAccessDenied,
			UserID:    &user.ID,
			Username:  user.StudentID,
			IPAddress: ip,
			Details:   map[string]any{"reason": "account_disabled"},
		})
		return domain.User{}, domain.Session{}, ErrAccountDisabled
	}

	if err := s.Lockout.Check(ctx, user); err != nil {
		var lockErr *AccountLockedError
		if errors.As(err, &lockErr) {
			s.Audit.Record(ctx, audit.Event{
				Action:    audit.ActionLoginFailed,
				UserID:    &user.ID,
				Username:  user.StudentID,
				IPAddress: ip,
				Details: map[string]any{
					"reason":            "account_locked",
					"minutes_remaining": lockErr.MinutesRemaining,
				},
			})
		}
		return domain.User{}, domain.Session{}, err
	}

	if !s.Hasher.Verify(password, user.PasswordHash) {
		locked, until, lerr := s.Lockout.RecordFailure(ctx, user)
		if lerr != nil {
			return domain.User{}, domain.Session{}, lerr
		}

		if locked {
			s.Audit.Record(ctx, audit.Event{
				Action:    audit.ActionAccountLocked,
				UserID:    &user.ID,
				Username:  user.StudentID,
				IPAddress: ip,
				Details:   map[string]any{"max_attempts": s.Lockout.MaxAttempts},
			})
			return domain.User{}, domain.Session{}, &AccountLockedError{
				MinutesRemaining: minutesRemaining(s.now(), until),
			}
		}

		s.Audit.Record(ctx, audit.Event{
			Action:    audit.ActionLoginFailed,
			UserID:    &user.ID,
			Username:  user.StudentID,
			IPAddress: ip,
			Details:   map[string]any{"reason": "wrong_password"},
		})
		return domain.User{}, domain.Session{}, ErrInvalidCredentials
	}

	if err := s.Lockout.Reset(ctx, user.ID); err != nil {
		return domain.User{}, domain.Session{}, err
	}
	if err := s.Store.Users().RecordLogin(ctx, user.ID, s.now().UTC()); err != nil {
		return domain.User{}, domain.Session{}, err
	}

	s.upgradeHashIfLegacy(ctx, user, password)

	session, err := s.Sessions.Create(ctx, user.ID, ip, userAgent)
	if err != nil {
		return domain.User{}, domain.Session{}, err
	}

	s.Audit.Record(ctx, audit.Event{
		Action:    audit.ActionLoginSuccess,
		UserID:    &user.ID,
		Username:  user.StudentID,
		Success:   true,
		IPAddress: ip,
	})
	l.Info("user logged in", slog.String("student_id", user.StudentID))

	return user, session, nil
}

// upgradeHashIfLegacy transparently rehashes sha256-era credentials with
// bcrypt on a successful verify. Best effort; the login already succeeded.
func (s *AuthService) upgradeHashIfLegacy(ctx context.Context, user domain.User, password string) {
	if passwordx.ParseHash(user.PasswordHash).Kind == passwordx.KindBcrypt {
		return
	}

	l := slogx.FromContext(ctx)
	newHash, err := s.Hasher.Hash(password)
	if err != nil {
		l.Warn("legacy hash upgrade failed", slog.Any("error", err))
		return
	}
	// Keep password_changed_at untouched in spirit; the password itself did
	// not change, only its encoding. We still have to pass a timestamp, so
	// reuse the recorded one.
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, newHash, user.PasswordChangedAt); err != nil {
		l.Warn("legacy hash upgrade failed", slog.Any("error", err))
	}
}

// Logout ends the session behind the token. Unknown tokens are fine;
// logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, token, ip string) error {
	username := ""
	var userID *int64
	if user, _, err := s.Sessions.Validate(ctx, token); err == nil {
		username = user.StudentID
		userID = &user.ID
	}

	if err := s.Sessions.Invalidate(ctx, token); err != nil {
		return err
	}

	s.Audit.Record(ctx, audit.Event{
		Action:    audit.ActionLogout,
		UserID:    userID,
		Username:  username,
		Success:   true,
		IPAddress: ip,
	})
	return nil
}

// ValidateSession resolves a bearer token to its user and session.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (domain.User, domain.Session, error) {
	return s.Sessions.Validate(ctx, token)
}
