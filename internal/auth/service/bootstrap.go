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

const (
	DefaultAdminStudentID = "ADMIN001"
	DefaultAdminEmail     = "admin@smartclassroom.local"
)

// BootstrapService seeds the very first administrator so a fresh install
// is usable. The password is generated, never hardcoded, and is returned
// exactly once for the operator to record.
type BootstrapService struct {
	Store  store.Store
	Hasher *passwordx.Hasher
	Audit  AuditRecorder

	nowFunc func() time.Time
}

func (s *BootstrapService) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc()
	}
	return time.Now()
}

// EnsureAdmin creates the default admin if the user table is empty.
// Returns the generated password and true when an admin was created;
// an empty string and false when the system already has users.
func (s *BootstrapService) EnsureAdmin(ctx context.Context) (string, bool, error) {
	l := slogx.FromContext(ctx)

	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return "", false, err
	}
	if !empty {
		return "", false, nil
	}

	password, err := passwordx.Generate()
	if err != nil {
		return "", false, err
	}
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return "", false, err
	}

	now := s.now().UTC()
	user := domain.User{
		StudentID:         DefaultAdminStudentID,
		Email:             DefaultAdminEmail,
		PasswordHash:      hash,
		FirstName:         "System",
		LastName:          "Administrator",
		Role:              domain.RoleAdmin,
		IsActive:          true,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var adminID int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		id, err := tx.Users().CreateUser(ctx, user)
		if err != nil {
			// Someone else won the race; that is fine.
			if errors.Is(err, store.ErrAlreadyExists) {
				return nil
			}
			return err
		}
		adminID = id

		return tx.PasswordHistory().AddPasswordHistory(ctx, domain.PasswordHistoryEntry{
			UserID:       id,
			PasswordHash: hash,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return "", false, err
	}
	if adminID == 0 {
		return "", false, nil
	}

	s.Audit.Record(ctx, audit.Event{
		Action:   audit.ActionBootstrapAdmin,
		UserID:   &adminID,
		Username: DefaultAdminStudentID,
		Success:  true,
	})
	l.Warn("default admin created; record this password, it will not be shown again",
		slog.String("student_id", DefaultAdminStudentID),
		slog.String("password", password),
	)
	return password, true, nil
}
