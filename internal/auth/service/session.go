package service

import (
	"context"
	"errors"
	"time"

	"github.com/smartclassroom/authd/internal/auth/domain"
	"github.com/smartclassroom/authd/internal/auth/store"
	"github.com/smartclassroom/authd/pkg/cryptox"
	"github.com/smartclassroom/authd/pkg/idx"
)

const DefaultSessionTTL = 30 * time.Minute

// SessionManager issues and validates opaque session tokens. Expiry is
// fixed at creation time; validating a session never extends it.
type SessionManager struct {
	Store store.Store
	TTL   time.Duration

	nowFunc func() time.Time
}

func NewSessionManager(st store.Store) *SessionManager {
	return &SessionManager{
		Store: st,
		TTL:   DefaultSessionTTL,
	}
}

func (m *SessionManager) now() time.Time {
	if m.nowFunc != nil {
		return m.nowFunc()
	}
	return time.Now()
}

// Create mints a fresh session for the user. The returned Session carries
// the raw token; it is the only time the caller ever sees it.
func (m *SessionManager) Create(ctx context.Context, userID int64, ip, userAgent string) (domain.Session, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.Session{}, err
	}

	now := m.now().UTC()
	session := domain.Session{
		ID:        idx.New().String(),
		UserID:    userID,
		Token:     token,
		IPAddress: ip,
		UserAgent: userAgent,
		ExpiresAt: now.Add(m.TTL),
		Active:    true,
		CreatedAt: now,
	}

	if err := m.Store.Sessions().CreateSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// Validate resolves a token to its session and user. Expired sessions are
// eagerly marked inactive on first sight so they cannot linger as "valid
// looking" rows.
func (m *SessionManager) Validate(ctx context.Context, token string) (domain.User, domain.Session, error) {
	session, err := m.Store.Sessions().GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.Session{}, ErrSessionNotFound
		}
		return domain.User{}, domain.Session{}, err
	}

	if !session.Active {
		return domain.User{}, domain.Session{}, ErrSessionNotFound
	}

	if !m.now().Before(session.ExpiresAt) {
		// Best effort; a concurrent invalidation is fine.
		_ = m.Store.Sessions().InvalidateSession(ctx, token)
		return domain.User{}, domain.Session{}, ErrSessionExpired
	}

	user, err := m.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.Session{}, ErrSessionNotFound
		}
		return domain.User{}, domain.Session{}, err
	}

	if !user.IsActive {
		return domain.User{}, domain.Session{}, ErrAccountDisabled
	}

	return user, session, nil
}

// Invalidate ends one session. Invalidating a token that is unknown or
// already inactive is not an error, so logout stays idempotent.
func (m *SessionManager) Invalidate(ctx context.Context, token string) error {
	err := m.Store.Sessions().InvalidateSession(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// InvalidateAll ends every session for a user. Used on password changes
// and account disables.
func (m *SessionManager) InvalidateAll(ctx context.Context, userID int64) (int, error) {
	return m.Store.Sessions().InvalidateUserSessions(ctx, userID)
}

// ListActive returns the user's currently valid sessions.
func (m *SessionManager) ListActive(ctx context.Context, userID int64) ([]domain.Session, error) {
	return m.Store.Sessions().ListActiveSessions(ctx, userID, m.now())
}
