package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartclassroom/authd/internal/auth/domain"
	"github.com/smartclassroom/authd/internal/auth/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(filepath.Join(t.TempDir(), "authd_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s *Store, studentID, email string) domain.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	u := domain.User{
		StudentID:         studentID,
		Email:             email,
		PasswordHash:      "$2b$04$notarealhashnotarealhashnotarealhash",
		FirstName:         "Test",
		LastName:          "User",
		Role:              domain.RoleStudent,
		IsActive:          true,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	id, err := s.Users().CreateUser(context.Background(), u)
	require.NoError(t, err)
	u.ID = id
	return u
}

func TestUsersCreateAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "STU001", "stu001@example.edu")
	require.NotZero(t, u.ID)

	byID, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "STU001", byID.StudentID)
	require.True(t, byID.IsActive)

	byStudentID, err := s.Users().GetUserByStudentID(ctx, "STU001")
	require.NoError(t, err)
	require.Equal(t, u.ID, byStudentID.ID)

	byEmail, err := s.Users().GetUserByEmail(ctx, "stu001@example.edu")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	_, err = s.Users().GetUserByStudentID(ctx, "STU999")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersDuplicateStudentID(t *testing.T) {
	s := newTestStore(t)

	seedUser(t, s, "STU001", "first@example.edu")

	_, err := s.Users().CreateUser(context.Background(), domain.User{
		StudentID:    "STU001",
		Email:        "second@example.edu",
		PasswordHash: "x",
		Role:         domain.RoleStudent,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsersFailedLoginCounter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "STU001", "stu001@example.edu")

	at := time.Now().UTC().Truncate(time.Second)
	for want := 1; want <= 3; want++ {
		got, err := s.Users().IncrementFailedLogins(ctx, u.ID, at)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	loaded, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 3, loaded.FailedLoginAttempts)
	require.NotNil(t, loaded.LastFailedLogin)

	require.NoError(t, s.Users().ResetFailedLogins(ctx, u.ID))

	loaded, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, loaded.FailedLoginAttempts)
	require.Nil(t, loaded.LastFailedLogin)
}

func TestUsersUpdateProfilePartial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "STU001", "stu001@example.edu")

	first := "Updated"
	err := s.Users().UpdateProfile(ctx, u.ID, domain.ProfileUpdate{FirstName: &first})
	require.NoError(t, err)

	loaded, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Updated", loaded.FirstName)
	require.Equal(t, "User", loaded.LastName, "untouched fields must survive")
	require.Equal(t, "stu001@example.edu", loaded.Email)
}

func TestUsersListFilterByRole(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "STU001", "a@example.edu")
	seedUser(t, s, "STU002", "b@example.edu")
	admin := seedUser(t, s, "ADM001", "c@example.edu")
	require.NoError(t, s.Users().UpdateRole(ctx, admin.ID, domain.RoleAdmin))

	all, err := s.Users().ListUsers(ctx, "", 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	admins, err := s.Users().ListUsers(ctx, domain.RoleAdmin, 50, 0)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	require.Equal(t, "ADM001", admins[0].StudentID)

	count, err := s.Users().CountUsers(ctx, domain.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestSessionsLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "STU001", "stu001@example.edu")

	now := time.Now().UTC().Truncate(time.Second)
	sess := domain.Session{
		ID:        "01J00000000000000000000001",
		UserID:    u.ID,
		Token:     "opaque-token-1",
		IPAddress: "10.0.0.1",
		UserAgent: "test",
		ExpiresAt: now.Add(30 * time.Minute),
		Active:    true,
		CreatedAt: now,
	}
	require.NoError(t, s.Sessions().CreateSession(ctx, sess))

	loaded, err := s.Sessions().GetSessionByToken(ctx, "opaque-token-1")
	require.NoError(t, err)
	require.Equal(t, u.ID, loaded.UserID)
	require.True(t, loaded.ValidAt(now))

	require.NoError(t, s.Sessions().InvalidateSession(ctx, "opaque-token-1"))

	loaded, err = s.Sessions().GetSessionByToken(ctx, "opaque-token-1")
	require.NoError(t, err)
	require.False(t, loaded.Active)

	err = s.Sessions().InvalidateSession(ctx, "no-such-token")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionsInvalidateUserSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "STU001", "stu001@example.edu")

	now := time.Now().UTC().Truncate(time.Second)
	for i, token := range []string{"tok-a", "tok-b", "tok-c"} {
		require.NoError(t, s.Sessions().CreateSession(ctx, domain.Session{
			ID:        "01J0000000000000000000000" + string(rune('1'+i)),
			UserID:    u.ID,
			Token:     token,
			ExpiresAt: now.Add(30 * time.Minute),
			Active:    true,
			CreatedAt: now,
		}))
	}

	n, err := s.Sessions().InvalidateUserSessions(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// Second pass finds nothing left to invalidate.
	n, err = s.Sessions().InvalidateUserSessions(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, n)

	active, err := s.Sessions().ListActiveSessions(ctx, u.ID, now)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestSessionsDeleteExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "STU001", "stu001@example.edu")

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Sessions().CreateSession(ctx, domain.Session{
		ID: "01J00000000000000000000001", UserID: u.ID, Token: "old",
		ExpiresAt: now.Add(-time.Minute), Active: true, CreatedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, s.Sessions().CreateSession(ctx, domain.Session{
		ID: "01J00000000000000000000002", UserID: u.ID, Token: "fresh",
		ExpiresAt: now.Add(30 * time.Minute), Active: true, CreatedAt: now,
	}))

	n, err := s.Sessions().DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = s.Sessions().GetSessionByToken(ctx, "old")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Sessions().GetSessionByToken(ctx, "fresh")
	require.NoError(t, err)
}

func TestPasswordHistoryPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "STU001", "stu001@example.edu")

	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	for i := range 7 {
		require.NoError(t, s.PasswordHistory().AddPasswordHistory(ctx, domain.PasswordHistoryEntry{
			UserID:       u.ID,
			PasswordHash: "hash-" + string(rune('a'+i)),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	recent, err := s.PasswordHistory().RecentPasswordHashes(ctx, u.ID, 5)
	require.NoError(t, err)
	require.Equal(t, []string{"hash-g", "hash-f", "hash-e", "hash-d", "hash-c"}, recent)

	require.NoError(t, s.PasswordHistory().PrunePasswordHistory(ctx, u.ID, 5))

	remaining, err := s.PasswordHistory().RecentPasswordHashes(ctx, u.ID, 50)
	require.NoError(t, err)
	require.Len(t, remaining, 5)
	require.Equal(t, "hash-g", remaining[0])
	require.Equal(t, "hash-c", remaining[4])
}

func TestAuditLogsFilterAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "STU001", "stu001@example.edu")

	now := time.Now().UTC().Truncate(time.Second)
	entries := []domain.AuditLogEntry{
		{Action: "LOGIN_SUCCESS", Category: "Authentication", UserID: &u.ID, Username: "STU001", Success: true, CreatedAt: now.Add(-2 * time.Hour)},
		{Action: "LOGIN_FAILED", Category: "Authentication", Username: "STU001", Success: false, CreatedAt: now.Add(-time.Hour)},
		{Action: "LOGIN_FAILED", Category: "Authentication", Username: "STU002", Success: false, CreatedAt: now},
	}
	for _, e := range entries {
		if e.Details == "" {
			e.Details = "{}"
		}
		require.NoError(t, s.AuditLogs().CreateAuditLog(ctx, e))
	}

	failed, err := s.AuditLogs().ListAuditLogs(ctx, domain.AuditQuery{Action: "LOGIN_FAILED"})
	require.NoError(t, err)
	require.Len(t, failed, 2)
	require.Equal(t, "STU002", failed[0].Username, "newest first")

	count, err := s.AuditLogs().CountAuditLogs(ctx, domain.AuditQuery{UserID: &u.ID})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	since := now.Add(-90 * time.Minute)
	recent, err := s.AuditLogs().RecentFailedLogins(ctx, "STU001", since)
	require.NoError(t, err)
	require.Equal(t, 1, recent)

	actions, err := s.AuditLogs().ListDistinctActions(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"LOGIN_FAILED", "LOGIN_SUCCESS"}, actions)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Users().CreateUser(ctx, domain.User{
			StudentID:    "STU500",
			Email:        "rollback@example.edu",
			PasswordHash: "x",
			Role:         domain.RoleStudent,
		})
		require.NoError(t, err)
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = s.Users().GetUserByStudentID(ctx, "STU500")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxCommits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Users().CreateUser(ctx, domain.User{
			StudentID:    "STU600",
			Email:        "commit@example.edu",
			PasswordHash: "x",
			Role:         domain.RoleStudent,
		})
		return err
	})
	require.NoError(t, err)

	_, err = s.Users().GetUserByStudentID(ctx, "STU600")
	require.NoError(t, err)
}
