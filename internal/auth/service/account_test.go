package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartclassroom/authd/internal/auth/audit"
	"github.com/smartclassroom/authd/internal/auth/domain"
)

func TestRegisterRejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.Register(context.Background(), RegisterParams{
		StudentID: "STU010",
		Email:     "stu010@example.edu",
		Password:  "short",
	}, "")

	var policyErr *PolicyViolationError
	require.ErrorAs(t, err, &policyErr)
	require.NotEmpty(t, policyErr.Violations)
}

func TestRegisterDuplicateIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "STU010")

	_, err := env.accounts.Register(ctx, RegisterParams{
		StudentID: "STU010",
		Email:     "other@example.edu",
		Password:  testPassword,
	}, "")
	require.ErrorIs(t, err, ErrDuplicateIdentity)

	_, err = env.accounts.Register(ctx, RegisterParams{
		StudentID: "STU011",
		Email:     "STU010@example.edu",
		Password:  testPassword,
	}, "")
	require.ErrorIs(t, err, ErrDuplicateIdentity, "email must be unique too")
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.Register(context.Background(), RegisterParams{
		StudentID: "STU010",
		Email:     "stu010@example.edu",
		Password:  testPassword,
		Role:      "superuser",
	}, "")
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestChangePasswordHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "STU010")

	_, session, err := env.auth.Login(ctx, "STU010", testPassword, "10.0.0.1", "")
	require.NoError(t, err)

	require.NoError(t, env.accounts.ChangePassword(ctx, u.ID, testPassword, testNewPassword, "10.0.0.1"))

	// All sessions are gone; the user must log in again.
	_, _, err = env.auth.ValidateSession(ctx, session.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, _, err = env.auth.Login(ctx, "STU010", testPassword, "10.0.0.1", "")
	require.ErrorIs(t, err, ErrInvalidCredentials, "old password no longer works")

	_, _, err = env.auth.Login(ctx, "STU010", testNewPassword, "10.0.0.1", "")
	require.NoError(t, err)

	require.True(t, env.audit.has(audit.ActionPasswordChanged))
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "STU010")

	err := env.accounts.ChangePassword(context.Background(), u.ID, "Wr0ng!Pass", testNewPassword, "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePasswordReusePrevention(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "STU010")

	// The registration hash is already in history, so going "back" to the
	// current password counts as reuse.
	err := env.accounts.ChangePassword(ctx, u.ID, testPassword, testPassword, "")
	require.ErrorIs(t, err, ErrPasswordReused)

	require.NoError(t, env.accounts.ChangePassword(ctx, u.ID, testPassword, testNewPassword, ""))

	err = env.accounts.ChangePassword(ctx, u.ID, testNewPassword, testPassword, "")
	require.ErrorIs(t, err, ErrPasswordReused, "previous password still in history")
}

func TestChangePasswordHistoryWindowSlides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "STU010")

	rotations := []string{
		"Gl0w&Mint", "Fr0st?Pine", "M4ple@Dusk",
		"C9der!Moss", "H7zel,Glow", "B5rch$Fern",
	}

	current := testPassword
	for _, next := range rotations[:3] {
		require.NoError(t, env.accounts.ChangePassword(ctx, u.ID, current, next, ""))
		current = next
	}

	// Three rotations in, the registration password is still inside the
	// five-entry history.
	err := env.accounts.ChangePassword(ctx, u.ID, current, testPassword, "")
	require.ErrorIs(t, err, ErrPasswordReused)

	for _, next := range rotations[3:] {
		require.NoError(t, env.accounts.ChangePassword(ctx, u.ID, current, next, ""))
		current = next
	}

	// Six rotations pushed it out of the retained window, so going back to
	// it is allowed again.
	require.NoError(t, env.accounts.ChangePassword(ctx, u.ID, current, testPassword, ""))

	_, _, err = env.auth.Login(ctx, "STU010", testPassword, "10.0.0.1", "")
	require.NoError(t, err)
}

func TestResetPasswordSkipsCurrentCheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "STU010")

	require.NoError(t, env.accounts.ResetPassword(ctx, u.ID, testNewPassword, "ADMIN001", "10.0.0.9"))

	_, _, err := env.auth.Login(ctx, "STU010", testNewPassword, "10.0.0.1", "")
	require.NoError(t, err)

	require.True(t, env.audit.has(audit.ActionPasswordReset))
}

func TestResetPasswordStillEnforcesHistory(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "STU010")

	err := env.accounts.ResetPassword(context.Background(), u.ID, testPassword, "ADMIN001", "")
	require.ErrorIs(t, err, ErrPasswordReused)
}

func TestBootstrapEnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	boot := &BootstrapService{
		Store:   env.store,
		Hasher:  env.hasher,
		Audit:   env.audit,
		nowFunc: env.clock.Now,
	}

	password, created, err := boot.EnsureAdmin(ctx)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, password)

	admin, _, err := env.auth.Login(ctx, DefaultAdminStudentID, password, "10.0.0.1", "")
	require.NoError(t, err, "generated password must pass login")
	require.Equal(t, domain.RoleAdmin, admin.Role)

	// Second call is a no-op once users exist.
	password, created, err = boot.EnsureAdmin(ctx)
	require.NoError(t, err)
	require.False(t, created)
	require.Empty(t, password)

	require.True(t, env.audit.has(audit.ActionBootstrapAdmin))
}

func TestUserServiceUnlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "STU010")

	for range DefaultMaxLoginAttempts {
		_, _, _ = env.auth.Login(ctx, "STU010", "Wr0ng!Pass", "10.0.0.1", "")
	}

	_, _, err := env.auth.Login(ctx, "STU010", testPassword, "10.0.0.1", "")
	var locked *AccountLockedError
	require.ErrorAs(t, err, &locked)

	require.NoError(t, env.users.Unlock(ctx, u.ID, "ADMIN001", "10.0.0.9"))

	_, _, err = env.auth.Login(ctx, "STU010", testPassword, "10.0.0.1", "")
	require.NoError(t, err, "unlock clears the lock before the window expires")
	require.True(t, env.audit.has(audit.ActionAccountUnlocked))
}

func TestUserServiceChangeRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "STU010")

	require.ErrorIs(t, env.users.ChangeRole(ctx, u.ID, "owner", "ADMIN001", ""), ErrInvalidRole)

	require.NoError(t, env.users.ChangeRole(ctx, u.ID, domain.RoleInstructor, "ADMIN001", ""))

	loaded, err := env.users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleInstructor, loaded.Role)
	require.True(t, env.audit.has(audit.ActionRoleChanged))
}

func TestUserServiceDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "STU010")

	require.NoError(t, env.users.DeleteUser(ctx, u.ID, "ADMIN001", "10.0.0.9"))

	_, err := env.users.GetUserByID(ctx, u.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
	require.True(t, env.audit.has(audit.ActionUserDeleted))
}
