package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartclassroom/authd/internal/auth/audit"
	"github.com/smartclassroom/authd/internal/auth/domain"
	"github.com/smartclassroom/authd/internal/auth/store/drivers/sqlite"
	"github.com/smartclassroom/authd/pkg/passwordx"
)

// fakeClock lets tests jump forward through lockout windows and session
// expiries without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingAudit captures events in memory so tests can assert the trail
// without touching files or the audit tables.
type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Record(_ context.Context, ev audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Action
	}
	return out
}

func (r *recordingAudit) has(action string) bool {
	for _, a := range r.actions() {
		if a == action {
			return true
		}
	}
	return false
}

type testEnv struct {
	store    *sqlite.Store
	clock    *fakeClock
	audit    *recordingAudit
	hasher   *passwordx.Hasher
	lockout  *LockoutGuard
	sessions *SessionManager
	auth     *AuthService
	accounts *AccountService
	users    *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "service_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := newFakeClock()
	rec := &recordingAudit{}
	hasher := &passwordx.Hasher{Cost: 4}

	lockout := NewLockoutGuard(st)
	lockout.nowFunc = clock.Now

	sessions := NewSessionManager(st)
	sessions.nowFunc = clock.Now

	env := &testEnv{
		store:    st,
		clock:    clock,
		audit:    rec,
		hasher:   hasher,
		lockout:  lockout,
		sessions: sessions,
		auth: &AuthService{
			Store:    st,
			Hasher:   hasher,
			Lockout:  lockout,
			Sessions: sessions,
			Audit:    rec,
			nowFunc:  clock.Now,
		},
		accounts: &AccountService{
			Store:    st,
			Hasher:   hasher,
			Policy:   passwordx.DefaultPolicy(),
			Sessions: sessions,
			Audit:    rec,
			nowFunc:  clock.Now,
		},
	}
	env.users = &UserService{Store: st, Sessions: sessions, Audit: rec}
	return env
}

const (
	testPassword    = "V@lid8&Sound"
	testNewPassword = "N0t.Seq#Word"
)

func (e *testEnv) register(t *testing.T, studentID string) domain.User {
	t.Helper()

	u, err := e.accounts.Register(context.Background(), RegisterParams{
		StudentID: studentID,
		Email:     studentID + "@example.edu",
		Password:  testPassword,
		FirstName: "Pat",
		LastName:  "Lee",
	}, "10.0.0.9")
	require.NoError(t, err)
	return u
}
