package service

import (
	"context"
	"time"

	"github.com/smartclassroom/authd/internal/auth/domain"
	"github.com/smartclassroom/authd/internal/auth/store"
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultLockoutWindow    = 15 * time.Minute
)

// LockoutGuard throttles password guessing per account. Counters live on
// the user row and expire lazily: nothing unlocks accounts in the
// background, the next login attempt reconciles instead.
type LockoutGuard struct {
	Store       store.Store
	MaxAttempts int
	Window      time.Duration

	nowFunc func() time.Time
}

func NewLockoutGuard(st store.Store) *LockoutGuard {
	return &LockoutGuard{
		Store:       st,
		MaxAttempts: DefaultMaxLoginAttempts,
		Window:      DefaultLockoutWindow,
	}
}

func (g *LockoutGuard) now() time.Time {
	if g.nowFunc != nil {
		return g.nowFunc()
	}
	return time.Now()
}

// lockedUntil returns the lock expiry, or the zero time if not locked.
func (g *LockoutGuard) lockedUntil(u domain.User) time.Time {
	if u.FailedLoginAttempts < g.MaxAttempts || u.LastFailedLogin == nil {
		return time.Time{}
	}
	until := u.LastFailedLogin.Add(g.Window)
	if g.now().Before(until) {
		return until
	}
	return time.Time{}
}

// Check returns an AccountLockedError if the account is currently locked.
// If a previous lock has expired the stale counter is cleared so the
// attempt proceeds with a clean slate.
func (g *LockoutGuard) Check(ctx context.Context, u domain.User) error {
	if until := g.lockedUntil(u); !until.IsZero() {
		return &AccountLockedError{MinutesRemaining: minutesRemaining(g.now(), until)}
	}

	// Stale counter from an expired window; reset lazily.
	if u.FailedLoginAttempts >= g.MaxAttempts {
		if err := g.Store.Users().ResetFailedLogins(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

// RecordFailure bumps the counter after a wrong password and reports
// whether this failure tripped the lock. When it did, until is the lock
// expiry anchored on the stamped failure time, the same anchor
// lockedUntil uses on later attempts.
func (g *LockoutGuard) RecordFailure(ctx context.Context, u domain.User) (locked bool, until time.Time, err error) {
	now := g.now()

	// A counter left over from an expired window restarts at zero.
	if u.LastFailedLogin != nil && now.Sub(*u.LastFailedLogin) >= g.Window {
		if err := g.Store.Users().ResetFailedLogins(ctx, u.ID); err != nil {
			return false, time.Time{}, err
		}
	}

	count, err := g.Store.Users().IncrementFailedLogins(ctx, u.ID, now)
	if err != nil {
		return false, time.Time{}, err
	}
	if count >= g.MaxAttempts {
		return true, now.Add(g.Window), nil
	}
	return false, time.Time{}, nil
}

// Reset clears the counter, e.g. after a successful login or an admin unlock.
func (g *LockoutGuard) Reset(ctx context.Context, userID int64) error {
	return g.Store.Users().ResetFailedLogins(ctx, userID)
}

// minutesRemaining rounds up so "0 minutes remaining" is never shown for
// a lock that is still in force. A full window reports exactly the window
// in minutes, so the attempt that trips the lock and later checks against
// the same lock agree on the number.
func minutesRemaining(now, until time.Time) int {
	remaining := until.Sub(now)
	if remaining <= 0 {
		return 0
	}
	minutes := int(remaining / time.Minute)
	if remaining%time.Minute != 0 {
		minutes++
	}
	return minutes
}
