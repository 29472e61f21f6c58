package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountDisabled    = errors.New("account_disabled")
	ErrDuplicateIdentity  = errors.New("duplicate_identity")
	ErrPasswordReused     = errors.New("password_reused")
	ErrSessionNotFound    = errors.New("session_not_found")
	ErrSessionExpired     = errors.New("session_expired")
	ErrNotAuthorized      = errors.New("not_authorized")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrUserNotFound       = errors.New("user_not_found")
)

// AccountLockedError carries how long the caller should wait. The minutes
// value is what gets shown to the user, so it rounds up.
type AccountLockedError struct {
	MinutesRemaining int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account_locked: try again in %d minutes", e.MinutesRemaining)
}

// PolicyViolationError reports every rule the candidate password broke,
// not just the first one.
type PolicyViolationError struct {
	Violations []string
}

func (e *PolicyViolationError) Error() string {
	return "password_policy: " + strings.Join(e.Violations, "; ")
}
