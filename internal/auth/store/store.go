package store

import (
	"context"
	"errors"
	"time"

	"github.com/smartclassroom/authd/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable. We can change having the sub-repos as methods later but we do it
// now so we can have more control and actively stop people from accidently
// doing transactions within transactions.
type Store interface {
	Users() Users
	Sessions() Sessions
	PasswordHistory() PasswordHistory
	AuditLogs() AuditLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., password
	// change plus history write plus session invalidation).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by its numeric id.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByStudentID is the primary login lookup.
	GetUserByStudentID(ctx context.Context, studentID string) (domain.User, error)

	// GetUserByEmail supports duplicate checks and email-based lookup.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user and returns the assigned id.
	CreateUser(ctx context.Context, u domain.User) (int64, error)

	// ListUsers returns users ordered by creation date (newest first).
	// role filters by role when non-empty.
	ListUsers(ctx context.Context, role domain.Role, limit, offset int) ([]domain.User, error)

	// CountUsers returns the total number of users, optionally filtered by role.
	CountUsers(ctx context.Context, role domain.Role) (int, error)

	// UpdateProfile applies the non-nil fields of upd and bumps updated_at.
	UpdateProfile(ctx context.Context, userID int64, upd domain.ProfileUpdate) error

	// UpdatePasswordHash sets the password_hash, stamps password_changed_at
	// and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID int64, newHash string, changedAt time.Time) error

	// UpdateRole changes a user's role.
	UpdateRole(ctx context.Context, userID int64, role domain.Role) error

	// SetActive enables or disables an account.
	SetActive(ctx context.Context, userID int64, active bool) error

	// IncrementFailedLogins atomically bumps the failed attempt counter and
	// stamps last_failed_login. Returns the counter value after the bump.
	IncrementFailedLogins(ctx context.Context, userID int64, at time.Time) (int, error)

	// ResetFailedLogins clears the counter and last_failed_login.
	ResetFailedLogins(ctx context.Context, userID int64) error

	// RecordLogin stamps last_login.
	RecordLogin(ctx context.Context, userID int64, at time.Time) error

	// DeleteUser removes a user; sessions and history cascade per schema.
	DeleteUser(ctx context.Context, userID int64) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Sessions interface {
	// CreateSession stores a new session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByToken returns the session regardless of validity; callers
	// decide whether an inactive or expired row is an error.
	GetSessionByToken(ctx context.Context, token string) (domain.Session, error)

	// InvalidateSession flips is_active=0 for one token.
	InvalidateSession(ctx context.Context, token string) error

	// InvalidateUserSessions flips is_active=0 for every session of a user
	// and returns how many rows were affected.
	InvalidateUserSessions(ctx context.Context, userID int64) (int, error)

	// ListActiveSessions returns a user's currently valid sessions.
	ListActiveSessions(ctx context.Context, userID int64, now time.Time) ([]domain.Session, error)

	// DeleteExpiredSessions is housekeeping; removes rows past expires_at.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

type PasswordHistory interface {
	// AddPasswordHistory appends a hash to the user's history.
	AddPasswordHistory(ctx context.Context, e domain.PasswordHistoryEntry) error

	// RecentPasswordHashes returns the newest limit hashes, newest first.
	RecentPasswordHashes(ctx context.Context, userID int64, limit int) ([]string, error)

	// PrunePasswordHistory drops entries beyond the newest keep rows.
	PrunePasswordHistory(ctx context.Context, userID int64, keep int) error
}

type AuditLogs interface {
	// CreateAuditLog appends an entry. Entries are never updated or deleted
	// through this interface.
	CreateAuditLog(ctx context.Context, e domain.AuditLogEntry) error

	// ListAuditLogs returns entries matching q, newest first.
	ListAuditLogs(ctx context.Context, q domain.AuditQuery) ([]domain.AuditLogEntry, error)

	// CountAuditLogs returns the number of entries matching q ignoring paging.
	CountAuditLogs(ctx context.Context, q domain.AuditQuery) (int, error)

	// ListDistinctActions returns every action value present, sorted.
	ListDistinctActions(ctx context.Context) ([]string, error)

	// RecentFailedLogins counts LOGIN_FAILED entries for a username since the
	// given time. Used for the security summary endpoints.
	RecentFailedLogins(ctx context.Context, username string, since time.Time) (int, error)
}
