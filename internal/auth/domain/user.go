package domain

import "time"

// Role is the coarse access level assigned to a user.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int64
	StudentID    string // external identifier (student/employee id)
	Email        string
	PasswordHash string // opaque, self-describing format; never parsed by consumers
	FirstName    string
	LastName     string
	Role         Role
	ProfileImage string
	IsActive     bool

	FailedLoginAttempts int
	LastFailedLogin     *time.Time
	LastLogin           *time.Time
	PasswordChangedAt   time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName is the human-readable form used in audit entries.
func (u User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.StudentID
	}
	return u.FirstName + " " + u.LastName
}

// ProfileUpdate enumerates exactly the mutable profile fields. A nil pointer
// leaves the field untouched.
type ProfileUpdate struct {
	Email        *string
	FirstName    *string
	LastName     *string
	ProfileImage *string
}

// Empty reports whether the update would change nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil && p.ProfileImage == nil
}

// PasswordHistoryEntry records a prior password hash for reuse prevention.
// Entries are append-only and pruned beyond the configured retention count.
type PasswordHistoryEntry struct {
	ID           int64
	UserID       int64
	PasswordHash string
	CreatedAt    time.Time
}
