package domain

import "time"

// AuditLogEntry is an immutable security/administrative event record.
// Entries reference a user id but deliberately survive user deletion:
// the username is denormalised for the forensic trail.
type AuditLogEntry struct {
	ID        int64
	Action    string
	Category  string
	UserID    *int64 // nil for anonymous/failed attempts
	Username  string
	Success   bool
	IPAddress string
	Details   string // JSON-serialized structured payload
	CreatedAt time.Time
}

// AuditQuery filters and paginates audit log reads. Zero values mean
// "no filter"; Limit defaults at the store level.
type AuditQuery struct {
	Action   string
	UserID   *int64
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}
