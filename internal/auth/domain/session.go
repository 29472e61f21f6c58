package domain

import "time"

// Session is an ephemeral credential tied to a single opaque token.
// A session is valid iff Active is set and the current time is before
// ExpiresAt. Expiry is fixed at creation; there is no sliding refresh.
type Session struct {
	ID        string // ULID row identifier
	UserID    int64
	Token     string // opaque, >=32 bytes of entropy, URL-safe; never logged
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
	Active    bool
	CreatedAt time.Time
}

// ValidAt reports whether the session is usable at the given instant.
func (s Session) ValidAt(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}
