// Package audit records security and administrative events to the database
// and to rotating log files. Recording is best-effort: a failed sink never
// propagates an error back into the request path.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/smartclassroom/authd/internal/auth/domain"
	"github.com/smartclassroom/authd/internal/auth/store"
)

// Action names are stable identifiers; they end up in the database and in
// operator tooling, so treat them as a wire format.
const (
	ActionLoginSuccess       = "LOGIN_SUCCESS"
	ActionLoginFailed        = "LOGIN_FAILED"
	ActionLogout             = "LOGOUT"
	ActionAccountLocked      = "ACCOUNT_LOCKED"
	ActionAccountUnlocked    = "ACCOUNT_UNLOCKED"
	ActionAccountDisabled    = "ACCOUNT_DISABLED"
	ActionAccountEnabled     = "ACCOUNT_ENABLED"
	ActionUserCreated        = "USER_CREATED"
	ActionUserUpdated        = "USER_UPDATED"
	ActionUserDeleted        = "USER_DELETED"
	ActionRoleChanged        = "ROLE_CHANGED"
	ActionPasswordChanged    = "PASSWORD_CHANGED"
	ActionPasswordReset      = "PASSWORD_RESET"
	ActionProfileUpdated     = "PROFILE_UPDATED"
	ActionSessionCreated     = "SESSION_CREATED"
	ActionSessionExpired     = "SESSION_EXPIRED"
	ActionSessionInvalidated = "SESSION_INVALIDATED"
	ActionAccessDenied       = "ACCESS_DENIED"
	ActionCSRFViolation      = "CSRF_VIOLATION"
	ActionSuspiciousActivity = "SUSPICIOUS_ACTIVITY"
	ActionSystemStartup      = "SYSTEM_STARTUP"
	ActionBootstrapAdmin     = "BOOTSTRAP_ADMIN"
)

const (
	CategoryAuthentication = "Authentication"
	CategoryUserManagement = "User Management"
	CategoryProfile        = "Profile"
	CategorySession        = "Session"
	CategorySecurity       = "Security"
	CategorySystem         = "System"
	CategoryUnknown        = "Unknown"
)

// AnonymousUser is recorded when no authenticated identity is known,
// e.g. failed logins for student ids that do not exist.
const AnonymousUser = "Anonymous"

var actionCategories = map[string]string{
	ActionLoginSuccess:       CategoryAuthentication,
	ActionLoginFailed:        CategoryAuthentication,
	ActionLogout:             CategoryAuthentication,
	ActionAccountLocked:      CategorySecurity,
	ActionAccountUnlocked:    CategorySecurity,
	ActionAccountDisabled:    CategoryUserManagement,
	ActionAccountEnabled:     CategoryUserManagement,
	ActionUserCreated:        CategoryUserManagement,
	ActionUserUpdated:        CategoryUserManagement,
	ActionUserDeleted:        CategoryUserManagement,
	ActionRoleChanged:        CategoryUserManagement,
	ActionPasswordChanged:    CategoryProfile,
	ActionPasswordReset:      CategoryProfile,
	ActionProfileUpdated:     CategoryProfile,
	ActionSessionCreated:     CategorySession,
	ActionSessionExpired:     CategorySession,
	ActionSessionInvalidated: CategorySession,
	ActionAccessDenied:       CategorySecurity,
	ActionCSRFViolation:      CategorySecurity,
	ActionSuspiciousActivity: CategorySecurity,
	ActionSystemStartup:      CategorySystem,
	ActionBootstrapAdmin:     CategorySystem,
}

// securityActions additionally go to the dedicated security log file.
var securityActions = map[string]struct{}{
	ActionLoginFailed:        {},
	ActionAccountLocked:      {},
	ActionCSRFViolation:      {},
	ActionAccessDenied:       {},
	ActionSuspiciousActivity: {},
}

// CategoryFor maps an action to its reporting category. Unrecognised
// actions are still recorded, just bucketed as Unknown.
func CategoryFor(action string) string {
	if cat, ok := actionCategories[action]; ok {
		return cat
	}
	return CategoryUnknown
}

// Event is one auditable occurrence. Details must be JSON-serialisable.
type Event struct {
	Action    string
	UserID    *int64
	Username  string
	Success   bool
	IPAddress string
	Details   map[string]any
}

// Logger fans each event out to the database (the authoritative record)
// and to rotating files for operators who tail logs.
type Logger struct {
	store    store.Store
	log      *slog.Logger
	system   *slog.Logger
	security *slog.Logger
	now      func() time.Time
}

// FileConfig controls the rotating file sinks.
type FileConfig struct {
	SystemPath   string
	SecurityPath string
	MaxSizeMB    int
	MaxBackups   int
	MaxAgeDays   int
}

// New builds a Logger writing to rotating files at the configured paths.
// lumberjack creates parent directories as needed.
func New(st store.Store, log *slog.Logger, cfg FileConfig) *Logger {
	return NewWithSinks(st, log,
		&lumberjack.Logger{
			Filename:   cfg.SystemPath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		},
		&lumberjack.Logger{
			Filename:   cfg.SecurityPath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		},
	)
}

// NewWithSinks is the injectable constructor; tests pass buffers.
func NewWithSinks(st store.Store, log *slog.Logger, system, security io.Writer) *Logger {
	return &Logger{
		store:    st,
		log:      log,
		system:   slog.New(slog.NewJSONHandler(system, nil)),
		security: slog.New(slog.NewJSONHandler(security, nil)),
		now:      time.Now,
	}
}

// Record writes the event everywhere it belongs. It never returns an
// error; sink failures are reported through the application logger so
// an audit outage cannot take down logins.
func (l *Logger) Record(ctx context.Context, ev Event) {
	username := ev.Username
	if username == "" {
		username = AnonymousUser
	}

	details := "{}"
	if len(ev.Details) > 0 {
		if raw, err := json.Marshal(ev.Details); err == nil {
			details = string(raw)
		} else {
			l.log.ErrorContext(ctx, "audit details not serialisable",
				"action", ev.Action, "error", err)
		}
	}

	entry := domain.AuditLogEntry{
		Action:    ev.Action,
		Category:  CategoryFor(ev.Action),
		UserID:    ev.UserID,
		Username:  username,
		Success:   ev.Success,
		IPAddress: ev.IPAddress,
		Details:   details,
		CreatedAt: l.now().UTC(),
	}

	if err := l.store.AuditLogs().CreateAuditLog(ctx, entry); err != nil {
		l.log.ErrorContext(ctx, "audit database write failed",
			"action", ev.Action, "username", username, "error", err)
	}

	attrs := []any{
		"action", entry.Action,
		"category", entry.Category,
		"username", entry.Username,
		"success", entry.Success,
		"ip", entry.IPAddress,
		"details", details,
	}
	l.system.InfoContext(ctx, "audit", attrs...)

	if _, ok := securityActions[ev.Action]; ok {
		l.security.WarnContext(ctx, "security", attrs...)
	}
}
