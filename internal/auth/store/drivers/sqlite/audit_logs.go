package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/smartclassroom/authd/internal/auth/domain"
)

type auditLogsRepo struct {
	q querier
}

const defaultAuditLimit = 100

func (r *auditLogsRepo) CreateAuditLog(ctx context.Context, e domain.AuditLogEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO audit_logs (action, category, user_id, username, success, ip_address, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Action, e.Category, mapOptionalInt64(e.UserID), e.Username,
		boolToInt(e.Success), e.IPAddress, e.Details, e.CreatedAt)
	return err
}

func auditFilter(q domain.AuditQuery) (string, []any) {
	conds := []string{}
	args := []any{}
	if q.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, q.Action)
	}
	if q.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *q.UserID)
	}
	if q.DateFrom != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *q.DateFrom)
	}
	if q.DateTo != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, *q.DateTo)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *auditLogsRepo) ListAuditLogs(ctx context.Context, q domain.AuditQuery) ([]domain.AuditLogEntry, error) {
	where, args := auditFilter(q)

	limit := q.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	args = append(args, limit, q.Offset)

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, action, category, user_id, username, success, ip_address, details, created_at
		FROM audit_logs`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditLogEntry
	for rows.Next() {
		var (
			e       domain.AuditLogEntry
			userID  sql.NullInt64
			success int
		)
		err := rows.Scan(&e.ID, &e.Action, &e.Category, &userID, &e.Username,
			&success, &e.IPAddress, &e.Details, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		e.UserID = mapNullInt64Ptr(userID)
		e.Success = success != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *auditLogsRepo) CountAuditLogs(ctx context.Context, q domain.AuditQuery) (int, error) {
	where, args := auditFilter(q)

	var count int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *auditLogsRepo) ListDistinctActions(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT DISTINCT action FROM audit_logs ORDER BY action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (r *auditLogsRepo) RecentFailedLogins(ctx context.Context, username string, since time.Time) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_logs
		WHERE action = 'LOGIN_FAILED' AND username = ? AND created_at >= ?`,
		username, since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
