package sqlite

import (
	"context"
	"time"

	"github.com/smartclassroom/authd/internal/auth/domain"
)

type sessionsRepo struct {
	q querier
}

const sessionColumns = `id, user_id, token, ip_address, user_agent, expires_at, is_active, created_at`

func scanSession(row interface{ Scan(dest ...any) error }) (domain.Session, error) {
	var (
		s      domain.Session
		active int
	)
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.IPAddress, &s.UserAgent,
		&s.ExpiresAt, &active, &s.CreatedAt)
	if err != nil {
		return domain.Session{}, err
	}
	s.Active = active != 0
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_sessions (id, user_id, token, ip_address, user_agent, expires_at, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Token, s.IPAddress, s.UserAgent,
		s.ExpiresAt, boolToInt(s.Active), s.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByToken(ctx context.Context, token string) (domain.Session, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE token = ?`, token)
	s, err := scanSession(row)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) InvalidateSession(ctx context.Context, token string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE user_sessions SET is_active = 0 WHERE token = ?`, token)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) InvalidateUserSessions(ctx context.Context, userID int64) (int, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE user_sessions SET is_active = 0 WHERE user_id = ? AND is_active = 1`, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *sessionsRepo) ListActiveSessions(ctx context.Context, userID int64, now time.Time) ([]domain.Session, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM user_sessions
		WHERE user_id = ? AND is_active = 1 AND expires_at > ?
		ORDER BY created_at DESC`,
		userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
