package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/smartclassroom/authd/internal/auth/domain"
	"github.com/smartclassroom/authd/internal/auth/store"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, student_id, email, password_hash, first_name, last_name,
	role, profile_image, is_active, failed_login_attempts, last_failed_login,
	last_login, password_changed_at, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (domain.User, error) {
	var (
		u            domain.User
		lastFailed   sql.NullTime
		lastLogin    sql.NullTime
		isActive     int
		failedLogins int64
	)
	err := row.Scan(
		&u.ID, &u.StudentID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.ProfileImage, &isActive, &failedLogins, &lastFailed,
		&lastLogin, &u.PasswordChangedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.IsActive = isActive != 0
	u.FailedLoginAttempts = int(failedLogins)
	u.LastFailedLogin = mapNullTimePtr(lastFailed)
	u.LastLogin = mapNullTimePtr(lastLogin)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByStudentID(ctx context.Context, studentID string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE student_id = ?`, studentID)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO users (
			student_id, email, password_hash, first_name, last_name,
			role, profile_image, is_active, password_changed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.StudentID, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.Role, u.ProfileImage, boolToInt(u.IsActive),
		u.PasswordChangedAt, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

func (r *usersRepo) ListUsers(ctx context.Context, role domain.Role, limit, offset int) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, role)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) CountUsers(ctx context.Context, role domain.Role) (int, error) {
	query := `SELECT COUNT(*) FROM users`
	args := []any{}
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, role)
	}

	var count int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *usersRepo) UpdateProfile(ctx context.Context, userID int64, upd domain.ProfileUpdate) error {
	sets := []string{}
	args := []any{}
	if upd.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *upd.Email)
	}
	if upd.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *upd.FirstName)
	}
	if upd.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *upd.LastName)
	}
	if upd.ProfileImage != nil {
		sets = append(sets, "profile_image = ?")
		args = append(args, *upd.ProfileImage)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, userID)

	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID int64, newHash string, changedAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, password_changed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		newHash, changedAt, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID int64, role domain.Role) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		role, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetActive(ctx context.Context, userID int64, active bool) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolToInt(active), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// IncrementFailedLogins relies on SQLite serialising writers, so the
// read-back after the atomic bump observes this statement's own effect.
func (r *usersRepo) IncrementFailedLogins(ctx context.Context, userID int64, at time.Time) (int, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    last_failed_login = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		at, userID)
	if err != nil {
		return 0, err
	}
	if err := requireRow(res); err != nil {
		return 0, err
	}

	var count int
	err = r.q.QueryRowContext(ctx,
		`SELECT failed_login_attempts FROM users WHERE id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return count, nil
}

func (r *usersRepo) ResetFailedLogins(ctx context.Context, userID int64) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, last_failed_login = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) RecordLogin(ctx context.Context, userID int64, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET last_login = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		at, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}
