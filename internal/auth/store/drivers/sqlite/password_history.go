package sqlite

import (
	"context"

	"github.com/smartclassroom/authd/internal/auth/domain"
)

type passwordHistoryRepo struct {
	q querier
}

func (r *passwordHistoryRepo) AddPasswordHistory(ctx context.Context, e domain.PasswordHistoryEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO password_history (user_id, password_hash, created_at)
		VALUES (?, ?, ?)`,
		e.UserID, e.PasswordHash, e.CreatedAt)
	return err
}

func (r *passwordHistoryRepo) RecentPasswordHashes(ctx context.Context, userID int64, limit int) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT password_hash FROM password_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func (r *passwordHistoryRepo) PrunePasswordHistory(ctx context.Context, userID int64, keep int) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM password_history
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM password_history
			WHERE user_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)`,
		userID, userID, keep)
	return err
}
