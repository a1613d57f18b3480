package sqlite

import (
	"context"
	"time"
)

type backupCodesRepo struct {
	q querier
}

func (r *backupCodesRepo) CreateBackupCode(ctx context.Context, accountID, codeHash string) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO backup_codes (account_id, code_hash, created_at) VALUES (?, ?, ?)`,
		accountID, codeHash, formatTime(time.Now()),
	)
	return mapConstraint(err)
}

// ConsumeBackupCode deletes the matching row and reports whether one
// was deleted. Lookup and removal are a single statement, so concurrent
// consumers of the same code cannot both see success.
func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, accountID, codeHash string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM backup_codes WHERE account_id = ? AND code_hash = ?`,
		accountID, codeHash,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, accountID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM backup_codes WHERE account_id = ?`, accountID)
	return err
}

func (r *backupCodesRepo) CountBackupCodes(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM backup_codes WHERE account_id = ?`, accountID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
