package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/internal/auth/store"
)

type accountsRepo struct {
	q querier
}

const accountColumns = `id, email, display_name, password_hash, federated_id,
	user_type, role, approval_status, active, twofactor_enabled, twofactor_secret,
	failed_attempts, locked_until, approved_by, approved_at, rejection_reason,
	last_login_at, created_at, updated_at`

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a               domain.Account
		passwordHash    sql.NullString
		federatedID     sql.NullString
		twoFactorSecret sql.NullString
		lockedUntil     sql.NullString
		approvedBy      sql.NullString
		approvedAt      sql.NullString
		rejectionReason sql.NullString
		lastLoginAt     sql.NullString
		createdAt       string
		updatedAt       string
	)

	err := row.Scan(
		&a.ID, &a.Email, &a.DisplayName, &passwordHash, &federatedID,
		&a.UserType, &a.Role, &a.ApprovalStatus, &a.Active, &a.TwoFactorEnabled, &twoFactorSecret,
		&a.FailedAttempts, &lockedUntil, &approvedBy, &approvedAt, &rejectionReason,
		&lastLoginAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}

	if passwordHash.Valid {
		a.PasswordHash = passwordHash.String
	}
	a.FederatedID = mapNullStringPtr(federatedID)
	a.TwoFactorSecret = mapNullStringPtr(twoFactorSecret)
	a.ApprovedBy = mapNullStringPtr(approvedBy)
	a.RejectionReason = mapNullStringPtr(rejectionReason)

	if a.LockedUntil, err = parseOptionalTime(lockedUntil); err != nil {
		return domain.Account{}, err
	}
	if a.ApprovedAt, err = parseOptionalTime(approvedAt); err != nil {
		return domain.Account{}, err
	}
	if a.LastLoginAt, err = parseOptionalTime(lastLoginAt); err != nil {
		return domain.Account{}, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Account{}, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Account{}, err
	}

	return a, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByFederatedID(ctx context.Context, subject string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE federated_id = ?`, subject)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	var passwordHash sql.NullString
	if a.PasswordHash != "" {
		passwordHash = sql.NullString{String: a.PasswordHash, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (
			id, email, display_name, password_hash, federated_id,
			user_type, role, approval_status, active, twofactor_enabled, twofactor_secret,
			failed_attempts, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		a.ID, a.Email, a.DisplayName, passwordHash, mapOptionalString(a.FederatedID),
		string(a.UserType), string(a.Role), string(a.ApprovalStatus), a.Active,
		a.TwoFactorEnabled, mapOptionalString(a.TwoFactorSecret),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *accountsRepo) ListPendingAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE approval_status = ? ORDER BY created_at ASC`,
		string(domain.ApprovalPending),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *accountsRepo) DeleteAccount(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ApproveAccount is a conditional update so two concurrent decisions
// cannot both apply; only the one that observes 'pending' wins.
func (r *accountsRepo) ApproveAccount(ctx context.Context, id, approverID string, role domain.Role, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE accounts
		SET approval_status = ?, role = ?, active = 1,
			approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ? AND approval_status = ?`,
		string(domain.ApprovalApproved), string(role),
		approverID, formatTime(at), formatTime(at),
		id, string(domain.ApprovalPending),
	)
	if err != nil {
		return err
	}
	return r.checkDecided(ctx, res, id)
}

func (r *accountsRepo) RejectAccount(ctx context.Context, id, approverID, reason string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE accounts
		SET approval_status = ?, active = 0,
			approved_by = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ? AND approval_status = ?`,
		string(domain.ApprovalRejected),
		approverID, reason, formatTime(at),
		id, string(domain.ApprovalPending),
	)
	if err != nil {
		return err
	}
	return r.checkDecided(ctx, res, id)
}

// checkDecided distinguishes "already decided" from "does not exist"
// after a conditional approval update matched nothing.
func (r *accountsRepo) checkDecided(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = r.q.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return mapNotFound(err)
	}
	return store.ErrNotPending
}

func (r *accountsRepo) SetTwoFactorSecret(ctx context.Context, id, secret string) error {
	return r.exec(ctx, `
		UPDATE accounts SET twofactor_secret = ?, updated_at = ? WHERE id = ?`,
		secret, formatTime(time.Now()), id)
}

func (r *accountsRepo) EnableTwoFactor(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE accounts SET twofactor_enabled = 1, updated_at = ?
		WHERE id = ? AND twofactor_secret IS NOT NULL`,
		formatTime(time.Now()), id)
}

func (r *accountsRepo) DisableTwoFactor(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE accounts SET twofactor_enabled = 0, twofactor_secret = NULL, updated_at = ?
		WHERE id = ?`,
		formatTime(time.Now()), id)
}

// IncrementFailedAttempts relies on RETURNING so the increment and the
// read of the new count are one statement.
func (r *accountsRepo) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.q.QueryRowContext(ctx, `
		UPDATE accounts SET failed_attempts = failed_attempts + 1, updated_at = ?
		WHERE id = ?
		RETURNING failed_attempts`,
		formatTime(time.Now()), id,
	).Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

func (r *accountsRepo) SetLockedUntil(ctx context.Context, id string, until time.Time) error {
	return r.exec(ctx, `
		UPDATE accounts SET locked_until = ?, updated_at = ? WHERE id = ?`,
		formatTime(until), formatTime(time.Now()), id)
}

func (r *accountsRepo) ClearLockout(ctx context.Context, id string, lastLogin time.Time) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET failed_attempts = 0, locked_until = NULL, last_login_at = ?, updated_at = ?
		WHERE id = ?`,
		formatTime(lastLogin), formatTime(lastLogin), id)
}

func (r *accountsRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
