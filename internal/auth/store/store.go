package store

import (
	"context"
	"errors"
	"time"

	"github.com/relooptech/reloop/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrNotPending reports an approval transition attempted on an
	// account that has already been decided.
	ErrNotPending = errors.New("store: account not pending")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement this. Sub-repositories keep concerns tidy and
// testable; the race-sensitive operations (backup-code consumption,
// failed-attempt counting, approval transitions) are single atomic
// statements inside the driver, never read-then-write pairs.
type Store interface {
	Accounts() Accounts
	BackupCodes() BackupCodes
	Challenges() Challenges

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction, committing on
	// nil and rolling back on error. Preferred over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail is used during password login.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// GetAccountByFederatedID looks up an account by IdP subject.
	GetAccountByFederatedID(ctx context.Context, subject string) (domain.Account, error)

	// CreateAccount inserts a new account (id is provided by the app
	// via ULID). Returns ErrAlreadyExists on a duplicate email.
	CreateAccount(ctx context.Context, a domain.Account) error

	// ListPendingAccounts returns accounts awaiting an approval
	// decision, oldest first.
	ListPendingAccounts(ctx context.Context) ([]domain.Account, error)

	// DeleteAccount removes the record entirely. The super_admin guard
	// lives in the service layer.
	DeleteAccount(ctx context.Context, id string) error

	// ApproveAccount transitions pending -> approved, assigns the final
	// role, activates the account and stamps the approver. The
	// transition is a conditional update: ErrNotPending if the account
	// was already decided, ErrNotFound if it does not exist.
	ApproveAccount(ctx context.Context, id, approverID string, role domain.Role, at time.Time) error

	// RejectAccount transitions pending -> rejected and deactivates.
	// Same conditional semantics as ApproveAccount.
	RejectAccount(ctx context.Context, id, approverID, reason string, at time.Time) error

	// SetTwoFactorSecret stores the enrolled TOTP secret without
	// enabling 2FA yet.
	SetTwoFactorSecret(ctx context.Context, id, secret string) error

	// EnableTwoFactor marks 2FA enabled; the secret must already be set.
	EnableTwoFactor(ctx context.Context, id string) error

	// DisableTwoFactor clears the enabled flag and the secret.
	DisableTwoFactor(ctx context.Context, id string) error

	// IncrementFailedAttempts atomically bumps failed_attempts and
	// returns the new count, so concurrent failures never undercount.
	IncrementFailedAttempts(ctx context.Context, id string) (int, error)

	// SetLockedUntil opens a lockout window.
	SetLockedUntil(ctx context.Context, id string, until time.Time) error

	// ClearLockout resets failed_attempts and locked_until and stamps
	// last_login_at.
	ClearLockout(ctx context.Context, id string, lastLogin time.Time) error
}

type BackupCodes interface {
	// CreateBackupCode stores a backup code hash for an account.
	CreateBackupCode(ctx context.Context, accountID, codeHash string) error

	// ConsumeBackupCode removes the matching hash and reports whether a
	// row was removed. Removal and the success determination are one
	// statement so two concurrent consumers cannot both succeed.
	ConsumeBackupCode(ctx context.Context, accountID, codeHash string) (bool, error)

	// DeleteAllBackupCodes removes every code for an account.
	DeleteAllBackupCodes(ctx context.Context, accountID string) error

	// CountBackupCodes returns how many unused codes remain.
	CountBackupCodes(ctx context.Context, accountID string) (int, error)
}

type Challenges interface {
	// CreateChallenge stores a pending second-factor challenge.
	CreateChallenge(ctx context.Context, c domain.Challenge) error

	// GetChallenge returns a challenge by reference, only if not expired.
	GetChallenge(ctx context.Context, id string) (domain.Challenge, error)

	// DeleteChallenge removes a challenge once consumed.
	DeleteChallenge(ctx context.Context, id string) error

	// DeleteExpiredChallenges is housekeeping.
	DeleteExpiredChallenges(ctx context.Context) error
}
