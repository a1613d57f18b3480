package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/internal/auth/store"
	"github.com/relooptech/reloop/pkg/cryptox"
	"github.com/relooptech/reloop/pkg/idx"
	"github.com/relooptech/reloop/pkg/slogx"
	"github.com/relooptech/reloop/pkg/totpx"
)

// DefaultChallengeTTL bounds how long a second-factor challenge stays
// redeemable after a successful password check.
const DefaultChallengeTTL = 5 * time.Minute

// dummyHash is a syntactically valid argon2id hash verified against
// when the account lookup misses, so unknown emails cost the same as
// wrong passwords.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

var challengeMethods = []string{"totp", "backup_code"}

// AuthService is the authentication orchestrator: login, the
// second-factor challenge/response exchange, and logout. It owns no
// state of its own; every durable effect goes through the store.
type AuthService struct {
	Store        store.Store
	Hasher       *cryptox.Hasher
	Tokens       *TokenService
	Lockout      *LockoutGuard
	ChallengeTTL time.Duration
	TOTPSkew     uint
}

// Login verifies an email/password pair. For accounts without 2FA it
// returns a session outright; for 2FA-enabled accounts it returns a
// challenge reference that CompleteSecondFactor redeems. Every failure
// mode that would reveal account existence collapses into
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.LoginResult, error) {
	l := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same hashing cost as a real verification.
			_ = s.Hasher.Verify(password, dummyHash)
			return domain.LoginResult{}, ErrInvalidCredentials
		}
		return domain.LoginResult{}, fmt.Errorf("failed to load account: %w", err)
	}

	if account.PasswordHash == "" {
		// Federated-only account; password login does not apply.
		_ = s.Hasher.Verify(password, dummyHash)
		return domain.LoginResult{}, ErrInvalidCredentials
	}

	if err := s.Hasher.Verify(password, account.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.LoginResult{}, ErrInvalidCredentials
		}
		return domain.LoginResult{}, fmt.Errorf("failed to verify password: %w", err)
	}

	return s.postCredentialCheck(ctx, l, account)
}

// LoginFederated issues a session (or challenge) for an account matched
// by its external IdP subject. The IdP assertion itself is verified
// upstream; by the time this runs the subject is trusted.
func (s *AuthService) LoginFederated(ctx context.Context, subject string) (domain.LoginResult, error) {
	l := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().GetAccountByFederatedID(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrInvalidCredentials
		}
		return domain.LoginResult{}, fmt.Errorf("failed to load account: %w", err)
	}

	return s.postCredentialCheck(ctx, l, account)
}

// postCredentialCheck applies the approval gate and either issues a
// session or opens a second-factor challenge.
func (s *AuthService) postCredentialCheck(ctx context.Context, l *slog.Logger, account domain.Account) (domain.LoginResult, error) {
	if !account.CanAuthenticate() {
		// Pending, rejected and deactivated all look like a bad password.
		return domain.LoginResult{}, ErrInvalidCredentials
	}

	if account.TwoFactorEnabled {
		challenge, err := s.createChallenge(ctx, account.ID)
		if err != nil {
			return domain.LoginResult{}, err
		}
		l.Info("second factor required", slog.String("account_id", account.ID))
		return domain.LoginResult{Challenge: &challenge}, nil
	}

	if err := s.Lockout.RecordSuccess(ctx, account.ID); err != nil {
		return domain.LoginResult{}, err
	}

	session, err := s.Tokens.Issue(account)
	if err != nil {
		return domain.LoginResult{}, err
	}

	l.Info("login succeeded", slog.String("account_id", account.ID))
	return domain.LoginResult{Session: &session}, nil
}

// CompleteSecondFactor redeems a login challenge with a TOTP code or a
// backup code. Lockout short-circuits before any cryptographic check;
// every failed code records a failure with the lockout guard.
func (s *AuthService) CompleteSecondFactor(ctx context.Context, challengeRef, code string, isBackupCode bool) (domain.Session, error) {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()

	challenge, err := s.Store.Challenges().GetChallenge(ctx, challengeRef)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Expired and never-existed are indistinguishable.
			return domain.Session{}, ErrInvalidCredentials
		}
		return domain.Session{}, fmt.Errorf("failed to load challenge: %w", err)
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, challenge.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrInvalidCredentials
		}
		return domain.Session{}, fmt.Errorf("failed to load account: %w", err)
	}

	if !account.CanAuthenticate() {
		return domain.Session{}, ErrInvalidCredentials
	}

	if s.Lockout.IsLocked(account, now) {
		l.Info("second factor rejected, account locked", slog.String("account_id", account.ID))
		return domain.Session{}, ErrAccountLocked
	}

	ok, err := s.verifySecondFactor(ctx, account, code, isBackupCode)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		if _, err := s.Lockout.RecordFailure(ctx, account.ID); err != nil {
			return domain.Session{}, err
		}
		l.Info("second factor failed", slog.String("account_id", account.ID))
		return domain.Session{}, ErrInvalidCode
	}

	if err := s.Store.Challenges().DeleteChallenge(ctx, challenge.ID); err != nil {
		return domain.Session{}, fmt.Errorf("failed to consume challenge: %w", err)
	}

	if err := s.Lockout.RecordSuccess(ctx, account.ID); err != nil {
		return domain.Session{}, err
	}

	session, err := s.Tokens.Issue(account)
	if err != nil {
		return domain.Session{}, err
	}

	l.Info("login succeeded with second factor", slog.String("account_id", account.ID))
	return session, nil
}

func (s *AuthService) verifySecondFactor(ctx context.Context, account domain.Account, code string, isBackupCode bool) (bool, error) {
	if isBackupCode {
		consumed, err := s.Store.BackupCodes().ConsumeBackupCode(ctx, account.ID, HashBackupCode(code))
		if err != nil {
			return false, fmt.Errorf("failed to consume backup code: %w", err)
		}
		return consumed, nil
	}

	if account.TwoFactorSecret == nil || *account.TwoFactorSecret == "" {
		return false, nil
	}

	ok, err := totpx.Verify(code, *account.TwoFactorSecret, s.TOTPSkew)
	if err != nil {
		if errors.Is(err, totpx.ErrInvalidFormat) {
			// Malformed guesses still count as failed attempts.
			return false, nil
		}
		return false, fmt.Errorf("failed to verify TOTP code: %w", err)
	}
	return ok, nil
}

func (s *AuthService) createChallenge(ctx context.Context, accountID string) (domain.ChallengeResponse, error) {
	ttl := s.ChallengeTTL
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}

	now := time.Now().UTC()
	challenge := domain.Challenge{
		ID:        idx.New().String(),
		AccountID: accountID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := s.Store.Challenges().CreateChallenge(ctx, challenge); err != nil {
		return domain.ChallengeResponse{}, fmt.Errorf("failed to create challenge: %w", err)
	}

	return domain.ChallengeResponse{
		TwoFactorRequired: true,
		ChallengeRef:      challenge.ID,
		Methods:           challengeMethods,
	}, nil
}
