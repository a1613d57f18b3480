package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/internal/auth/store"
	"github.com/relooptech/reloop/pkg/totpx"
)

// MFAService manages the 2FA lifecycle for an authenticated account:
// enrollment, activation, backup-code rotation and removal. Second
// factor verification during login lives in AuthService.
type MFAService struct {
	Store    store.Store
	Issuer   string
	TOTPSkew uint
}

// Setup2FA generates and stores a TOTP secret without enabling 2FA.
// The account stays on single-factor login until Enable2FA verifies the
// first code. Calling it again before activation rotates the secret.
func (s *MFAService) Setup2FA(ctx context.Context, accountID string) (domain.TwoFactorSetup, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return domain.TwoFactorSetup{}, err
	}
	if account.TwoFactorEnabled {
		return domain.TwoFactorSetup{}, ErrTwoFactorAlreadyEnabled
	}

	secret, err := totpx.GenerateSecret()
	if err != nil {
		return domain.TwoFactorSetup{}, err
	}

	uri, err := totpx.ProvisioningURI(s.Issuer, account.Email, secret)
	if err != nil {
		return domain.TwoFactorSetup{}, err
	}

	if err := s.Store.Accounts().SetTwoFactorSecret(ctx, accountID, secret); err != nil {
		return domain.TwoFactorSetup{}, fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	return domain.TwoFactorSetup{
		Secret:          secret,
		ProvisioningURI: uri,
		Issuer:          s.Issuer,
		Account:         account.Email,
	}, nil
}

// Enable2FA verifies the first code against the enrolled secret, flips
// 2FA on and mints the initial backup-code set. The plaintext codes are
// returned exactly once.
func (s *MFAService) Enable2FA(ctx context.Context, accountID, code string) ([]string, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}
	if account.TwoFactorSecret == nil || *account.TwoFactorSecret == "" {
		return nil, ErrTwoFactorNotEnabled
	}

	if err := s.checkCode(code, *account.TwoFactorSecret); err != nil {
		return nil, err
	}

	codes, err := GenerateBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, c := range codes {
			if err := tx.BackupCodes().CreateBackupCode(ctx, accountID, HashBackupCode(c)); err != nil {
				return fmt.Errorf("failed to store backup code: %w", err)
			}
		}
		if err := tx.Accounts().EnableTwoFactor(ctx, accountID); err != nil {
			return fmt.Errorf("failed to enable 2FA: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return codes, nil
}

// Disable2FA verifies a current code, then clears the secret, the
// enabled flag and every backup code in one transaction.
func (s *MFAService) Disable2FA(ctx context.Context, accountID, code string) error {
	secret, err := s.enabledSecret(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.checkCode(code, secret); err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, accountID); err != nil {
			return fmt.Errorf("failed to delete backup codes: %w", err)
		}
		if err := tx.Accounts().DisableTwoFactor(ctx, accountID); err != nil {
			return fmt.Errorf("failed to disable 2FA: %w", err)
		}
		return nil
	})
}

// RegenerateBackupCodes verifies a current code and replaces the whole
// backup-code set. Unused old codes stop working immediately.
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, accountID, code string) ([]string, error) {
	secret, err := s.enabledSecret(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCode(code, secret); err != nil {
		return nil, err
	}

	codes, err := GenerateBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, accountID); err != nil {
			return fmt.Errorf("failed to delete old backup codes: %w", err)
		}
		for _, c := range codes {
			if err := tx.BackupCodes().CreateBackupCode(ctx, accountID, HashBackupCode(c)); err != nil {
				return fmt.Errorf("failed to store backup code: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return codes, nil
}

func (s *MFAService) getAccount(ctx context.Context, accountID string) (domain.Account, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

// enabledSecret loads the account and requires 2FA to be fully enabled.
func (s *MFAService) enabledSecret(ctx context.Context, accountID string) (string, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if !account.TwoFactorEnabled || account.TwoFactorSecret == nil || *account.TwoFactorSecret == "" {
		return "", ErrTwoFactorNotEnabled
	}
	return *account.TwoFactorSecret, nil
}

func (s *MFAService) checkCode(code, secret string) error {
	ok, err := totpx.Verify(code, secret, s.TOTPSkew)
	if err != nil {
		if errors.Is(err, totpx.ErrInvalidFormat) {
			return ErrInvalidCode
		}
		return fmt.Errorf("failed to verify TOTP code: %w", err)
	}
	if !ok {
		return ErrInvalidCode
	}
	return nil
}
