package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/internal/auth/store"
	"github.com/relooptech/reloop/pkg/slogx"
)

// AccountService covers account reads and hard deletion.
type AccountService struct {
	Store    store.Store
	Notifier Notifier
}

// Get returns an account by id.
func (s *AccountService) Get(ctx context.Context, accountID string) (domain.Account, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

// Delete hard-deletes an account and, via FK cascade, its backup codes
// and open challenges. Super admin accounts are never deletable. The
// structured log entry is the deletion audit trail.
func (s *AccountService) Delete(ctx context.Context, accountID, deletedBy string) error {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Role == domain.RoleSuperAdmin {
		return ErrForbidden
	}

	if err := s.Store.Accounts().DeleteAccount(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}

	slogx.FromContext(ctx).Info("account deleted",
		slog.String("account_id", accountID),
		slog.String("email", account.Email),
		slog.String("deleted_by", deletedBy),
	)

	if s.Notifier != nil {
		go s.Notifier.Notify(context.WithoutCancel(ctx), accountID, EventAccountDeleted, map[string]any{
			"deleted_by": deletedBy,
		})
	}

	return nil
}
