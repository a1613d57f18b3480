package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/internal/auth/store"
)

// ApprovalService governs the pending -> approved/rejected lifecycle
// gating session issuance. Decisions are terminal; the store enforces
// that with a conditional transition, so two admins racing on the same
// account cannot both win.
type ApprovalService struct {
	Store    store.Store
	Notifier Notifier
}

// Approve moves a pending account to approved, assigns its final role
// and activates it. Fails with ErrAlreadyProcessed once decided.
func (s *ApprovalService) Approve(ctx context.Context, accountID, approverID string, role domain.Role) (domain.Account, error) {
	if !domain.ValidRole(role) {
		return domain.Account{}, ErrInvalidRole
	}

	err := s.Store.Accounts().ApproveAccount(ctx, accountID, approverID, role, time.Now().UTC())
	if err != nil {
		return domain.Account{}, mapDecisionErr(err)
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to reload account: %w", err)
	}

	if s.Notifier != nil {
		go s.Notifier.Notify(context.WithoutCancel(ctx), accountID, EventAccountApproved, map[string]any{
			"role":        string(role),
			"approved_by": approverID,
		})
	}

	return account, nil
}

// Reject moves a pending account to rejected and deactivates it.
func (s *ApprovalService) Reject(ctx context.Context, accountID, approverID, reason string) (domain.Account, error) {
	err := s.Store.Accounts().RejectAccount(ctx, accountID, approverID, reason, time.Now().UTC())
	if err != nil {
		return domain.Account{}, mapDecisionErr(err)
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to reload account: %w", err)
	}

	if s.Notifier != nil {
		go s.Notifier.Notify(context.WithoutCancel(ctx), accountID, EventAccountRejected, map[string]any{
			"reason":      reason,
			"rejected_by": approverID,
		})
	}

	return account, nil
}

// ListPending returns accounts awaiting a decision, oldest first.
func (s *ApprovalService) ListPending(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.Store.Accounts().ListPendingAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending accounts: %w", err)
	}
	return accounts, nil
}

// Gate re-loads the account behind a session token and re-checks that
// it may still authenticate. This is the single authority every
// privileged endpoint consults, and the secondary revocation mechanism
// for stateless tokens: rejecting or deactivating an account cuts off
// its outstanding sessions here.
func (s *ApprovalService) Gate(ctx context.Context, accountID string) (domain.Account, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrForbidden
		}
		return domain.Account{}, fmt.Errorf("failed to load account: %w", err)
	}

	if !account.CanAuthenticate() {
		return domain.Account{}, ErrForbidden
	}

	return account, nil
}

func mapDecisionErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotPending):
		return ErrAlreadyProcessed
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("failed to apply approval decision: %w", err)
	}
}
