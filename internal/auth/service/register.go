package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/internal/auth/store"
	"github.com/relooptech/reloop/pkg/cryptox"
	"github.com/relooptech/reloop/pkg/idx"
)

const minPasswordLength = 10

var (
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrWeakPassword    = errors.New("weak_password")
	ErrInvalidUserType = errors.New("invalid_user_type")
)

// RegistrationService creates accounts. New accounts always start
// pending and inactive; nothing they do grants a session until an admin
// approves them.
type RegistrationService struct {
	Store    store.Store
	Hasher   *cryptox.Hasher
	Notifier Notifier
}

// RegisterManual creates a password-credentialed account.
func (s *RegistrationService) RegisterManual(ctx context.Context, email, displayName, password string, userType domain.UserType) (domain.Account, error) {
	email, err := validateEmail(email)
	if err != nil {
		return domain.Account{}, err
	}
	if len(password) < minPasswordLength {
		return domain.Account{}, ErrWeakPassword
	}
	if err := validateUserType(userType); err != nil {
		return domain.Account{}, err
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	account := newPendingAccount(email, displayName, userType)
	account.PasswordHash = hash

	return s.create(ctx, account)
}

// RegisterFederated creates an account credentialed by an external IdP
// subject. No password is ever set.
func (s *RegistrationService) RegisterFederated(ctx context.Context, email, displayName, subject string, userType domain.UserType) (domain.Account, error) {
	email, err := validateEmail(email)
	if err != nil {
		return domain.Account{}, err
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return domain.Account{}, ErrInvalidCredentials
	}
	if err := validateUserType(userType); err != nil {
		return domain.Account{}, err
	}

	account := newPendingAccount(email, displayName, userType)
	account.FederatedID = &subject

	return s.create(ctx, account)
}

func (s *RegistrationService) create(ctx context.Context, account domain.Account) (domain.Account, error) {
	if err := s.Store.Accounts().CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	if s.Notifier != nil {
		go s.Notifier.Notify(context.WithoutCancel(ctx), account.ID, EventAccountRegistered, map[string]any{
			"email":     account.Email,
			"user_type": string(account.UserType),
		})
	}

	return account, nil
}

// newPendingAccount builds the initial record. The role set here is a
// provisional default; the real role is assigned at approval and
// nothing consults it before then.
func newPendingAccount(email, displayName string, userType domain.UserType) domain.Account {
	role := domain.RoleTransporter
	if userType == domain.UserTypePartner {
		role = domain.RolePartner
	}

	now := time.Now().UTC()
	return domain.Account{
		ID:             idx.New().String(),
		Email:          email,
		DisplayName:    strings.TrimSpace(displayName),
		UserType:       userType,
		Role:           role,
		ApprovalStatus: domain.ApprovalPending,
		Active:         false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func validateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// validateUserType rejects self-registration as super_admin; those
// accounts are provisioned directly by operators.
func validateUserType(t domain.UserType) error {
	switch t {
	case domain.UserTypeEmployee, domain.UserTypePartner:
		return nil
	}
	return ErrInvalidUserType
}
