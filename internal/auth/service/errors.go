package service

import "errors"

// Sentinel errors returned to the transport layer. Authentication
// failures are deliberately uniform: unknown email, wrong password,
// pending approval and deactivated accounts all surface as
// ErrInvalidCredentials so callers cannot enumerate accounts.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidCode        = errors.New("invalid_code")
	ErrAccountLocked      = errors.New("account_locked")
	ErrAlreadyProcessed   = errors.New("already_processed")
	ErrNotFound           = errors.New("not_found")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidRole        = errors.New("invalid_role")

	ErrTwoFactorNotEnabled     = errors.New("two_factor_not_enabled")
	ErrTwoFactorAlreadyEnabled = errors.New("two_factor_already_enabled")
)
