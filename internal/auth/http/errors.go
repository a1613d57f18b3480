package http

import (
	"errors"
	"net/http"

	"github.com/relooptech/reloop/internal/auth/service"
	"github.com/relooptech/reloop/pkg/httpx"
	"github.com/relooptech/reloop/pkg/slogx"
)

// writeServiceError maps service-layer sentinel errors onto the uniform
// JSON error body. Anything unrecognized is an infrastructure failure
// and surfaces as an opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, service.ErrAccountLocked):
		httpx.WriteError(w, http.StatusLocked, "account_locked", "too many failed attempts, try again later")
	case errors.Is(err, service.ErrInvalidCode):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "invalid verification code")
	case errors.Is(err, service.ErrAlreadyProcessed):
		httpx.WriteError(w, http.StatusConflict, "already_processed", "account has already been decided")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "account not found")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "operation not permitted")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "email_taken", "an account with this email already exists")
	case errors.Is(err, service.ErrInvalidEmail):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_email", "email address is not valid")
	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteError(w, http.StatusBadRequest, "weak_password", "password does not meet requirements")
	case errors.Is(err, service.ErrInvalidUserType):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_user_type", "user type must be employee or partner")
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_role", "unknown role")
	case errors.Is(err, service.ErrTwoFactorNotEnabled):
		httpx.WriteError(w, http.StatusBadRequest, "two_factor_not_enabled", "2FA is not enabled for this account")
	case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
		httpx.WriteError(w, http.StatusBadRequest, "two_factor_already_enabled", "2FA is already enabled for this account")
	default:
		slogx.FromContext(r.Context()).Error("internal error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}
