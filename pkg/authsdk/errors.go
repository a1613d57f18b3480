package authsdk

import "fmt"

// APIError is a structured error response from the auth service.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("auth api: %s (%d): %s", e.Code, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("auth api: %s (%d)", e.Code, e.StatusCode)
}

// Is matches APIErrors by code so callers can errors.Is against the
// exported sentinels regardless of status or description.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// Sentinel errors for the error codes the service emits.
var (
	ErrInvalidCredentials = &APIError{Code: "invalid_credentials"}
	ErrInvalidCode        = &APIError{Code: "invalid_code"}
	ErrAccountLocked      = &APIError{Code: "account_locked"}
	ErrAlreadyProcessed   = &APIError{Code: "already_processed"}
	ErrUnauthorized       = &APIError{Code: "unauthorized"}
	ErrForbidden          = &APIError{Code: "forbidden"}
	ErrNotFound           = &APIError{Code: "not_found"}
	ErrRateLimited        = &APIError{Code: "rate_limited"}
)
