package authsdk

// Shared request/response types for the auth API. The server handlers
// and the Go client both use these so the wire format has a single
// definition.

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned from login. Exactly one of the two shapes
// is populated: a session (two_factor_required false) or a challenge.
type LoginResponse struct {
	TwoFactorRequired bool     `json:"two_factor_required"`
	ChallengeRef      string   `json:"challenge_ref,omitempty"`
	Methods           []string `json:"methods,omitempty"`

	Token     string `json:"token,omitempty"`
	ExpiresIn int64  `json:"expires_in,omitempty"` // seconds
	Role      string `json:"role,omitempty"`
}

// SecondFactorRequest is the body for POST /v1/auth/2fa/verify.
type SecondFactorRequest struct {
	ChallengeRef string `json:"challenge_ref"`
	Code         string `json:"code"`
	IsBackupCode bool   `json:"is_backup_code,omitempty"`
}

// SessionResponse is a freshly issued session token.
type SessionResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"` // seconds
	Role      string `json:"role"`
}

// RegisterRequest is the body for POST /v1/auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	UserType    string `json:"user_type"` // "employee" or "partner"
}

// RegisterFederatedRequest is the body for
// POST /v1/auth/register/federated.
type RegisterFederatedRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Subject     string `json:"subject"` // external IdP subject id
	UserType    string `json:"user_type"`
}

// AccountResponse is the public view of an account. Credentials, 2FA
// secrets and lockout counters never leave the server.
type AccountResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	DisplayName      string `json:"display_name"`
	UserType         string `json:"user_type"`
	Role             string `json:"role"`
	ApprovalStatus   string `json:"approval_status"`
	Active           bool   `json:"active"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
	CreatedAt        string `json:"created_at"` // RFC 3339
	LastLoginAt      string `json:"last_login_at,omitempty"`
}

// PendingAccountsResponse lists accounts awaiting an approval decision.
type PendingAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// ApproveRequest is the body for POST /v1/accounts/{id}/approve.
type ApproveRequest struct {
	Role string `json:"role"`
}

// RejectRequest is the body for POST /v1/accounts/{id}/reject.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// TwoFactorSetupResponse is returned from POST /v1/2fa/setup. The
// secret and URI are shown exactly once.
type TwoFactorSetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	Issuer          string `json:"issuer"`
	Account         string `json:"account"`
}

// TwoFactorCodeRequest carries a TOTP code for the 2FA lifecycle
// endpoints (enable, disable, backup-code rotation).
type TwoFactorCodeRequest struct {
	Code string `json:"code"`
}

// BackupCodesResponse returns plaintext backup codes, shown once.
type BackupCodesResponse struct {
	Codes []string `json:"codes"`
}

// HealthResponse is returned from /livez and /readyz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}
