package domain

import "time"

// Session is an issued stateless session token plus its metadata.
// Nothing is persisted server-side; the token is the whole session.
type Session struct {
	Token     string        `json:"token"`
	ExpiresIn time.Duration `json:"expires_in"`
	Role      Role          `json:"role"`
}

// LoginResult is the outcome of a successful credential check: either a
// session (2FA disabled) or a challenge (2FA enabled), never both.
type LoginResult struct {
	Session   *Session
	Challenge *ChallengeResponse
}

// TwoFactorSetup is returned from 2FA enrollment. The secret is shown
// once; MFA is not enabled until the first code verifies.
type TwoFactorSetup struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	Issuer          string `json:"issuer"`
	Account         string `json:"account"`
}
