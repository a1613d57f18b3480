// Package jwtx issues and verifies the signed, stateless session tokens
// used by the auth service. Sessions carry the account id and role; the
// server keeps no session table, so revocation happens through token
// expiry or the approval gate re-checking the account on each request.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the default lifetime for session tokens.
// Short-lived by design since tokens cannot be revoked server-side.
const DefaultSessionTTL = 12 * time.Hour

// Claims are the session-token claims. Additive changes only, to keep
// older tokens parseable during a rollout.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the account's assigned role (e.g. "admin", "transporter").
	Role string `json:"role,omitempty"`

	// UserType distinguishes employees, partners and super admins.
	UserType string `json:"user_type,omitempty"`

	// Email of the authenticated account, for display and logging.
	Email string `json:"email,omitempty"`
}

// NewSessionClaims builds minimally-correct claims for a session token.
func NewSessionClaims(
	subject, role, userType, email string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role:     role,
		UserType: userType,
		Email:    email,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
