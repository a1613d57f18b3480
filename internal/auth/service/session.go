package service

import (
	"fmt"
	"time"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/pkg/jwtx"
)

// TokenService issues signed, stateless session tokens. Verification
// lives in jwtx; this wrapper binds the signer to the configured issuer
// and lifetime and maps accounts to claims.
type TokenService struct {
	Signer *jwtx.HS256
	Issuer string
	TTL    time.Duration
}

// Issue mints a session token for an account. The caller is
// responsible for having already passed the approval gate; issuance
// itself has no side effects beyond signing.
func (s *TokenService) Issue(account domain.Account) (domain.Session, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	claims := jwtx.NewSessionClaims(
		account.ID,
		string(account.Role),
		string(account.UserType),
		account.Email,
		ttl,
		s.Issuer,
		time.Now().UTC(),
	)

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return domain.Session{
		Token:     token,
		ExpiresIn: ttl,
		Role:      account.Role,
	}, nil
}

// Verify validates a session token and returns its claims.
func (s *TokenService) Verify(token string) (jwtx.Claims, error) {
	return s.Signer.Verify(token)
}
