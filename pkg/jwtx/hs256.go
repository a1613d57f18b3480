package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum accepted signing secret length in bytes.
// Anything shorter makes HS256 brute-forceable.
const MinSecretLength = 32

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Verifier validates a session token and returns its claims if legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HS256 signs and verifies session tokens with a single shared secret.
// Rotating the secret invalidates every outstanding session, which is
// the only bulk-revocation mechanism for stateless tokens.
type HS256 struct {
	secret []byte
	issuer string
}

// NewHS256 builds a signer/verifier from the configured secret.
// The secret is required and must be at least MinSecretLength bytes.
func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwtx: signing secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	return &HS256{secret: secret, issuer: issuer}, nil
}

// Sign turns claims into a signed compact JWT string.
func (s *HS256) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify validates the JWT string and returns its parsed Claims.
// Signature, issuer, and expiry are all enforced; verification is pure
// and never touches the store.
func (s *HS256) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrNotYetValid
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(s.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}
