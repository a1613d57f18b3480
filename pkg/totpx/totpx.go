// Package totpx is the TOTP engine: secret generation, provisioning
// URIs for authenticator apps, and code verification with a bounded
// clock-skew window. Verification is pure; attempt counting and lockout
// are the caller's responsibility.
package totpx

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the TOTP time step in seconds. 30s is what every
	// mainstream authenticator app assumes.
	Period = 30

	// DefaultSkew accepts codes from one adjacent time step in either
	// direction to absorb client clock drift.
	DefaultSkew = 1

	secretBytes = 20 // 160-bit secrets per RFC 4226 recommendation
	codeDigits  = 6
)

// ErrInvalidFormat reports a code that is not exactly six digits after
// whitespace stripping. Such codes fail fast without running the
// algorithm.
var ErrInvalidFormat = errors.New("totpx: code must be 6 digits")

// GenerateSecret returns a fresh base32-encoded TOTP secret compatible
// with standard authenticator apps.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("totpx: failed to generate secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// ProvisioningURI formats an otpauth:// URI for the given issuer,
// account label and secret. The output is deterministic and is what a
// QR renderer encodes for enrollment.
func ProvisioningURI(issuer, accountLabel, secret string) (string, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secret))
	if err != nil {
		return "", fmt.Errorf("totpx: invalid secret encoding: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountLabel,
		Secret:      raw,
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("totpx: failed to build provisioning key: %w", err)
	}
	return key.URL(), nil
}

// Verify reports whether code matches the secret's current time-step
// value within the given skew window. Malformed codes return
// ErrInvalidFormat before any cryptographic work.
func Verify(code, secret string, skew uint) (bool, error) {
	code = normalizeCode(code)
	if !isSixDigits(code) {
		return false, ErrInvalidFormat
	}

	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    Period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false, fmt.Errorf("totpx: validation failed: %w", err)
	}
	return ok, nil
}

// CodeAt derives the code for the secret at the given time. Used by
// tests to simulate an authenticator app.
func CodeAt(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, totp.ValidateOpts{
		Period:    Period,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}

func normalizeCode(code string) string {
	return strings.Join(strings.Fields(code), "")
}

func isSixDigits(code string) bool {
	if len(code) != codeDigits {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
