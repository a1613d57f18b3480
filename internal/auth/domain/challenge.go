package domain

import "time"

// Challenge is a pending second-factor challenge created when a
// password check succeeds for a 2FA-enabled account. The ID doubles as
// the opaque challenge reference handed to the client; it is not a
// session and grants nothing on its own.
type Challenge struct {
	ID        string // ULID, the challenge reference
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ChallengeResponse is returned from login when a second factor is
// required instead of a session.
type ChallengeResponse struct {
	TwoFactorRequired bool     `json:"two_factor_required"` // always true
	ChallengeRef      string   `json:"challenge_ref"`
	Methods           []string `json:"methods"` // e.g. ["totp", "backup_code"]
}
