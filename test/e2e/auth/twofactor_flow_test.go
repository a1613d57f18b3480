package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/pkg/authsdk"
	"github.com/relooptech/reloop/pkg/totpx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// enroll2FA runs setup and enable for an already authenticated client
// and returns the TOTP secret plus the one-time backup codes.
func enroll2FA(t *testing.T, c *authsdk.Client) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := c.Setup2FA(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.ProvisioningURI, "otpauth://")

	code, err := totpx.CodeAt(setup.Secret, time.Now().UTC())
	require.NoError(t, err)

	backup, err := c.Enable2FA(ctx, code)
	require.NoError(t, err)
	require.Len(t, backup.Codes, 10)

	return setup.Secret, backup.Codes
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totpx.CodeAt(secret, time.Now().UTC())
	require.NoError(t, err)
	return code
}

// TestTwoFactorLoginFlow enrolls TOTP, logs in through the challenge
// exchange, then disables 2FA and confirms login is direct again.
func TestTwoFactorLoginFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	account := e.seedAccount(t, domain.RoleInventoryManager, domain.ApprovalApproved, true)
	c := e.loginAs(t, account.Email)

	secret, _ := enroll2FA(t, c)

	// Password alone now yields a challenge, never a token.
	fresh := e.client()
	resp, err := fresh.Login(ctx, account.Email, e2ePassword)
	require.NoError(t, err)
	require.True(t, resp.TwoFactorRequired)
	require.NotEmpty(t, resp.ChallengeRef)
	require.Empty(t, resp.Token)
	assert.Contains(t, resp.Methods, "totp")

	// A wrong code does not consume the challenge.
	_, err = fresh.CompleteSecondFactor(ctx, resp.ChallengeRef, "000000", false)
	require.ErrorIs(t, err, authsdk.ErrInvalidCode)

	session, err := fresh.CompleteSecondFactor(ctx, resp.ChallengeRef, currentCode(t, secret), false)
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)

	// The challenge was consumed; replaying it fails.
	_, err = fresh.CompleteSecondFactor(ctx, resp.ChallengeRef, currentCode(t, secret), false)
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	require.NoError(t, c.Disable2FA(ctx, currentCode(t, secret)))

	direct := e.loginAs(t, account.Email)
	me, err := direct.Me(ctx)
	require.NoError(t, err)
	assert.False(t, me.TwoFactorEnabled)
}

// TestBackupCodeLoginIsSingleUse completes the challenge with a backup
// code and verifies the same code is dead afterwards.
func TestBackupCodeLoginIsSingleUse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	account := e.seedAccount(t, domain.RoleTransporter, domain.ApprovalApproved, true)
	c := e.loginAs(t, account.Email)

	_, codes := enroll2FA(t, c)

	resp, err := e.client().Login(ctx, account.Email, e2ePassword)
	require.NoError(t, err)
	require.True(t, resp.TwoFactorRequired)

	session, err := e.client().CompleteSecondFactor(ctx, resp.ChallengeRef, codes[0], true)
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)

	resp, err = e.client().Login(ctx, account.Email, e2ePassword)
	require.NoError(t, err)

	_, err = e.client().CompleteSecondFactor(ctx, resp.ChallengeRef, codes[0], true)
	require.ErrorIs(t, err, authsdk.ErrInvalidCode)

	// Another code from the set still works.
	session, err = e.client().CompleteSecondFactor(ctx, resp.ChallengeRef, codes[1], true)
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
}

// TestRegenerateBackupCodes rotates the set and confirms the old codes
// stop working while the new ones are accepted.
func TestRegenerateBackupCodes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	account := e.seedAccount(t, domain.RolePartner, domain.ApprovalApproved, true)
	c := e.loginAs(t, account.Email)

	secret, oldCodes := enroll2FA(t, c)

	rotated, err := c.RegenerateBackupCodes(ctx, currentCode(t, secret))
	require.NoError(t, err)
	require.Len(t, rotated.Codes, 10)
	assert.NotEqual(t, oldCodes[0], rotated.Codes[0])

	resp, err := e.client().Login(ctx, account.Email, e2ePassword)
	require.NoError(t, err)
	require.True(t, resp.TwoFactorRequired)

	_, err = e.client().CompleteSecondFactor(ctx, resp.ChallengeRef, oldCodes[0], true)
	require.ErrorIs(t, err, authsdk.ErrInvalidCode)

	session, err := e.client().CompleteSecondFactor(ctx, resp.ChallengeRef, rotated.Codes[0], true)
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
}
