package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/pkg/totpx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup2FA(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	account := e.createAccount(t, domain.ApprovalApproved, true)

	setup, err := e.MFA.Setup2FA(ctx, account.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.ProvisioningURI, "otpauth://totp/")
	assert.Contains(t, setup.ProvisioningURI, "issuer="+testIssuer)
	assert.Equal(t, account.Email, setup.Account)

	// The secret is stored but 2FA stays off until the first code verifies.
	got, err := e.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, got.TwoFactorEnabled)
	require.NotNil(t, got.TwoFactorSecret)
	assert.Equal(t, setup.Secret, *got.TwoFactorSecret)

	// Re-running setup before activation rotates the secret.
	again, err := e.MFA.Setup2FA(ctx, account.ID)
	require.NoError(t, err)
	assert.NotEqual(t, setup.Secret, again.Secret)
}

func TestEnable2FA(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	account := e.createAccount(t, domain.ApprovalApproved, true)

	// Enabling before enrollment fails.
	_, err := e.MFA.Enable2FA(ctx, account.ID, "123456")
	assert.ErrorIs(t, err, ErrTwoFactorNotEnabled)

	setup, err := e.MFA.Setup2FA(ctx, account.ID)
	require.NoError(t, err)

	// A wrong code does not enable anything.
	_, err = e.MFA.Enable2FA(ctx, account.ID, "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)

	got, err := e.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, got.TwoFactorEnabled)

	code, err := totpx.CodeAt(setup.Secret, time.Now().UTC())
	require.NoError(t, err)

	codes, err := e.MFA.Enable2FA(ctx, account.ID, code)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	got, err = e.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.TwoFactorEnabled)

	n, err := e.Store.BackupCodes().CountBackupCodes(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	// Enabling twice fails.
	_, err = e.MFA.Enable2FA(ctx, account.ID, code)
	assert.ErrorIs(t, err, ErrTwoFactorAlreadyEnabled)
	_, err = e.MFA.Setup2FA(ctx, account.ID)
	assert.ErrorIs(t, err, ErrTwoFactorAlreadyEnabled)
}

func TestDisable2FA(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	account := e.createAccount(t, domain.ApprovalApproved, true)

	err := e.MFA.Disable2FA(ctx, account.ID, "123456")
	assert.ErrorIs(t, err, ErrTwoFactorNotEnabled)

	secret, _ := e.enable2FA(t, account.ID)

	err = e.MFA.Disable2FA(ctx, account.ID, "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)

	code, err := totpx.CodeAt(secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, e.MFA.Disable2FA(ctx, account.ID, code))

	got, err := e.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, got.TwoFactorEnabled)
	assert.Nil(t, got.TwoFactorSecret)

	n, err := e.Store.BackupCodes().CountBackupCodes(ctx, account.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegenerateBackupCodes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	account := e.createAccount(t, domain.ApprovalApproved, true)
	secret, oldCodes := e.enable2FA(t, account.ID)

	code, err := totpx.CodeAt(secret, time.Now().UTC())
	require.NoError(t, err)

	newCodes, err := e.MFA.RegenerateBackupCodes(ctx, account.ID, code)
	require.NoError(t, err)
	require.Len(t, newCodes, 10)

	n, err := e.Store.BackupCodes().CountBackupCodes(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	// Old codes are dead after rotation.
	ok, err := e.Store.BackupCodes().ConsumeBackupCode(ctx, account.ID, HashBackupCode(oldCodes[0]))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.Store.BackupCodes().ConsumeBackupCode(ctx, account.ID, HashBackupCode(newCodes[0]))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGenerateBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes()
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		assert.Len(t, c, 9)
		assert.Equal(t, byte('-'), c[4])
		for _, r := range strings.ReplaceAll(c, "-", "") {
			assert.Contains(t, backupCodeCharset, string(r))
		}
		seen[c] = struct{}{}
	}
	assert.Len(t, seen, 10, "codes must be unique")
}

func TestHashBackupCode_Normalization(t *testing.T) {
	// Separator and case variants hash identically.
	want := HashBackupCode("ABCD-EFGH")
	assert.Equal(t, want, HashBackupCode("abcd-efgh"))
	assert.Equal(t, want, HashBackupCode(" ABCDEFGH "))
	assert.Equal(t, want, HashBackupCode("abcd efgh"))
	assert.NotEqual(t, want, HashBackupCode("ABCD-EFGJ"))
}
