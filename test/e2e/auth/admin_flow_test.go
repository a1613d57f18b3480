package auth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/pkg/authsdk"
	"github.com/relooptech/reloop/pkg/idx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAccountDeletionRevokesAccess deletes an account out from under a
// live session and confirms the next privileged call is refused. The
// token is still cryptographically valid; the per-request account
// reload is what closes the door.
func TestAccountDeletionRevokesAccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	admin := e.seedAccount(t, domain.RoleAdmin, domain.ApprovalApproved, true)
	user := e.seedAccount(t, domain.RoleCoordinator, domain.ApprovalApproved, true)

	adminClient := e.loginAs(t, admin.Email)
	userClient := e.loginAs(t, user.Email)

	_, err := userClient.Me(ctx)
	require.NoError(t, err)

	require.NoError(t, adminClient.DeleteAccount(ctx, user.ID))

	_, err = userClient.Me(ctx)
	require.ErrorIs(t, err, authsdk.ErrForbidden)
}

// TestSuperAdminDeletionRefused confirms the last-resort guard: no
// admin can delete a super admin account through the API.
func TestSuperAdminDeletionRefused(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	admin := e.seedAccount(t, domain.RoleAdmin, domain.ApprovalApproved, true)
	superAdmin := e.seedAccount(t, domain.RoleSuperAdmin, domain.ApprovalApproved, true)

	adminClient := e.loginAs(t, admin.Email)

	err := adminClient.DeleteAccount(ctx, superAdmin.ID)
	require.ErrorIs(t, err, authsdk.ErrForbidden)
}

// TestApprovalRoutesRequireAdmin checks that an ordinary approved
// account cannot reach any of the admin surface.
func TestApprovalRoutesRequireAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user := e.seedAccount(t, domain.RoleTransporter, domain.ApprovalApproved, true)
	userClient := e.loginAs(t, user.Email)

	_, err := userClient.ListPending(ctx)
	require.ErrorIs(t, err, authsdk.ErrForbidden)

	_, err = userClient.Approve(ctx, user.ID, "admin")
	require.ErrorIs(t, err, authsdk.ErrForbidden)

	err = userClient.DeleteAccount(ctx, user.ID)
	require.ErrorIs(t, err, authsdk.ErrForbidden)
}

// TestApprovalValidation covers the decision endpoint's refusal modes:
// unknown account, bogus role.
func TestApprovalValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	admin := e.seedAccount(t, domain.RoleAdmin, domain.ApprovalApproved, true)
	pending := e.seedAccount(t, domain.RoleTransporter, domain.ApprovalPending, false)

	adminClient := e.loginAs(t, admin.Email)

	_, err := adminClient.Approve(ctx, idx.New().String(), "coordinator")
	require.ErrorIs(t, err, authsdk.ErrNotFound)

	_, err = adminClient.Approve(ctx, pending.ID, "galactic_overlord")
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid_role", apiErr.Code)

	// The pending account is untouched by the failed attempts.
	got, err := adminClient.Approve(ctx, pending.ID, "coordinator")
	require.NoError(t, err)
	assert.Equal(t, "approved", got.ApprovalStatus)
}
