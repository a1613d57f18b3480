package auth_test

import (
	"context"
	"testing"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/pkg/authsdk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegistrationApprovalLoginFlow walks the full onboarding path: a
// fresh registration cannot log in, an admin approves it with a final
// role, and only then does login hand out a session.
func TestRegistrationApprovalLoginFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	admin := e.seedAccount(t, domain.RoleAdmin, domain.ApprovalApproved, true)

	c := e.client()
	registered, err := c.Register(ctx, authsdk.RegisterRequest{
		Email:       "newcomer@reloop.example",
		DisplayName: "New Comer",
		Password:    e2ePassword,
		UserType:    "employee",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", registered.ApprovalStatus)
	assert.False(t, registered.Active)

	// Pending accounts look exactly like bad credentials.
	_, err = e.client().Login(ctx, "newcomer@reloop.example", e2ePassword)
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	adminClient := e.loginAs(t, admin.Email)

	pending, err := adminClient.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending.Accounts, 1)
	assert.Equal(t, registered.ID, pending.Accounts[0].ID)

	approved, err := adminClient.Approve(ctx, registered.ID, "coordinator")
	require.NoError(t, err)
	assert.Equal(t, "approved", approved.ApprovalStatus)
	assert.Equal(t, "coordinator", approved.Role)
	assert.True(t, approved.Active)

	userClient := e.loginAs(t, "newcomer@reloop.example")

	me, err := userClient.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "newcomer@reloop.example", me.Email)
	assert.Equal(t, "coordinator", me.Role)
}

// TestLoginRejectsWrongPassword exercises the plain failure path over
// the wire, including the logout round trip afterwards.
func TestLoginRejectsWrongPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	account := e.seedAccount(t, domain.RoleCoordinator, domain.ApprovalApproved, true)

	_, err := e.client().Login(ctx, account.Email, "definitely not it")
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	c := e.loginAs(t, account.Email)
	require.NoError(t, c.Logout(ctx))

	// The client dropped its token; privileged calls fail again.
	_, err = c.Me(ctx)
	require.ErrorIs(t, err, authsdk.ErrUnauthorized)
}

// TestRejectedAccountCannotLogin confirms a rejection is terminal over
// the API: the decision sticks and login stays closed.
func TestRejectedAccountCannotLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	admin := e.seedAccount(t, domain.RoleAdmin, domain.ApprovalApproved, true)
	adminClient := e.loginAs(t, admin.Email)

	registered, err := e.client().Register(ctx, authsdk.RegisterRequest{
		Email:       "rejected@reloop.example",
		DisplayName: "Not This Time",
		Password:    e2ePassword,
		UserType:    "partner",
	})
	require.NoError(t, err)

	rejected, err := adminClient.Reject(ctx, registered.ID, "unknown organization")
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejected.ApprovalStatus)

	_, err = e.client().Login(ctx, "rejected@reloop.example", e2ePassword)
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	// A second decision on the same account is refused.
	_, err = adminClient.Approve(ctx, registered.ID, "partner")
	require.ErrorIs(t, err, authsdk.ErrAlreadyProcessed)
}
