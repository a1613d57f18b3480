package service

import (
	"context"
	"testing"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/pkg/idx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApprovalService(e *testEnv) *ApprovalService {
	return &ApprovalService{Store: e.Store, Notifier: LogNotifier{}}
}

func TestApprove(t *testing.T) {
	e := newTestEnv(t)
	svc := newApprovalService(e)
	ctx := context.Background()

	pending := e.createAccount(t, domain.ApprovalPending, false)
	approver := idx.New().String()

	account, err := svc.Approve(ctx, pending.ID, approver, domain.RoleCoordinator)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, account.ApprovalStatus)
	assert.Equal(t, domain.RoleCoordinator, account.Role)
	assert.True(t, account.Active)
	require.NotNil(t, account.ApprovedBy)
	assert.Equal(t, approver, *account.ApprovedBy)

	// Decisions are terminal.
	_, err = svc.Approve(ctx, pending.ID, approver, domain.RoleAdmin)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	_, err = svc.Reject(ctx, pending.ID, approver, "too late")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestApprove_InvalidRole(t *testing.T) {
	e := newTestEnv(t)
	svc := newApprovalService(e)

	pending := e.createAccount(t, domain.ApprovalPending, false)
	_, err := svc.Approve(context.Background(), pending.ID, idx.New().String(), domain.Role("janitor"))
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestApprove_UnknownAccount(t *testing.T) {
	e := newTestEnv(t)
	svc := newApprovalService(e)

	_, err := svc.Approve(context.Background(), idx.New().String(), idx.New().String(), domain.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReject(t *testing.T) {
	e := newTestEnv(t)
	svc := newApprovalService(e)
	ctx := context.Background()

	pending := e.createAccount(t, domain.ApprovalPending, false)

	account, err := svc.Reject(ctx, pending.ID, idx.New().String(), "could not verify employer")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, account.ApprovalStatus)
	assert.False(t, account.Active)
	require.NotNil(t, account.RejectionReason)
	assert.Equal(t, "could not verify employer", *account.RejectionReason)

	// A rejected account cannot log in even with correct credentials.
	_, err = e.Auth.Login(ctx, pending.Email, testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestListPending(t *testing.T) {
	e := newTestEnv(t)
	svc := newApprovalService(e)
	ctx := context.Background()

	a := e.createAccount(t, domain.ApprovalPending, false)
	b := e.createAccount(t, domain.ApprovalPending, false)
	e.createAccount(t, domain.ApprovalApproved, true)

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	ids := []string{pending[0].ID, pending[1].ID}
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)
}

func TestGate(t *testing.T) {
	e := newTestEnv(t)
	svc := newApprovalService(e)
	ctx := context.Background()

	approved := e.createAccount(t, domain.ApprovalApproved, true)
	pending := e.createAccount(t, domain.ApprovalPending, false)
	deactivated := e.createAccount(t, domain.ApprovalApproved, false)

	account, err := svc.Gate(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, approved.ID, account.ID)

	_, err = svc.Gate(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Gate(ctx, deactivated.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// A deleted account no longer passes the gate, revoking any
	// outstanding session the moment it hits a privileged endpoint.
	require.NoError(t, e.Store.Accounts().DeleteAccount(ctx, approved.ID))
	_, err = svc.Gate(ctx, approved.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
