package service

import (
	"context"
	"testing"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/pkg/idx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistrationService(e *testEnv) *RegistrationService {
	return &RegistrationService{Store: e.Store, Hasher: e.Auth.Hasher, Notifier: LogNotifier{}}
}

func TestRegisterManual(t *testing.T) {
	e := newTestEnv(t)
	svc := newRegistrationService(e)
	ctx := context.Background()

	account, err := svc.RegisterManual(ctx, "New.Person@Reloop.Example", "New Person", testPassword, domain.UserTypeEmployee)
	require.NoError(t, err)

	// Email is normalized; account starts pending and inactive.
	assert.Equal(t, "new.person@reloop.example", account.Email)
	assert.Equal(t, domain.ApprovalPending, account.ApprovalStatus)
	assert.False(t, account.Active)
	assert.NotEmpty(t, account.PasswordHash)
	assert.Nil(t, account.FederatedID)

	// Pending accounts cannot log in yet.
	_, err = e.Auth.Login(ctx, account.Email, testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Approval unlocks login with the registered password.
	approvals := newApprovalService(e)
	_, err = approvals.Approve(ctx, account.ID, idx.New().String(), domain.RoleInventoryManager)
	require.NoError(t, err)

	result, err := e.Auth.Login(ctx, account.Email, testPassword)
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Equal(t, domain.RoleInventoryManager, result.Session.Role)
}

func TestRegisterManual_Validation(t *testing.T) {
	e := newTestEnv(t)
	svc := newRegistrationService(e)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		password string
		userType domain.UserType
		wantErr  error
	}{
		{"missing at", "not-an-email", testPassword, domain.UserTypeEmployee, ErrInvalidEmail},
		{"missing domain dot", "a@b", testPassword, domain.UserTypeEmployee, ErrInvalidEmail},
		{"short password", "a@b.example", "short", domain.UserTypeEmployee, ErrWeakPassword},
		{"super admin self-registration", "a@b.example", testPassword, domain.UserTypeSuperAdmin, ErrInvalidUserType},
		{"unknown user type", "a@b.example", testPassword, domain.UserType("alien"), ErrInvalidUserType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RegisterManual(ctx, tc.email, "X", tc.password, tc.userType)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRegisterManual_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	svc := newRegistrationService(e)
	ctx := context.Background()

	_, err := svc.RegisterManual(ctx, "dupe@reloop.example", "First", testPassword, domain.UserTypeEmployee)
	require.NoError(t, err)

	_, err = svc.RegisterManual(ctx, "dupe@reloop.example", "Second", testPassword, domain.UserTypePartner)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterFederated(t *testing.T) {
	e := newTestEnv(t)
	svc := newRegistrationService(e)
	ctx := context.Background()

	subject := "idp|" + idx.New().String()
	account, err := svc.RegisterFederated(ctx, "fed@reloop.example", "Fed User", subject, domain.UserTypePartner)
	require.NoError(t, err)
	assert.Empty(t, account.PasswordHash)
	require.NotNil(t, account.FederatedID)
	assert.Equal(t, subject, *account.FederatedID)
	assert.Equal(t, domain.RolePartner, account.Role)

	// Blank subject is rejected.
	_, err = svc.RegisterFederated(ctx, "fed2@reloop.example", "Fed User", "  ", domain.UserTypePartner)
	assert.Error(t, err)
}
