// Package auth_test exercises the full HTTP surface of the auth
// service end to end: real router, real services, real sqlite store,
// driven through the authsdk client.
package auth_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/relooptech/reloop/internal/auth/app"
	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/internal/auth/store"
	"github.com/relooptech/reloop/internal/auth/store/drivers/sqlite"
	"github.com/relooptech/reloop/pkg/authsdk"
	"github.com/relooptech/reloop/pkg/cryptox"
	"github.com/relooptech/reloop/pkg/idx"

	"github.com/stretchr/testify/require"
)

const (
	e2ePassword = "a sufficiently long password"
	e2eSecret   = "e2e-signing-secret-0123456789abcdef"
)

type env struct {
	srv    *httptest.Server
	store  store.Store
	hasher *cryptox.Hasher
}

// newEnv boots a complete application on a temp database and returns a
// test server plus a direct store handle for seeding.
func newEnv(t *testing.T) *env {
	t.Helper()

	dir := t.TempDir()
	dbFile := filepath.Join(dir, "auth.db")

	cfg := app.Config{
		Issuer:               "reloop-auth-e2e",
		SigningSecret:        e2eSecret,
		TokenTTL:             time.Hour,
		ChallengeTTL:         5 * time.Minute,
		LockoutThresh:        5,
		LockoutDuration:      30 * time.Minute,
		TOTPSkew:             1,
		DatabaseFile:         dbFile,
		PepperFile:           filepath.Join(dir, "pepper"),
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "text",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}

	application, err := app.New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(srv.Close)

	seedStore, err := sqlite.NewStore(fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", dbFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = seedStore.Close() })

	pepper, err := cryptox.LoadOrGeneratePepper(cfg.PepperFile)
	require.NoError(t, err)

	return &env{
		srv:    srv,
		store:  seedStore,
		hasher: cryptox.NewHasher(pepper),
	}
}

func (e *env) client() *authsdk.Client {
	return authsdk.NewClient(e.srv.URL)
}

// seedAccount inserts an account directly, bypassing registration, and
// returns it. Used for the admin that has to exist before anyone can
// be approved.
func (e *env) seedAccount(t *testing.T, role domain.Role, status domain.ApprovalStatus, active bool) domain.Account {
	t.Helper()

	hash, err := e.hasher.Hash(e2ePassword)
	require.NoError(t, err)

	now := time.Now().UTC()
	account := domain.Account{
		ID:             idx.New().String(),
		Email:          strings.ToLower(idx.New().String()) + "@e2e.reloop.example",
		DisplayName:    "Seeded User",
		PasswordHash:   hash,
		UserType:       domain.UserTypeEmployee,
		Role:           role,
		ApprovalStatus: status,
		Active:         active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, e.store.Accounts().CreateAccount(context.Background(), account))
	return account
}

// loginAs performs a full password login and returns an authenticated
// client.
func (e *env) loginAs(t *testing.T, email string) *authsdk.Client {
	t.Helper()

	c := e.client()
	resp, err := c.Login(context.Background(), email, e2ePassword)
	require.NoError(t, err)
	require.False(t, resp.TwoFactorRequired)
	require.NotEmpty(t, resp.Token)

	c.SetToken(resp.Token)
	return c
}
