// Package authsdk is a Go client for the auth service plus the shared
// request/response types its handlers serve. Intended for the other
// Reloop services and for end-to-end tests.
package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the auth service. The zero value is not usable; use
// NewClient.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewClient creates a client for the service at baseURL (no trailing
// slash required).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client, e.g. for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithToken sets the bearer session token used on privileged calls.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// SetToken updates the session token after a login.
func (c *Client) SetToken(token string) { c.token = token }

// Login performs a password login. Inspect TwoFactorRequired on the
// response to see whether a second factor is needed.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", LoginRequest{Email: email, Password: password}, &out)
	return out, err
}

// CompleteSecondFactor redeems a login challenge with a TOTP or backup
// code.
func (c *Client) CompleteSecondFactor(ctx context.Context, challengeRef, code string, isBackupCode bool) (SessionResponse, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/2fa/verify", SecondFactorRequest{
		ChallengeRef: challengeRef,
		Code:         code,
		IsBackupCode: isBackupCode,
	}, &out)
	return out, err
}

// Logout tells the server to clear any transport cookie. The client
// also drops its token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil)
	c.token = ""
	return err
}

// Register creates a password-credentialed account (pending approval).
func (c *Client) Register(ctx context.Context, req RegisterRequest) (AccountResponse, error) {
	var out AccountResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/register", req, &out)
	return out, err
}

// RegisterFederated creates a federated account (pending approval).
func (c *Client) RegisterFederated(ctx context.Context, req RegisterFederatedRequest) (AccountResponse, error) {
	var out AccountResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/register/federated", req, &out)
	return out, err
}

// Me returns the authenticated account's own profile.
func (c *Client) Me(ctx context.Context) (AccountResponse, error) {
	var out AccountResponse
	err := c.do(ctx, http.MethodGet, "/v1/accounts/me", nil, &out)
	return out, err
}

// ListPending lists accounts awaiting approval. Admin only.
func (c *Client) ListPending(ctx context.Context) (PendingAccountsResponse, error) {
	var out PendingAccountsResponse
	err := c.do(ctx, http.MethodGet, "/v1/accounts/pending", nil, &out)
	return out, err
}

// Approve approves a pending account with the given final role.
func (c *Client) Approve(ctx context.Context, accountID, role string) (AccountResponse, error) {
	var out AccountResponse
	err := c.do(ctx, http.MethodPost, "/v1/accounts/"+accountID+"/approve", ApproveRequest{Role: role}, &out)
	return out, err
}

// Reject rejects a pending account.
func (c *Client) Reject(ctx context.Context, accountID, reason string) (AccountResponse, error) {
	var out AccountResponse
	err := c.do(ctx, http.MethodPost, "/v1/accounts/"+accountID+"/reject", RejectRequest{Reason: reason}, &out)
	return out, err
}

// DeleteAccount hard-deletes an account. Admin only; super admin
// accounts are refused.
func (c *Client) DeleteAccount(ctx context.Context, accountID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/accounts/"+accountID, nil, nil)
}

// Setup2FA starts TOTP enrollment for the authenticated account.
func (c *Client) Setup2FA(ctx context.Context) (TwoFactorSetupResponse, error) {
	var out TwoFactorSetupResponse
	err := c.do(ctx, http.MethodPost, "/v1/2fa/setup", nil, &out)
	return out, err
}

// Enable2FA verifies the first TOTP code and returns the backup codes.
func (c *Client) Enable2FA(ctx context.Context, code string) (BackupCodesResponse, error) {
	var out BackupCodesResponse
	err := c.do(ctx, http.MethodPost, "/v1/2fa/enable", TwoFactorCodeRequest{Code: code}, &out)
	return out, err
}

// Disable2FA turns 2FA off after verifying a current code.
func (c *Client) Disable2FA(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/v1/2fa/disable", TwoFactorCodeRequest{Code: code}, nil)
}

// RegenerateBackupCodes replaces the backup-code set.
func (c *Client) RegenerateBackupCodes(ctx context.Context, code string) (BackupCodesResponse, error) {
	var out BackupCodesResponse
	err := c.do(ctx, http.MethodPost, "/v1/2fa/backup-codes", TwoFactorCodeRequest{Code: code}, &out)
	return out, err
}

// Livez checks process liveness.
func (c *Client) Livez(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/livez", nil, &out)
	return out, err
}

// Readyz checks readiness including store connectivity.
func (c *Client) Readyz(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/readyz", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("authsdk: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("authsdk: failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("authsdk: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("authsdk: failed to decode response: %w", err)
	}
	return nil
}
