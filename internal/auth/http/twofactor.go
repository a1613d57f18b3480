package http

import (
	"encoding/json"
	"net/http"

	"github.com/relooptech/reloop/internal/auth/service"
	"github.com/relooptech/reloop/pkg/authsdk"
	"github.com/relooptech/reloop/pkg/httpx"
)

// TwoFactorHandler serves the 2FA lifecycle for the authenticated
// principal.
type TwoFactorHandler struct {
	MFAService *service.MFAService
}

// HandleSetup handles POST /v1/2fa/setup.
func (h *TwoFactorHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated account")
		return
	}

	setup, err := h.MFAService.Setup2FA(r.Context(), principal.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TwoFactorSetupResponse{
		Secret:          setup.Secret,
		ProvisioningURI: setup.ProvisioningURI,
		Issuer:          setup.Issuer,
		Account:         setup.Account,
	})
}

// HandleEnable handles POST /v1/2fa/enable.
func (h *TwoFactorHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	principal, code, ok := h.principalAndCode(w, r)
	if !ok {
		return
	}

	codes, err := h.MFAService.Enable2FA(r.Context(), principal, code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{Codes: codes})
}

// HandleDisable handles POST /v1/2fa/disable.
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	principal, code, ok := h.principalAndCode(w, r)
	if !ok {
		return
	}

	if err := h.MFAService.Disable2FA(r.Context(), principal, code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRegenerateBackupCodes handles POST /v1/2fa/backup-codes.
func (h *TwoFactorHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	principal, code, ok := h.principalAndCode(w, r)
	if !ok {
		return
	}

	codes, err := h.MFAService.RegenerateBackupCodes(r.Context(), principal, code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{Codes: codes})
}

// principalAndCode extracts the principal id and the submitted TOTP
// code, writing the error response itself when either is missing.
func (h *TwoFactorHandler) principalAndCode(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated account")
		return "", "", false
	}

	var req authsdk.TwoFactorCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return "", "", false
	}
	if req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return "", "", false
	}

	return principal.ID, req.Code, true
}
