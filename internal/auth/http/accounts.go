package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/internal/auth/service"
	"github.com/relooptech/reloop/pkg/authsdk"
	"github.com/relooptech/reloop/pkg/httpx"
)

// AccountsHandler serves account reads and the approval workflow.
type AccountsHandler struct {
	ApprovalService *service.ApprovalService
	AccountService  *service.AccountService
}

// HandleMe handles GET /v1/accounts/me.
func (h *AccountsHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated account")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, accountResponse(principal))
}

// HandleListPending handles GET /v1/accounts/pending.
func (h *AccountsHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.ApprovalService.ListPending(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := authsdk.PendingAccountsResponse{Accounts: make([]authsdk.AccountResponse, 0, len(accounts))}
	for _, a := range accounts {
		out.Accounts = append(out.Accounts, accountResponse(a))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleApprove handles POST /v1/accounts/{id}/approve.
func (h *AccountsHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated account")
		return
	}

	var req authsdk.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	account, err := h.ApprovalService.Approve(r.Context(), r.PathValue("id"), principal.ID, domain.Role(req.Role))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountResponse(account))
}

// HandleReject handles POST /v1/accounts/{id}/reject.
func (h *AccountsHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated account")
		return
	}

	var req authsdk.RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Reason == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "reason is required")
		return
	}

	account, err := h.ApprovalService.Reject(r.Context(), r.PathValue("id"), principal.ID, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountResponse(account))
}

// HandleDelete handles DELETE /v1/accounts/{id}.
func (h *AccountsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated account")
		return
	}

	if err := h.AccountService.Delete(r.Context(), r.PathValue("id"), principal.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// accountResponse is the public projection of an account. Secrets,
// hashes and lockout counters stay server-side.
func accountResponse(a domain.Account) authsdk.AccountResponse {
	out := authsdk.AccountResponse{
		ID:               a.ID,
		Email:            a.Email,
		DisplayName:      a.DisplayName,
		UserType:         string(a.UserType),
		Role:             string(a.Role),
		ApprovalStatus:   string(a.ApprovalStatus),
		Active:           a.Active,
		TwoFactorEnabled: a.TwoFactorEnabled,
		CreatedAt:        a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.LastLoginAt != nil {
		out.LastLoginAt = a.LastLoginAt.UTC().Format(time.RFC3339)
	}
	return out
}
