package http

import (
	"encoding/json"
	"net/http"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/internal/auth/service"
	"github.com/relooptech/reloop/pkg/authsdk"
	"github.com/relooptech/reloop/pkg/httpx"
)

// RegisterHandler serves account registration.
type RegisterHandler struct {
	RegistrationService *service.RegistrationService
}

// HandleManual handles POST /v1/auth/register.
func (h *RegisterHandler) HandleManual(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	account, err := h.RegistrationService.RegisterManual(
		r.Context(), req.Email, req.DisplayName, req.Password, domain.UserType(req.UserType))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, accountResponse(account))
}

// HandleFederated handles POST /v1/auth/register/federated. The IdP
// assertion is verified by the federation front end before this runs.
func (h *RegisterHandler) HandleFederated(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterFederatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	account, err := h.RegistrationService.RegisterFederated(
		r.Context(), req.Email, req.DisplayName, req.Subject, domain.UserType(req.UserType))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, accountResponse(account))
}
