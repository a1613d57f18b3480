package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/relooptech/reloop/internal/auth/service"
	"github.com/relooptech/reloop/pkg/authsdk"
	"github.com/relooptech/reloop/pkg/httpx"
	"github.com/relooptech/reloop/pkg/slogx"
)

// AuthHandler serves login, second-factor verification and logout.
type AuthHandler struct {
	AuthService *service.AuthService
}

// HandleLogin handles POST /v1/auth/login. Accepts JSON or a form body;
// forms let the per-email rate limit key off the submitted address.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid form body")
			return
		}
		req.Email = r.PostFormValue("email")
		req.Password = r.PostFormValue("password")
	}

	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	result, err := h.AuthService.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if result.Challenge != nil {
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
			TwoFactorRequired: true,
			ChallengeRef:      result.Challenge.ChallengeRef,
			Methods:           result.Challenge.Methods,
		})
		return
	}

	log.Debug("session issued")
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		Token:     result.Session.Token,
		ExpiresIn: int64(result.Session.ExpiresIn.Seconds()),
		Role:      string(result.Session.Role),
	})
}

// HandleSecondFactor handles POST /v1/auth/2fa/verify.
func (h *AuthHandler) HandleSecondFactor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.SecondFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ChallengeRef == "" || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "challenge_ref and code are required")
		return
	}

	session, err := h.AuthService.CompleteSecondFactor(ctx, req.ChallengeRef, req.Code, req.IsBackupCode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SessionResponse{
		Token:     session.Token,
		ExpiresIn: int64(session.ExpiresIn.Seconds()),
		Role:      string(session.Role),
	})
}

// HandleLogout handles POST /v1/auth/logout. Sessions are stateless so
// there is nothing server-side to clear; the handler expires any
// session cookie the transport set and the client discards its token.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
