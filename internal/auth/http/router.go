package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/relooptech/reloop/internal/auth/service"
	"github.com/relooptech/reloop/internal/auth/store"
	"github.com/relooptech/reloop/pkg/httpx"
	"github.com/relooptech/reloop/pkg/jwtx"
	"github.com/relooptech/reloop/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	AuthService         *service.AuthService
	TokenService        *service.TokenService
	MFAService          *service.MFAService
	RegistrationService *service.RegistrationService
	ApprovalService     *service.ApprovalService
	AccountService      *service.AccountService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerRegistration()
	r.registerTwoFactor()
	r.registerAccounts()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware
// chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Login is throttled per IP + submitted email so one IP cannot spray
	// attempts across many accounts unthrottled.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)

	// Second-factor attempts are the brute-force target; strict by IP.
	// Per-account throttling is the lockout guard's job.
	r.Mux.Handle("POST /v1/auth/2fa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleSecondFactor),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerRegistration() {
	h := &RegisterHandler{RegistrationService: r.RegistrationService}

	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleManual),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/register/federated",
		httpx.Chain(http.HandlerFunc(h.HandleFederated),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{MFAService: r.MFAService}

	r.Mux.Handle("POST /v1/2fa/setup",
		r.secured(http.HandlerFunc(h.HandleSetup),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)

	// Enable verifies a TOTP code; strict to slow down code guessing.
	r.Mux.Handle("POST /v1/2fa/enable",
		r.secured(http.HandlerFunc(h.HandleEnable),
			httpx.RateLimitByAccount(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/2fa/disable",
		r.secured(http.HandlerFunc(h.HandleDisable),
			httpx.RateLimitByAccount(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/2fa/backup-codes",
		r.secured(http.HandlerFunc(h.HandleRegenerateBackupCodes),
			httpx.RateLimitByAccount(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAccounts() {
	h := &AccountsHandler{
		ApprovalService: r.ApprovalService,
		AccountService:  r.AccountService,
	}

	r.Mux.Handle("GET /v1/accounts/me",
		r.secured(http.HandlerFunc(h.HandleMe),
			httpx.RateLimitByAccount(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /v1/accounts/pending",
		r.securedAdmin(http.HandlerFunc(h.HandleListPending),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/accounts/{id}/approve",
		r.securedAdmin(http.HandlerFunc(h.HandleApprove),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/accounts/{id}/reject",
		r.securedAdmin(http.HandlerFunc(h.HandleReject),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/accounts/{id}",
		r.securedAdmin(http.HandlerFunc(h.HandleDelete),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

// secured verifies the session token, re-loads the account through the
// approval gate and injects the typed principal. Every privileged route
// goes through this one path.
func (r *Router) secured(h http.Handler, extra ...httpx.Middleware) http.Handler {
	mws := append([]httpx.Middleware{
		httpx.AuthnMiddleware(r.verifier),
		r.principalMiddleware(),
	}, extra...)
	return httpx.Chain(h, mws...)
}

// securedAdmin additionally requires an admin or super admin role,
// judged from the freshly loaded account rather than the token claims.
func (r *Router) securedAdmin(h http.Handler, extra ...httpx.Middleware) http.Handler {
	mws := append([]httpx.Middleware{
		httpx.AuthnMiddleware(r.verifier),
		r.principalMiddleware(),
		requireAdmin(),
	}, extra...)
	return httpx.Chain(h, mws...)
}
