package http

import (
	"context"
	"net/http"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/pkg/httpx"
)

type principalKey struct{}

// PrincipalFromContext returns the authenticated account loaded by the
// approval gate. Only present on routes behind Router.secured.
func PrincipalFromContext(ctx context.Context) (domain.Account, bool) {
	a, ok := ctx.Value(principalKey{}).(domain.Account)
	return a, ok
}

// principalMiddleware re-loads the account behind the verified token
// and applies the approval gate. A token for a since-rejected, deleted
// or deactivated account dies here, on every privileged request. The
// loaded account is attached to the context as a typed value so
// handlers never re-derive role or approval state from token claims.
func (r *Router) principalMiddleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			accountID := httpx.AccountIDFromContext(ctx)
			if accountID == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated account")
				return
			}

			account, err := r.ApprovalService.Gate(ctx, accountID)
			if err != nil {
				writeServiceError(w, req, err)
				return
			}

			ctx = context.WithValue(ctx, principalKey{}, account)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// requireAdmin restricts a route to admin and super admin principals.
// The check reads the freshly loaded account, not the token.
func requireAdmin() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			principal, ok := PrincipalFromContext(req.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated account")
				return
			}

			switch principal.Role {
			case domain.RoleAdmin, domain.RoleSuperAdmin:
				next.ServeHTTP(w, req)
			default:
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "admin role required")
			}
		})
	}
}
