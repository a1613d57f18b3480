package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/relooptech/reloop/pkg/jwtx"
	"github.com/relooptech/reloop/pkg/slogx"
)

// AuthnMiddleware verifies the bearer session token and injects the
// claims into the request context. It only proves who the token was
// minted for; the approval gate downstream decides whether that account
// is still allowed in.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "unauthorized", "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				switch {
				case errors.Is(err, jwtx.ErrExpired):
					writeBearerError(w, "expired_token", "session token expired")
				default:
					writeBearerError(w, "invalid_token", "token verification failed")
				}
				log.Warn("session token verify failed", "err", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, claims)))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, code, desc)
}
