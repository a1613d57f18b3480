package http

import (
	"context"
	"net/http"
	"time"

	"github.com/relooptech/reloop/internal/auth/store"
	"github.com/relooptech/reloop/pkg/authsdk"
	"github.com/relooptech/reloop/pkg/httpx"
	"github.com/relooptech/reloop/pkg/slogx"
)

// ReadyzHandler reports readiness: the store must answer a ping within
// a short deadline, otherwise the instance should not receive traffic.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			slogx.FromContext(r.Context()).Error("readiness check failed", "err", err)
			httpx.WriteJSON(w, http.StatusServiceUnavailable, authsdk.HealthResponse{
				Status:  "unavailable",
				Version: version,
			})
			return
		}

		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Version: version,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
		})
	})
}
