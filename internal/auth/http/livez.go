package http

import (
	"net/http"
	"time"

	"github.com/relooptech/reloop/pkg/authsdk"
	"github.com/relooptech/reloop/pkg/httpx"
)

// LivezHandler reports process liveness. It succeeds as long as the
// process can serve HTTP at all.
func LivezHandler(startTime time.Time, version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Version: version,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
		})
	})
}
