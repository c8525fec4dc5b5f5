package api

import (
	"net/http"

	"github.com/Resinat/Portwatch/internal/telemetry"
)

type healthResponse struct {
	Status string `json:"status"`
	Series int    `json:"series"`
}

// HandleHealthz returns a handler for GET /healthz. It needs no auth and
// reports how many series are being tracked.
func HandleHealthz(registry *telemetry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if registry != nil {
			resp.Series = registry.Len()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
