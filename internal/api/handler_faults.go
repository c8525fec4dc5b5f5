package api

import (
	"net/http"
	"time"

	"github.com/Resinat/Portwatch/internal/fabric"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

type faultResponse struct {
	DPID        fabric.DPID      `json:"dpid"`
	Port        telemetry.PortID `json:"port"`
	StaleCount  int64            `json:"stale_count"`
	LastMessage string           `json:"last_message"`
	LastAt      time.Time        `json:"last_at"`
}

// HandleListFaults returns a handler for GET /api/v1/faults.
// Records are ordered newest first and paginated with limit/offset.
func HandleListFaults(faults *telemetry.FaultTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pg, ok := parsePaginationOrWriteInvalid(w, r)
		if !ok {
			return
		}
		records := faults.List()
		items := make([]faultResponse, 0, len(records))
		for _, rec := range records {
			items = append(items, faultResponse{
				DPID:        rec.Key.DPID,
				Port:        rec.Key.Port,
				StaleCount:  rec.StaleCount,
				LastMessage: rec.LastMessage,
				LastAt:      rec.LastAt,
			})
		}
		WritePage(w, http.StatusOK, items, pg)
	}
}
