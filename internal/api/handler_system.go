package api

import (
	"net/http"
	"time"

	"github.com/Resinat/Portwatch/internal/config"
	"github.com/Resinat/Portwatch/internal/hub"
	"github.com/Resinat/Portwatch/internal/metrics"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

// SystemInfo is static build and process information.
type SystemInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime string    `json:"build_time"`
	StartedAt time.Time `json:"started_at"`
}

type systemInfoResponse struct {
	SystemInfo
	UptimeSeconds int64                    `json:"uptime_seconds"`
	Series        int                      `json:"series"`
	Subscribers   int                      `json:"subscribers"`
	Faults        int                      `json:"faults"`
	Counters      metrics.CountersSnapshot `json:"counters"`
	Config        *config.PublicConfig     `json:"config,omitempty"`
}

// HandleSystemInfo returns a handler for GET /api/v1/system/info.
func HandleSystemInfo(
	info SystemInfo,
	envCfg *config.EnvConfig,
	registry *telemetry.Registry,
	faults *telemetry.FaultTable,
	collector *metrics.Collector,
	h *hub.Hub,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := systemInfoResponse{SystemInfo: info}
		if !info.StartedAt.IsZero() {
			resp.UptimeSeconds = int64(time.Since(info.StartedAt).Seconds())
		}
		if registry != nil {
			resp.Series = registry.Len()
		}
		if h != nil {
			resp.Subscribers = h.Len()
		}
		if faults != nil {
			resp.Faults = faults.Size()
		}
		if collector != nil {
			resp.Counters = collector.Snapshot()
		}
		if envCfg != nil {
			pub := envCfg.Public()
			resp.Config = &pub
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
