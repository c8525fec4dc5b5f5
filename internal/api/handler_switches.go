package api

import (
	"net/http"
	"sort"

	"github.com/Resinat/Portwatch/internal/fabric"
	"github.com/Resinat/Portwatch/internal/metrics"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

type switchResponse struct {
	DPID     fabric.DPID               `json:"dpid"`
	Name     string                    `json:"name"`
	Known    bool                      `json:"known"`
	Layer    string                    `json:"layer"`
	Pod      uint8                     `json:"pod"`
	Index    uint8                     `json:"index"`
	Ports    []telemetry.PortID        `json:"ports"`
	Counters *metrics.CountersSnapshot `json:"counters,omitempty"`
}

func toSwitchResponse(dpid fabric.DPID, ports []telemetry.PortID, collector *metrics.Collector) switchResponse {
	id, known := fabric.Decode(dpid)
	resp := switchResponse{
		DPID:  dpid,
		Known: known,
		Layer: id.Layer.String(),
		Pod:   id.Pod,
		Index: id.Index,
		Ports: ports,
	}
	if known {
		resp.Name = id.Label()
	}
	if collector != nil {
		if c, ok := collector.SwitchSnapshot(dpid); ok {
			resp.Counters = &c
		}
	}
	return resp
}

// HandleListSwitches returns a handler for GET /api/v1/switches.
func HandleListSwitches(registry *telemetry.Registry, collector *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switches := registry.Switches()
		dpids := make([]fabric.DPID, 0, len(switches))
		for dpid := range switches {
			dpids = append(dpids, dpid)
		}
		sort.Slice(dpids, func(i, j int) bool { return dpids[i] < dpids[j] })

		items := make([]switchResponse, 0, len(dpids))
		for _, dpid := range dpids {
			items = append(items, toSwitchResponse(dpid, switches[dpid], collector))
		}
		WriteJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}
