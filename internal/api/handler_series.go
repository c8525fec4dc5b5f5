package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Resinat/Portwatch/internal/fabric"
	"github.com/Resinat/Portwatch/internal/hub"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

type seriesListResponse struct {
	Items []hub.SeriesFrame `json:"items"`
}

type seriesResponse struct {
	hub.SeriesFrame
	Capacity    int   `json:"capacity"`
	Regressions int64 `json:"regressions"`
}

// HandleListSeries returns a handler for GET /api/v1/series.
// The optional dpid query parameter restricts the list to one switch.
// Responses carry an ETag; a matching If-None-Match yields 304.
func HandleListSeries(registry *telemetry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter *fabric.DPID
		if v := r.URL.Query().Get("dpid"); v != "" {
			d, err := fabric.ParseDPID(v)
			if err != nil {
				writeInvalidArgument(w, "dpid: must be a decimal datapath id")
				return
			}
			filter = &d
		}

		items := hub.SnapshotFrame(registry).Series
		if filter != nil {
			kept := items[:0]
			for _, s := range items {
				if s.DPID == *filter {
					kept = append(kept, s)
				}
			}
			items = kept
		}

		body, err := json.Marshal(seriesListResponse{Items: items})
		if err != nil {
			writeInternal(w)
			return
		}
		writeVersionedJSON(w, r, body)
	}
}

// HandleGetSeries returns a handler for GET /api/v1/series/{dpid}/{port}.
func HandleGetSeries(registry *telemetry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dpid, ok := requireDPIDPathParam(w, r)
		if !ok {
			return
		}
		port, ok := requirePortPathParam(w, r)
		if !ok {
			return
		}
		s, found := registry.Get(dpid, port)
		if !found {
			writeNotFound(w, fmt.Sprintf("series %d/%d not found", dpid, port))
			return
		}
		name, _ := fabric.Name(dpid)
		body, err := json.Marshal(seriesResponse{
			SeriesFrame: hub.SeriesFrame{DPID: dpid, Switch: name, Port: port, SeriesView: s.View()},
			Capacity:    s.Capacity(),
			Regressions: s.Regressions(),
		})
		if err != nil {
			writeInternal(w)
			return
		}
		writeVersionedJSON(w, r, body)
	}
}
