// Package hub fans live series updates out to dashboard subscribers.
package hub

import (
	"sort"

	"github.com/Resinat/Portwatch/internal/fabric"
	"github.com/Resinat/Portwatch/internal/feed"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

// Frame types.
const (
	FrameSnapshot = "snapshot"
	FrameUpdate   = "update"
)

// Frame is one message sent to a subscriber.
type Frame struct {
	Type   string        `json:"type"`
	Series []SeriesFrame `json:"series,omitempty"`
	Update *UpdateFrame  `json:"update,omitempty"`
}

// SeriesFrame is the full content of one series.
type SeriesFrame struct {
	DPID   fabric.DPID      `json:"dpid"`
	Switch string           `json:"switch,omitempty"`
	Port   telemetry.PortID `json:"port"`
	telemetry.SeriesView
}

// UpdateFrame carries the points appended by one controller event.
type UpdateFrame struct {
	DPID   fabric.DPID  `json:"dpid"`
	Switch string       `json:"switch,omitempty"`
	Time   float64      `json:"time"`
	Points []PointFrame `json:"points"`
	// Stale lists ports whose sample was rejected.
	Stale []telemetry.PortID `json:"stale,omitempty"`
}

// PointFrame is one appended point.
type PointFrame struct {
	Port telemetry.PortID `json:"port"`
	Rx   float64          `json:"rx"`
	Tx   float64          `json:"tx"`
}

// SnapshotFrame builds a snapshot frame from every series in the registry,
// ordered by switch then port.
func SnapshotFrame(r *telemetry.Registry) Frame {
	views := r.Views()
	keys := make([]telemetry.SeriesKey, 0, len(views))
	for k := range views {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	series := make([]SeriesFrame, 0, len(keys))
	for _, k := range keys {
		name, _ := fabric.Name(k.DPID)
		series = append(series, SeriesFrame{DPID: k.DPID, Switch: name, Port: k.Port, SeriesView: views[k]})
	}
	return Frame{Type: FrameSnapshot, Series: series}
}

// UpdateFrameOf converts a feed update into an update frame. It returns false
// when the update carries neither points nor stale ports.
func UpdateFrameOf(u feed.Update) (Frame, bool) {
	if len(u.Points) == 0 && u.Result.StaleCount() == 0 {
		return Frame{}, false
	}
	name, _ := fabric.Name(u.Event.DPID)
	uf := &UpdateFrame{
		DPID:   u.Event.DPID,
		Switch: name,
		Time:   u.Event.Time,
		Points: make([]PointFrame, 0, len(u.Points)),
	}
	for _, port := range u.Result.Updated {
		p, ok := u.Points[port]
		if !ok {
			continue
		}
		uf.Points = append(uf.Points, PointFrame{Port: port, Rx: p.RxRate, Tx: p.TxRate})
	}
	for _, err := range u.Result.Faults {
		if stale, ok := err.(*telemetry.StaleSampleError); ok {
			uf.Stale = append(uf.Stale, stale.Key.Port)
		}
	}
	return Frame{Type: FrameUpdate, Update: uf}, true
}
