package hub

import (
	"github.com/Resinat/Portwatch/internal/telemetry"
)

// Cursor tracks the newest timestamp a subscriber has seen per series, so
// that update frames racing with the initial snapshot are not delivered twice.
type Cursor struct {
	last map[telemetry.SeriesKey]float64
}

// NewCursor starts a cursor at the content of a snapshot frame.
func NewCursor(snapshot Frame) *Cursor {
	c := &Cursor{last: make(map[telemetry.SeriesKey]float64, len(snapshot.Series))}
	for _, s := range snapshot.Series {
		if n := len(s.Labels); n > 0 {
			c.last[telemetry.SeriesKey{DPID: s.DPID, Port: s.Port}] = s.Labels[n-1]
		}
	}
	return c
}

// Filter drops points the subscriber already has and advances the cursor.
// It returns false when nothing in the frame is new.
func (c *Cursor) Filter(f Frame) (Frame, bool) {
	if f.Type != FrameUpdate || f.Update == nil {
		return f, true
	}
	u := *f.Update
	points := make([]PointFrame, 0, len(u.Points))
	for _, p := range u.Points {
		key := telemetry.SeriesKey{DPID: u.DPID, Port: p.Port}
		if last, ok := c.last[key]; ok && u.Time <= last {
			continue
		}
		c.last[key] = u.Time
		points = append(points, p)
	}
	if len(points) == 0 && len(u.Stale) == 0 {
		return Frame{}, false
	}
	u.Points = points
	return Frame{Type: FrameUpdate, Update: &u}, true
}
