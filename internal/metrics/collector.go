// Package metrics tracks feed and series counters, both as in-process
// snapshots for the API and as Prometheus series.
package metrics

import (
	"sort"
	"sync/atomic"

	"github.com/Resinat/Portwatch/internal/fabric"
	"github.com/puzpuzpuz/xsync/v4"
)

// Collector holds hot-path atomic counters, globally and per switch.
// Every update is mirrored into the Prometheus vectors.
type Collector struct {
	global   *counters
	switches *xsync.Map[fabric.DPID, *counters]
}

type counters struct {
	events      atomic.Int64
	points      atomic.Int64
	baselined   atomic.Int64
	stale       atomic.Int64
	regressions atomic.Int64
	lastEventAt atomic.Int64 // unix nanos
}

// CountersSnapshot is a point-in-time copy of one scope's counters.
type CountersSnapshot struct {
	Events        int64 `json:"events"`
	Points        int64 `json:"points"`
	Baselined     int64 `json:"baselined"`
	StaleSamples  int64 `json:"stale_samples"`
	Regressions   int64 `json:"regressions"`
	LastEventAtNs int64 `json:"last_event_at_ns"`
}

// SwitchCounters pairs a switch with its counters.
type SwitchCounters struct {
	DPID     fabric.DPID      `json:"dpid"`
	Counters CountersSnapshot `json:"counters"`
}

// EventOutcome summarizes how one live event was applied.
type EventOutcome struct {
	DPID        fabric.DPID
	AtNs        int64
	Points      int
	Baselined   int
	Stale       int
	Regressions int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		global:   &counters{},
		switches: xsync.NewMap[fabric.DPID, *counters](),
	}
}

func (c *Collector) getOrCreateSwitch(dpid fabric.DPID) *counters {
	if v, ok := c.switches.Load(dpid); ok {
		return v
	}
	v, _ := c.switches.LoadOrStore(dpid, &counters{})
	return v
}

// RecordEvent folds one event outcome into the counters.
func (c *Collector) RecordEvent(o EventOutcome) {
	sc := c.getOrCreateSwitch(o.DPID)
	for _, ct := range []*counters{c.global, sc} {
		ct.events.Add(1)
		ct.points.Add(int64(o.Points))
		ct.baselined.Add(int64(o.Baselined))
		ct.stale.Add(int64(o.Stale))
		ct.regressions.Add(int64(o.Regressions))
		ct.lastEventAt.Store(o.AtNs)
	}

	label := o.DPID.String()
	EventsProcessed.WithLabelValues(label).Inc()
	if o.Points > 0 {
		PointsAppended.WithLabelValues(label).Add(float64(o.Points))
	}
	if o.Stale > 0 {
		StaleSamples.WithLabelValues(label).Add(float64(o.Stale))
	}
	if o.Regressions > 0 {
		CounterRegressions.WithLabelValues(label).Add(float64(o.Regressions))
	}
}

// Snapshot returns the global counters.
func (c *Collector) Snapshot() CountersSnapshot {
	return snapshot(c.global)
}

// SwitchSnapshot returns the counters of one switch.
func (c *Collector) SwitchSnapshot(dpid fabric.DPID) (CountersSnapshot, bool) {
	v, ok := c.switches.Load(dpid)
	if !ok {
		return CountersSnapshot{}, false
	}
	return snapshot(v), true
}

// SwitchSnapshots returns every switch's counters in ascending dpid order.
func (c *Collector) SwitchSnapshots() []SwitchCounters {
	out := make([]SwitchCounters, 0, c.switches.Size())
	c.switches.Range(func(dpid fabric.DPID, ct *counters) bool {
		out = append(out, SwitchCounters{DPID: dpid, Counters: snapshot(ct)})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].DPID < out[j].DPID })
	return out
}

func snapshot(ct *counters) CountersSnapshot {
	return CountersSnapshot{
		Events:        ct.events.Load(),
		Points:        ct.points.Load(),
		Baselined:     ct.baselined.Load(),
		StaleSamples:  ct.stale.Load(),
		Regressions:   ct.regressions.Load(),
		LastEventAtNs: ct.lastEventAt.Load(),
	}
}
