// Package telemetry implements rate derivation and bounded per-port throughput
// series built from cumulative switch port counters.
package telemetry

import (
	"fmt"

	"github.com/Resinat/Portwatch/internal/fabric"
)

// PortID identifies a port within a single switch.
type PortID uint32

// CounterSample is one raw observation of a port's cumulative byte counters.
// Timestamp is in seconds and must be non-decreasing per port.
type CounterSample struct {
	Timestamp float64
	RxBytes   uint64
	TxBytes   uint64
}

// RatePoint is a derived throughput point in bytes/sec.
type RatePoint struct {
	Timestamp float64
	RxRate    float64
	TxRate    float64
}

// SeriesKey is the composite identity of a series.
type SeriesKey struct {
	DPID fabric.DPID
	Port PortID
}

func (k SeriesKey) String() string {
	return fmt.Sprintf("%d/%d", k.DPID, k.Port)
}

// Less orders keys by switch then port.
func (k SeriesKey) Less(o SeriesKey) bool {
	if k.DPID != o.DPID {
		return k.DPID < o.DPID
	}
	return k.Port < o.Port
}

// Event is one live message: a single switch, one shared timestamp and the
// latest cumulative counters of each reported port.
type Event struct {
	DPID  fabric.DPID
	Time  float64
	Ports map[PortID]PortCounters
}

// PortCounters holds the counters of one port inside an Event. Rates are
// derived from the byte counters only.
type PortCounters struct {
	RxBytes   uint64
	TxBytes   uint64
	RxPackets uint64
	TxPackets uint64
}

// Sample returns the counter sample for this port at the event time.
func (e Event) Sample(port PortID) (CounterSample, bool) {
	c, ok := e.Ports[port]
	if !ok {
		return CounterSample{}, false
	}
	return CounterSample{Timestamp: e.Time, RxBytes: c.RxBytes, TxBytes: c.TxBytes}, true
}

// counterDelta returns cur-prev as a signed value. A counter reset yields a
// negative delta.
func counterDelta(cur, prev uint64) float64 {
	return float64(int64(cur - prev))
}

func deriveRate(prev, cur CounterSample) RatePoint {
	dt := cur.Timestamp - prev.Timestamp
	return RatePoint{
		Timestamp: cur.Timestamp,
		RxRate:    counterDelta(cur.RxBytes, prev.RxBytes) / dt,
		TxRate:    counterDelta(cur.TxBytes, prev.TxBytes) / dt,
	}
}
