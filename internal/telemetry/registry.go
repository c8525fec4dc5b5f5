package telemetry

import (
	"errors"
	"sort"

	"github.com/Resinat/Portwatch/internal/fabric"
	"github.com/puzpuzpuz/xsync/v4"
)

// Registry owns one RateSeries per (switch, port). Series are created lazily
// on first observation and live for the lifetime of the registry.
type Registry struct {
	capacity int
	series   *xsync.Map[SeriesKey, *RateSeries]
}

// NewRegistry creates an empty registry whose series hold capacity points.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultSeriesCapacity
	}
	return &Registry{
		capacity: capacity,
		series:   xsync.NewMap[SeriesKey, *RateSeries](),
	}
}

// GetOrCreate returns the series for (dpid, port), creating an empty one if
// it does not exist yet.
func (r *Registry) GetOrCreate(dpid fabric.DPID, port PortID) *RateSeries {
	key := SeriesKey{DPID: dpid, Port: port}
	if s, ok := r.series.Load(key); ok {
		return s
	}
	s, _ := r.series.Compute(key, func(old *RateSeries, loaded bool) (*RateSeries, xsync.ComputeOp) {
		if loaded {
			return old, xsync.CancelOp
		}
		return NewRateSeries(key, r.capacity), xsync.UpdateOp
	})
	return s
}

// Get returns the series for (dpid, port) if it exists.
func (r *Registry) Get(dpid fabric.DPID, port PortID) (*RateSeries, bool) {
	return r.series.Load(SeriesKey{DPID: dpid, Port: port})
}

// Len returns the number of series.
func (r *Registry) Len() int {
	return r.series.Size()
}

// Keys returns all series keys ordered by switch then port.
func (r *Registry) Keys() []SeriesKey {
	keys := make([]SeriesKey, 0, r.series.Size())
	r.series.Range(func(k SeriesKey, _ *RateSeries) bool {
		keys = append(keys, k)
		return true
	})
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Switches returns the known switch ids with their ports, both ordered.
func (r *Registry) Switches() map[fabric.DPID][]PortID {
	out := make(map[fabric.DPID][]PortID)
	for _, k := range r.Keys() {
		out[k.DPID] = append(out[k.DPID], k.Port)
	}
	return out
}

// Views returns a copy of every series view keyed by series key.
func (r *Registry) Views() map[SeriesKey]SeriesView {
	out := make(map[SeriesKey]SeriesView, r.series.Size())
	r.series.Range(func(k SeriesKey, s *RateSeries) bool {
		out[k] = s.View()
		return true
	})
	return out
}

// SeedAll seeds one series per (switch, port) in the snapshot by pairing the
// switch's time sequence with the port's counters index for index. The
// snapshot shape is assumed valid; see Bootstrap.
func (r *Registry) SeedAll(snapshot Snapshot) (seeded, dropped int) {
	for dpid, sw := range snapshot {
		for port, counters := range sw.Data {
			history := make([]CounterSample, len(counters))
			for i, c := range counters {
				history[i] = CounterSample{
					Timestamp: sw.Time[i],
					RxBytes:   c.RxBytes,
					TxBytes:   c.TxBytes,
				}
			}
			n, err := r.GetOrCreate(dpid, port).Seed(history)
			if err != nil {
				continue
			}
			seeded++
			dropped += n
		}
	}
	return seeded, dropped
}

// RouteResult summarizes how one event was applied.
type RouteResult struct {
	// Updated lists the ports that received a new rate point.
	Updated []PortID
	// Baselined lists ports seen for the first time; they hold a baseline but
	// no point yet.
	Baselined []PortID
	// Faults holds one error per port that could not be applied.
	Faults []error
}

// StaleCount returns the number of stale-sample faults in the result.
func (r RouteResult) StaleCount() int {
	n := 0
	for _, err := range r.Faults {
		if errors.Is(err, ErrStaleSample) {
			n++
		}
	}
	return n
}

// Route appends the event's per-port samples to their series. A fault on one
// port never prevents the remaining ports from being applied. Ports are
// visited in ascending order.
func (r *Registry) Route(event Event) RouteResult {
	ports := make([]PortID, 0, len(event.Ports))
	for p := range event.Ports {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })

	var res RouteResult
	for _, port := range ports {
		sample, _ := event.Sample(port)
		appended, err := r.GetOrCreate(event.DPID, port).Append(sample)
		switch {
		case err != nil:
			res.Faults = append(res.Faults, err)
		case appended:
			res.Updated = append(res.Updated, port)
		default:
			res.Baselined = append(res.Baselined, port)
		}
	}
	return res
}
