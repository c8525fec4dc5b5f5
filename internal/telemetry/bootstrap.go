package telemetry

import (
	"fmt"
	"sort"

	"github.com/Resinat/Portwatch/internal/fabric"
)

// Snapshot is a bulk export of historical counters keyed by switch.
type Snapshot map[fabric.DPID]SwitchHistory

// SwitchHistory holds one switch's sample times and, per port, the counters
// observed at each of those times. Every port sequence is aligned index for
// index with Time.
type SwitchHistory struct {
	Time []float64
	Data map[PortID][]PortCounters
}

// BootstrapReport summarizes a successful bootstrap.
type BootstrapReport struct {
	Switches int
	Series   int
	// DroppedPairs counts history pairs skipped for non-positive elapsed time.
	DroppedPairs int
}

// Validate checks the shape of every switch in the snapshot. The first
// violation found (in ascending switch order) is returned.
func (s Snapshot) Validate() error {
	dpids := make([]fabric.DPID, 0, len(s))
	for dpid := range s {
		dpids = append(dpids, dpid)
	}
	sort.Slice(dpids, func(i, j int) bool { return dpids[i] < dpids[j] })

	for _, dpid := range dpids {
		if err := s[dpid].validate(dpid); err != nil {
			return err
		}
	}
	return nil
}

func (h SwitchHistory) validate(dpid fabric.DPID) error {
	if h.Time == nil {
		return &MalformedSnapshotError{DPID: dpid, Reason: "missing time"}
	}
	if h.Data == nil {
		return &MalformedSnapshotError{DPID: dpid, Reason: "missing data"}
	}
	for i := 1; i < len(h.Time); i++ {
		if h.Time[i] < h.Time[i-1] {
			return &MalformedSnapshotError{
				DPID:   dpid,
				Reason: fmt.Sprintf("time decreases at index %d (%v after %v)", i, h.Time[i], h.Time[i-1]),
			}
		}
	}
	for port, counters := range h.Data {
		if len(counters) != len(h.Time) {
			p := port
			return &MalformedSnapshotError{
				DPID:   dpid,
				Port:   &p,
				Reason: "counter sequence length differs from time sequence length",
			}
		}
		if len(counters) == 0 {
			p := port
			return &MalformedSnapshotError{DPID: dpid, Port: &p, Reason: "no samples"}
		}
	}
	return nil
}

// Bootstrap validates the snapshot and seeds the registry from it. Nothing is
// seeded when validation fails.
func Bootstrap(r *Registry, snapshot Snapshot) (BootstrapReport, error) {
	if err := snapshot.Validate(); err != nil {
		return BootstrapReport{}, err
	}
	seeded, dropped := r.SeedAll(snapshot)
	return BootstrapReport{
		Switches:     len(snapshot),
		Series:       seeded,
		DroppedPairs: dropped,
	}, nil
}
