package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Resinat/Portwatch/internal/fabric"
	"github.com/Resinat/Portwatch/internal/metrics"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

func event(dpid uint64, ts float64, ports map[telemetry.PortID]telemetry.PortCounters) telemetry.Event {
	return telemetry.Event{DPID: fabric.DPID(dpid), Time: ts, Ports: ports}
}

func newTestFeed(observers ...Observer) (*Feed, *telemetry.Registry, *telemetry.FaultTable, *metrics.Collector) {
	reg := telemetry.NewRegistry(telemetry.DefaultSeriesCapacity)
	faults := telemetry.NewFaultTable(16)
	col := metrics.NewCollector()
	f := New(Config{Registry: reg, Faults: faults, Collector: col, Observers: observers})
	return f, reg, faults, col
}

func TestFeed_LazilyCreatesSeries(t *testing.T) {
	f, reg, _, _ := newTestFeed()

	u := f.Process(event(1, 1, map[telemetry.PortID]telemetry.PortCounters{3: {RxBytes: 10, TxBytes: 10}}))
	if len(u.Result.Baselined) != 1 || len(u.Points) != 0 {
		t.Fatalf("first event: baselined=%v points=%v", u.Result.Baselined, u.Points)
	}
	if _, ok := reg.Get(1, 3); !ok {
		t.Fatal("series 1/3 was not created")
	}

	u = f.Process(event(1, 2, map[telemetry.PortID]telemetry.PortCounters{3: {RxBytes: 110, TxBytes: 60}}))
	p, ok := u.Points[3]
	if !ok || p.RxRate != 100 || p.TxRate != 50 || p.Timestamp != 2 {
		t.Fatalf("second event point: got %+v ok=%v", p, ok)
	}
}

func TestFeed_StalePortIsIsolated(t *testing.T) {
	var seen []Update
	f, reg, faults, col := newTestFeed(ObserverFunc(func(u Update) { seen = append(seen, u) }))

	f.Process(event(2, 5, map[telemetry.PortID]telemetry.PortCounters{1: {}, 2: {}}))
	// Port 1 is re-baselined at t=10 by an out-of-band append, so the next
	// event at t=8 is stale for port 1 only.
	s, _ := reg.Get(2, 1)
	if _, err := s.Append(telemetry.CounterSample{Timestamp: 10}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	u := f.Process(event(2, 8, map[telemetry.PortID]telemetry.PortCounters{
		1: {RxBytes: 30},
		2: {RxBytes: 30},
	}))
	if len(u.Result.Faults) != 1 || !errors.Is(u.Result.Faults[0], telemetry.ErrStaleSample) {
		t.Fatalf("faults: got %v, want one stale sample", u.Result.Faults)
	}
	if p, ok := u.Points[2]; !ok || p.RxRate != 10 {
		t.Fatalf("port 2 should still update: got %+v ok=%v", p, ok)
	}

	rec, ok := faults.Get(telemetry.SeriesKey{DPID: 2, Port: 1})
	if !ok || rec.StaleCount != 1 {
		t.Fatalf("fault record: got %+v ok=%v", rec, ok)
	}
	if got := col.Snapshot().StaleSamples; got != 1 {
		t.Fatalf("collector stale: got %d, want 1", got)
	}
	if len(seen) != 2 {
		t.Fatalf("observer calls: got %d, want 2", len(seen))
	}
}

func TestFeed_CountsRegressions(t *testing.T) {
	f, _, _, col := newTestFeed()
	f.Process(event(4, 1, map[telemetry.PortID]telemetry.PortCounters{1: {RxBytes: 500}}))
	u := f.Process(event(4, 2, map[telemetry.PortID]telemetry.PortCounters{1: {RxBytes: 100}}))
	if u.Points[1].RxRate != -400 {
		t.Fatalf("rx rate: got %v, want -400", u.Points[1].RxRate)
	}
	if got := col.Snapshot().Regressions; got != 1 {
		t.Fatalf("regressions: got %d, want 1", got)
	}
}

func TestFeed_RunDrainsSourceUntilEOF(t *testing.T) {
	f, reg, _, col := newTestFeed()
	ch := make(chan telemetry.Event, 3)
	for i := 1; i <= 3; i++ {
		ch <- event(1, float64(i), map[telemetry.PortID]telemetry.PortCounters{1: {RxBytes: uint64(i * 100)}})
	}
	close(ch)

	if err := f.Run(context.Background(), ChanSource(ch)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	s, _ := reg.Get(1, 1)
	if s.Len() != 2 {
		t.Fatalf("points: got %d, want 2", s.Len())
	}
	if got := col.Snapshot().Events; got != 3 {
		t.Fatalf("events: got %d, want 3", got)
	}
}

func TestFeed_RunStopsOnCancel(t *testing.T) {
	f, _, _, _ := newTestFeed()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, ChanSource(make(chan telemetry.Event))) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: got %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type failingSource struct{ err error }

func (s failingSource) Next(context.Context) (telemetry.Event, error) {
	return telemetry.Event{}, s.err
}

func TestFeed_RunReturnsSourceError(t *testing.T) {
	f, _, _, _ := newTestFeed()
	boom := errors.New("boom")
	if err := f.Run(context.Background(), failingSource{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("Run: got %v, want %v", err, boom)
	}
}
