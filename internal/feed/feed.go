// Package feed applies live controller events to the series registry.
package feed

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/Resinat/Portwatch/internal/metrics"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

// Source yields live events. Next blocks until an event is available and
// returns io.EOF once the source is exhausted.
type Source interface {
	Next(ctx context.Context) (telemetry.Event, error)
}

// Update describes the effect of one processed event.
type Update struct {
	Event  telemetry.Event
	Result telemetry.RouteResult
	// Points holds the new rate point of every updated port.
	Points map[telemetry.PortID]telemetry.RatePoint
}

// Observer is notified after an event has been fully applied.
type Observer interface {
	OnUpdate(u Update)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(u Update)

func (f ObserverFunc) OnUpdate(u Update) { f(u) }

// Config configures a Feed.
type Config struct {
	Registry  *telemetry.Registry
	Faults    *telemetry.FaultTable
	Collector *metrics.Collector
	Observers []Observer
}

// Feed routes events into the registry, records per-port faults and fans the
// result out to observers. Process is not safe for concurrent use; Run drives
// it from a single goroutine.
type Feed struct {
	registry  *telemetry.Registry
	faults    *telemetry.FaultTable
	collector *metrics.Collector
	observers []Observer
	now       func() time.Time
}

// New creates a feed. Registry is required.
func New(cfg Config) *Feed {
	if cfg.Registry == nil {
		panic("feed: nil registry")
	}
	return &Feed{
		registry:  cfg.Registry,
		faults:    cfg.Faults,
		collector: cfg.Collector,
		observers: cfg.Observers,
		now:       time.Now,
	}
}

// Process applies one event. Faults on individual ports are logged and
// recorded; they never stop the remaining ports or later events.
func (f *Feed) Process(ev telemetry.Event) Update {
	res := f.registry.Route(ev)

	for _, err := range res.Faults {
		var stale *telemetry.StaleSampleError
		if errors.As(err, &stale) {
			log.Printf("[feed] %v", err)
			if f.faults != nil {
				f.faults.RecordStale(stale)
			}
			continue
		}
		log.Printf("[feed] switch %d: %v", ev.DPID, err)
	}

	u := Update{
		Event:  ev,
		Result: res,
		Points: make(map[telemetry.PortID]telemetry.RatePoint, len(res.Updated)),
	}
	regressions := 0
	for _, port := range res.Updated {
		s, ok := f.registry.Get(ev.DPID, port)
		if !ok {
			continue
		}
		p, ok := s.Latest()
		if !ok {
			continue
		}
		u.Points[port] = p
		if p.RxRate < 0 || p.TxRate < 0 {
			regressions++
		}
	}

	if f.collector != nil {
		f.collector.RecordEvent(metrics.EventOutcome{
			DPID:        ev.DPID,
			AtNs:        f.now().UnixNano(),
			Points:      len(res.Updated),
			Baselined:   len(res.Baselined),
			Stale:       res.StaleCount(),
			Regressions: regressions,
		})
	}
	metrics.SeriesTracked.Set(float64(f.registry.Len()))

	for _, o := range f.observers {
		o.OnUpdate(u)
	}
	return u
}

// Run pulls events from src until ctx is canceled or the source is
// exhausted. Cancellation and io.EOF end the loop without error.
func (f *Feed) Run(ctx context.Context, src Source) error {
	for {
		ev, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		f.Process(ev)
	}
}

// ChanSource serves events from a channel. A closed channel reads as io.EOF.
type ChanSource <-chan telemetry.Event

// Next implements Source.
func (c ChanSource) Next(ctx context.Context) (telemetry.Event, error) {
	select {
	case <-ctx.Done():
		return telemetry.Event{}, ctx.Err()
	case ev, ok := <-c:
		if !ok {
			return telemetry.Event{}, io.EOF
		}
		return ev, nil
	}
}
