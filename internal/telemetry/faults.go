package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/maypok86/otter"
)

// FaultRecord is the per-series fault history kept for operators.
type FaultRecord struct {
	Key         SeriesKey
	StaleCount  int64
	LastMessage string
	LastAt      time.Time
}

// FaultTable is a bounded table of per-series faults backed by an otter cache.
// Least recently touched series are evicted first.
type FaultTable struct {
	mu    sync.Mutex
	cache otter.Cache[SeriesKey, FaultRecord]
	now   func() time.Time
}

// NewFaultTable creates a table bounded to maxEntries series.
func NewFaultTable(maxEntries int) *FaultTable {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	cache, err := otter.MustBuilder[SeriesKey, FaultRecord](maxEntries).
		Cost(func(_ SeriesKey, _ FaultRecord) uint32 { return 1 }).
		Build()
	if err != nil {
		panic("telemetry: failed to create fault table: " + err.Error())
	}
	return &FaultTable{cache: cache, now: time.Now}
}

// RecordStale registers a stale-sample fault.
func (t *FaultTable) RecordStale(e *StaleSampleError) {
	if e == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, _ := t.cache.Get(e.Key)
	rec.Key = e.Key
	rec.StaleCount++
	rec.LastMessage = e.Error()
	rec.LastAt = t.now()
	t.cache.Set(e.Key, rec)
}

// Get returns the record for key, if present.
func (t *FaultTable) Get(key SeriesKey) (FaultRecord, bool) {
	return t.cache.Get(key)
}

// List returns all records, most recent first.
func (t *FaultTable) List() []FaultRecord {
	var out []FaultRecord
	t.cache.Range(func(_ SeriesKey, rec FaultRecord) bool {
		out = append(out, rec)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastAt.Equal(out[j].LastAt) {
			return out[i].LastAt.After(out[j].LastAt)
		}
		return out[i].Key.Less(out[j].Key)
	})
	return out
}

// Size returns the number of series with recorded faults.
func (t *FaultTable) Size() int {
	return t.cache.Size()
}

// Close releases resources held by the underlying cache.
func (t *FaultTable) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Close()
}
