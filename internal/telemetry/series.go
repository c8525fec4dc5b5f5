package telemetry

import (
	"sync"

	"github.com/gammazero/deque"
)

// DefaultSeriesCapacity is the number of rate points kept per port.
const DefaultSeriesCapacity = 100

// SeriesView is the render-sink shape of a series: parallel label, rx and tx
// sequences in chronological order.
type SeriesView struct {
	Labels []float64 `json:"labels"`
	Rx     []float64 `json:"rx"`
	Tx     []float64 `json:"tx"`
}

// RateSeries is a bounded FIFO of rate points for one (switch, port) plus the
// last-seen counter sample used as the baseline for the next delta.
//
// Writes come from a single consumer; the lock lets readers take consistent
// copies while an update is applied.
type RateSeries struct {
	key      SeriesKey
	capacity int

	mu          sync.RWMutex
	points      *deque.Deque[RatePoint]
	baseline    CounterSample
	hasBaseline bool
	regressions int64
}

// NewRateSeries creates an empty series with no baseline.
func NewRateSeries(key SeriesKey, capacity int) *RateSeries {
	if capacity <= 0 {
		capacity = DefaultSeriesCapacity
	}
	return &RateSeries{
		key:      key,
		capacity: capacity,
		points:   deque.New[RatePoint](capacity + 1),
	}
}

// Key returns the series identity.
func (s *RateSeries) Key() SeriesKey { return s.key }

// Capacity returns the maximum number of points retained.
func (s *RateSeries) Capacity() int { return s.capacity }

// Seed replaces the series content with rates derived from history.
//
// One point is derived for each sample history[i] with i >= 2, measured
// against the previous accepted sample; the delta ending at history[1] is not
// charted. A sample whose elapsed time is not positive is skipped and counted
// in dropped. A skipped sample with an equal timestamp replaces the reference,
// an earlier one is ignored, so labels stay strictly increasing and the
// baseline is never behind the last label.
func (s *RateSeries) Seed(history []CounterSample) (dropped int, err error) {
	if len(history) == 0 {
		return 0, ErrEmptyHistory
	}

	derived := make([]RatePoint, 0, len(history))
	regressions := int64(0)
	prev := history[min(1, len(history)-1)]
	for i := 2; i < len(history); i++ {
		cur := history[i]
		dt := cur.Timestamp - prev.Timestamp
		if dt <= 0 {
			dropped++
			if dt == 0 {
				prev = cur
			}
			continue
		}
		p := deriveRate(prev, cur)
		if p.RxRate < 0 || p.TxRate < 0 {
			regressions++
		}
		derived = append(derived, p)
		prev = cur
	}
	if len(derived) > s.capacity {
		derived = derived[len(derived)-s.capacity:]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.points.Clear()
	for _, p := range derived {
		s.points.PushBack(p)
	}
	s.baseline = prev
	s.hasBaseline = true
	s.regressions += regressions
	return dropped, nil
}

// Append derives one rate point from the baseline and sample.
//
// Without a baseline the sample only becomes the baseline and appended is
// false. A sample that does not advance time returns a *StaleSampleError and
// leaves the series untouched.
func (s *RateSeries) Append(sample CounterSample) (appended bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasBaseline {
		s.baseline = sample
		s.hasBaseline = true
		return false, nil
	}
	if sample.Timestamp-s.baseline.Timestamp <= 0 {
		return false, &StaleSampleError{
			Key:       s.key,
			Timestamp: sample.Timestamp,
			Baseline:  s.baseline.Timestamp,
		}
	}

	p := deriveRate(s.baseline, sample)
	if p.RxRate < 0 || p.TxRate < 0 {
		s.regressions++
	}
	s.points.PushBack(p)
	for s.points.Len() > s.capacity {
		s.points.PopFront()
	}
	s.baseline = sample
	return true, nil
}

// Len returns the number of rate points held.
func (s *RateSeries) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points.Len()
}

// Baseline returns the last accepted counter sample.
func (s *RateSeries) Baseline() (CounterSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseline, s.hasBaseline
}

// Regressions returns how many derived points carried a negative rate
// (counter reset or wrap).
func (s *RateSeries) Regressions() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regressions
}

// Points returns a copy of the points, oldest first.
func (s *RateSeries) Points() []RatePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RatePoint, s.points.Len())
	for i := range out {
		out[i] = s.points.At(i)
	}
	return out
}

// Latest returns the newest point.
func (s *RateSeries) Latest() (RatePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.points.Len() == 0 {
		return RatePoint{}, false
	}
	return s.points.Back(), true
}

// View returns a copy of the series as parallel sequences.
func (s *RateSeries) View() SeriesView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.points.Len()
	v := SeriesView{
		Labels: make([]float64, n),
		Rx:     make([]float64, n),
		Tx:     make([]float64, n),
	}
	for i := 0; i < n; i++ {
		p := s.points.At(i)
		v.Labels[i] = p.Timestamp
		v.Rx[i] = p.RxRate
		v.Tx[i] = p.TxRate
	}
	return v
}
