package telemetry

import (
	"errors"
	"fmt"

	"github.com/Resinat/Portwatch/internal/fabric"
)

var (
	// ErrMalformedSnapshot is wrapped by every MalformedSnapshotError.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	// ErrStaleSample is wrapped by every StaleSampleError.
	ErrStaleSample = errors.New("stale sample")
	// ErrEmptyHistory is returned when seeding with no samples.
	ErrEmptyHistory = errors.New("empty history")
)

// MalformedSnapshotError reports a snapshot switch that fails shape checks.
type MalformedSnapshotError struct {
	DPID   fabric.DPID
	Port   *PortID
	Reason string
}

func (e *MalformedSnapshotError) Error() string {
	if e.Port != nil {
		return fmt.Sprintf("malformed snapshot: switch %d port %d: %s", e.DPID, *e.Port, e.Reason)
	}
	return fmt.Sprintf("malformed snapshot: switch %d: %s", e.DPID, e.Reason)
}

func (e *MalformedSnapshotError) Unwrap() error { return ErrMalformedSnapshot }

// StaleSampleError reports a sample whose timestamp does not advance past the
// series baseline.
type StaleSampleError struct {
	Key       SeriesKey
	Timestamp float64
	Baseline  float64
}

func (e *StaleSampleError) Error() string {
	return fmt.Sprintf("stale sample for %s: t=%g not after baseline t=%g", e.Key, e.Timestamp, e.Baseline)
}

func (e *StaleSampleError) Unwrap() error { return ErrStaleSample }
