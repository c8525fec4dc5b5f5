package state

import (
	"testing"
	"time"

	"github.com/Resinat/Portwatch/internal/feed"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

func TestWriter_StopDrainsQueue(t *testing.T) {
	repo := newTestArchive(t)
	w := NewWriter(WriterConfig{Repo: repo, FlushBatch: 100, FlushInterval: time.Hour})
	w.Start()

	for i := 1; i <= 3; i++ {
		w.OnUpdate(feed.Update{Event: ev(9, float64(i), map[telemetry.PortID]telemetry.PortCounters{1: {RxBytes: uint64(i)}})})
	}
	w.Stop()
	w.Stop()

	_, portSamples, err := repo.Counts()
	if err != nil {
		t.Fatal(err)
	}
	if portSamples != 3 {
		t.Fatalf("port samples: got %d, want 3", portSamples)
	}
}

func TestWriter_FlushesOnBatchSize(t *testing.T) {
	repo := newTestArchive(t)
	w := NewWriter(WriterConfig{Repo: repo, FlushBatch: 2, FlushInterval: time.Hour})
	w.Start()
	defer w.Stop()

	w.Emit(ev(1, 1, map[telemetry.PortID]telemetry.PortCounters{1: {}}))
	w.Emit(ev(1, 2, map[telemetry.PortID]telemetry.PortCounters{1: {}}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, n, err := repo.Counts()
		if err != nil {
			t.Fatal(err)
		}
		if n == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("batch was not flushed before the interval")
}

func TestWriter_EmitDropsWhenQueueFull(t *testing.T) {
	repo := newTestArchive(t)
	w := NewWriter(WriterConfig{Repo: repo, QueueSize: 1, FlushInterval: time.Hour})
	// Not started: the queue only holds one event.
	w.Emit(ev(1, 1, nil))
	w.Emit(ev(1, 2, nil))
	if got := len(w.queue); got != 1 {
		t.Fatalf("queue length: got %d, want 1", got)
	}
}
