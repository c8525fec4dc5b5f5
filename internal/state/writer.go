package state

import (
	"log"
	"sync"
	"time"

	"github.com/Resinat/Portwatch/internal/feed"
	"github.com/Resinat/Portwatch/internal/metrics"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

// Writer is an async archive writer.
// Emit performs a non-blocking channel send (drops on overflow).
// A background goroutine flushes batches to the ArchiveRepo.
type Writer struct {
	repo      *ArchiveRepo
	queue     chan telemetry.Event
	batchSize int
	interval  time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WriterConfig configures the archive writer.
type WriterConfig struct {
	Repo          *ArchiveRepo
	QueueSize     int
	FlushBatch    int
	FlushInterval time.Duration
}

// NewWriter creates a new archive writer.
func NewWriter(cfg WriterConfig) *Writer {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 4096
	}
	batchSize := cfg.FlushBatch
	if batchSize <= 0 {
		batchSize = 256
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Writer{
		repo:      cfg.Repo,
		queue:     make(chan telemetry.Event, queueSize),
		batchSize: batchSize,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the background flush goroutine.
func (w *Writer) Start() {
	w.wg.Add(1)
	go w.flushLoop()
}

// Stop signals the flush loop to stop, drains remaining events, and returns.
func (w *Writer) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Emit enqueues an event. Non-blocking; drops on overflow.
func (w *Writer) Emit(ev telemetry.Event) {
	select {
	case w.queue <- ev:
	default:
		metrics.ArchiveQueueDrops.Inc()
	}
}

// OnUpdate implements feed.Observer. Every event is archived, including
// ports that only set a baseline or were rejected as stale.
func (w *Writer) OnUpdate(u feed.Update) {
	w.Emit(u.Event)
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	batch := make([]telemetry.Event, 0, w.batchSize)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-w.queue:
			batch = append(batch, ev)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}

		case <-w.stopCh:
			w.drainAndFlush(batch)
			return
		}
	}
}

func (w *Writer) drainAndFlush(batch []telemetry.Event) {
	for {
		select {
		case ev := <-w.queue:
			batch = append(batch, ev)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				w.flush(batch)
			}
			return
		}
	}
}

func (w *Writer) flush(events []telemetry.Event) {
	n, err := w.repo.InsertBatch(events)
	if err != nil {
		metrics.ArchiveFlushes.WithLabelValues("error").Inc()
		log.Printf("[state] flush %d events failed: %v", len(events), err)
		return
	}
	metrics.ArchiveFlushes.WithLabelValues("ok").Inc()
	if n > 0 {
		log.Printf("[state] archived %d port samples from %d events", n, len(events))
	}
}
