package state

import (
	"fmt"
	"log"

	"github.com/Resinat/Portwatch/internal/metrics"
	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule runs retention pruning every ten minutes.
const DefaultPruneSchedule = "*/10 * * * *"

// Pruner applies archive retention on a cron schedule.
type Pruner struct {
	repo   *ArchiveRepo
	retain int
	cron   *cron.Cron
}

// NewPruner schedules retention pruning for repo. retain is the number of
// sample times kept per switch.
func NewPruner(repo *ArchiveRepo, schedule string, retain int) (*Pruner, error) {
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}
	if retain <= 0 {
		return nil, fmt.Errorf("pruner: retain must be positive, got %d", retain)
	}
	p := &Pruner{repo: repo, retain: retain, cron: cron.New()}
	if _, err := p.cron.AddFunc(schedule, func() { p.RunOnce() }); err != nil {
		return nil, fmt.Errorf("pruner: invalid cron expression %q: %w", schedule, err)
	}
	return p, nil
}

// Start starts the scheduler.
func (p *Pruner) Start() {
	p.cron.Start()
}

// Stop stops the scheduler and waits for a running prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}

// RunOnce prunes immediately.
func (p *Pruner) RunOnce() int64 {
	removed, err := p.repo.Prune(p.retain)
	if err != nil {
		log.Printf("[state] prune failed: %v", err)
		return 0
	}
	if removed > 0 {
		metrics.ArchivePruned.Add(float64(removed))
		log.Printf("[state] pruned %d archived port samples", removed)
	}
	return removed
}
