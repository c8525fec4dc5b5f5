package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Resinat/Portwatch/internal/controller"
	"github.com/Resinat/Portwatch/internal/state"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

// snapshotSource is one place a bootstrap snapshot may come from.
type snapshotSource struct {
	name string
	load func(ctx context.Context) (telemetry.Snapshot, error)
}

// loadBootstrapSnapshot tries each source in order and returns the first
// snapshot obtained. A malformed snapshot aborts the search: it is never
// silently replaced by an older source. When no source yields a snapshot the
// result is nil and the registry fills lazily from the live stream.
func loadBootstrapSnapshot(ctx context.Context, sources []snapshotSource) (telemetry.Snapshot, string, error) {
	for _, src := range sources {
		snap, err := src.load(ctx)
		if err == nil {
			return snap, src.name, nil
		}
		if errors.Is(err, telemetry.ErrMalformedSnapshot) {
			return nil, src.name, fmt.Errorf("%s snapshot: %w", src.name, err)
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		log.Printf("[bootstrap] %s snapshot unavailable: %v", src.name, err)
	}
	return nil, "", nil
}

func fileSnapshotSource(path string) snapshotSource {
	return snapshotSource{
		name: "file",
		load: func(context.Context) (telemetry.Snapshot, error) {
			return controller.LoadSnapshotFile(path)
		},
	}
}

func controllerSnapshotSource(f *controller.SnapshotFetcher) snapshotSource {
	return snapshotSource{name: "controller", load: f.Fetch}
}

func archiveSnapshotSource(repo *state.ArchiveRepo, maxSamples int) snapshotSource {
	return snapshotSource{
		name: "archive",
		load: func(context.Context) (telemetry.Snapshot, error) {
			return repo.LoadSnapshot(maxSamples)
		},
	}
}
