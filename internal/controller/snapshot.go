package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Resinat/Portwatch/internal/netutil"
	"github.com/Resinat/Portwatch/internal/telemetry"
	"github.com/cenkalti/backoff/v5"
	"gopkg.in/yaml.v3"
)

// SnapshotPath is the controller's bulk statistics endpoint.
const SnapshotPath = "/api/stats"

// DecodeSnapshotJSON decodes a snapshot document in the controller's JSON form.
func DecodeSnapshotJSON(data []byte) (telemetry.Snapshot, error) {
	var doc StatsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", telemetry.ErrMalformedSnapshot, err)
	}
	return doc.ToSnapshot()
}

// DecodeSnapshotYAML decodes a snapshot document written as YAML with the same
// field names as the JSON form.
func DecodeSnapshotYAML(data []byte) (telemetry.Snapshot, error) {
	var doc StatsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %v", telemetry.ErrMalformedSnapshot, err)
	}
	return doc.ToSnapshot()
}

// LoadSnapshotFile reads a snapshot from disk. Files ending in .yaml or .yml
// are parsed as YAML, everything else as JSON.
func LoadSnapshotFile(path string) (telemetry.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeSnapshotYAML(data)
	default:
		return DecodeSnapshotJSON(data)
	}
}

// SnapshotFetcher pulls the bulk snapshot from the controller, retrying
// transient failures with exponential backoff.
type SnapshotFetcher struct {
	Downloader netutil.Downloader
	BaseURL    string
	// MaxElapsed bounds the total retry time.
	MaxElapsed time.Duration
	// InitialInterval is the first retry delay.
	InitialInterval time.Duration
}

// URL returns the snapshot endpoint URL.
func (f *SnapshotFetcher) URL() string {
	return strings.TrimRight(f.BaseURL, "/") + SnapshotPath
}

// Fetch downloads and decodes the snapshot.
func (f *SnapshotFetcher) Fetch(ctx context.Context) (telemetry.Snapshot, error) {
	if f.Downloader == nil {
		return nil, fmt.Errorf("snapshot fetcher: nil downloader")
	}
	url := f.URL()

	b := backoff.NewExponentialBackOff()
	if f.InitialInterval > 0 {
		b.InitialInterval = f.InitialInterval
	}
	maxElapsed := f.MaxElapsed
	if maxElapsed <= 0 {
		maxElapsed = time.Minute
	}

	attempt := 0
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		if attempt > 1 {
			log.Printf("[controller] retrying snapshot fetch from %s (attempt %d)", url, attempt)
		}
		data, err := f.Downloader.Download(ctx, url)
		if err != nil && !netutil.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return data, err
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(maxElapsed))
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	return DecodeSnapshotJSON(body)
}
