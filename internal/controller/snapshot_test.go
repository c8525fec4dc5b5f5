package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Resinat/Portwatch/internal/netutil"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

const sampleSnapshotJSON = `{"1": {"time": [0, 1, 2], "data": {"1": [
	{"rx_bytes": 0, "tx_bytes": 0},
	{"rx_bytes": 100, "tx_bytes": 50},
	{"rx_bytes": 300, "tx_bytes": 150}
]}}}`

const sampleSnapshotYAML = `"1":
  time: [0, 1, 2]
  data:
    "1":
      - {rx_bytes: 0, tx_bytes: 0}
      - {rx_bytes: 100, tx_bytes: 50}
      - {rx_bytes: 300, tx_bytes: 150}
`

func assertSampleSnapshot(t *testing.T, snap telemetry.Snapshot) {
	t.Helper()
	counters := snap[1].Data[1]
	if len(snap[1].Time) != 3 || len(counters) != 3 {
		t.Fatalf("snapshot shape: time=%v counters=%v", snap[1].Time, counters)
	}
	if counters[2].RxBytes != 300 || counters[2].TxBytes != 150 {
		t.Fatalf("last counters: got %+v", counters[2])
	}
}

func TestDecodeSnapshotJSONAndYAMLAgree(t *testing.T) {
	fromJSON, err := DecodeSnapshotJSON([]byte(sampleSnapshotJSON))
	if err != nil {
		t.Fatalf("DecodeSnapshotJSON: %v", err)
	}
	assertSampleSnapshot(t, fromJSON)

	fromYAML, err := DecodeSnapshotYAML([]byte(sampleSnapshotYAML))
	if err != nil {
		t.Fatalf("DecodeSnapshotYAML: %v", err)
	}
	assertSampleSnapshot(t, fromYAML)
}

func TestDecodeSnapshotJSON_InvalidDocument(t *testing.T) {
	_, err := DecodeSnapshotJSON([]byte(`[1,2,3]`))
	if !errors.Is(err, telemetry.ErrMalformedSnapshot) {
		t.Fatalf("got %v, want ErrMalformedSnapshot", err)
	}
}

func TestLoadSnapshotFile_PicksDecoderByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "stats.json")
	yamlPath := filepath.Join(dir, "stats.yaml")
	if err := os.WriteFile(jsonPath, []byte(sampleSnapshotJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(yamlPath, []byte(sampleSnapshotYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{jsonPath, yamlPath} {
		snap, err := LoadSnapshotFile(p)
		if err != nil {
			t.Fatalf("LoadSnapshotFile(%s): %v", p, err)
		}
		assertSampleSnapshot(t, snap)
	}

	if _, err := LoadSnapshotFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSnapshotFetcher_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != SnapshotPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleSnapshotJSON))
	}))
	defer srv.Close()

	f := &SnapshotFetcher{
		Downloader:      netutil.NewDirectDownloader(time.Second, "portwatch/test"),
		BaseURL:         srv.URL + "/",
		InitialInterval: 5 * time.Millisecond,
		MaxElapsed:      5 * time.Second,
	}
	snap, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	assertSampleSnapshot(t, snap)
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls: got %d, want 3", got)
	}
}

func TestSnapshotFetcher_StopsOnPermanentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := &SnapshotFetcher{
		Downloader:      netutil.NewDirectDownloader(time.Second, ""),
		BaseURL:         srv.URL,
		InitialInterval: 5 * time.Millisecond,
		MaxElapsed:      5 * time.Second,
	}
	_, err := f.Fetch(context.Background())
	var statusErr *netutil.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("got %v, want 401 HTTPStatusError", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls: got %d, want 1", got)
	}
}
