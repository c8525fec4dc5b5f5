package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// setEnvs sets multiple env vars for the duration of the test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// requiredEnvs returns the minimum env vars needed for LoadEnvConfig to succeed.
func requiredEnvs() map[string]string {
	return map[string]string{
		"PORTWATCH_ADMIN_TOKEN": "admin-secret",
	}
}

func TestLoadEnvConfig_Defaults(t *testing.T) {
	setEnvs(t, requiredEnvs())

	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertEqual(t, "StateDir", cfg.StateDir, "/var/lib/portwatch")
	assertEqual(t, "ListenAddress", cfg.ListenAddress, "0.0.0.0")
	assertEqual(t, "Port", cfg.Port, 8090)
	assertEqual(t, "AdminToken", cfg.AdminToken, "admin-secret")

	assertEqual(t, "ControllerURL", cfg.ControllerURL, "http://127.0.0.1:8080")
	assertEqual(t, "ControllerToken", cfg.ControllerToken, "")
	assertEqual(t, "SnapshotFile", cfg.SnapshotFile, "")
	assertEqual(t, "FetchTimeout", cfg.FetchTimeout, 10*time.Second)
	assertEqual(t, "FetchMaxElapsed", cfg.FetchMaxElapsed, time.Minute)
	assertEqual(t, "ReconnectInitialInterval", cfg.ReconnectInitialInterval, 500*time.Millisecond)
	assertEqual(t, "ReconnectMaxInterval", cfg.ReconnectMaxInterval, 30*time.Second)
	assertEqual(t, "StreamReadLimitBytes", cfg.StreamReadLimitBytes, 1<<20)

	assertEqual(t, "SeriesCapacity", cfg.SeriesCapacity, 100)
	assertEqual(t, "FaultTableEntries", cfg.FaultTableEntries, 1024)

	assertEqual(t, "ArchiveEnabled", cfg.ArchiveEnabled, true)
	assertEqual(t, "ArchiveRetainSamples", cfg.ArchiveRetainSamples, 100)
	assertEqual(t, "ArchivePruneSchedule", cfg.ArchivePruneSchedule, "*/10 * * * *")
	assertEqual(t, "ArchiveQueueSize", cfg.ArchiveQueueSize, 4096)
	assertEqual(t, "ArchiveFlushBatchSize", cfg.ArchiveFlushBatchSize, 256)
	assertEqual(t, "ArchiveFlushInterval", cfg.ArchiveFlushInterval, 5*time.Second)

	assertEqual(t, "StreamClientBuffer", cfg.StreamClientBuffer, 64)
}

func TestLoadEnvConfig_Overrides(t *testing.T) {
	envs := requiredEnvs()
	envs["PORTWATCH_PORT"] = "9000"
	envs["PORTWATCH_CONTROLLER_URL"] = "https://ryu.example:8443"
	envs["PORTWATCH_SNAPSHOT_FILE"] = " /tmp/stats.yaml "
	envs["PORTWATCH_SERIES_CAPACITY"] = "50"
	envs["PORTWATCH_ARCHIVE_ENABLED"] = "false"
	envs["PORTWATCH_ARCHIVE_PRUNE_SCHEDULE"] = "0 * * * *"
	envs["PORTWATCH_RECONNECT_MAX_INTERVAL"] = "2m"
	setEnvs(t, envs)

	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertEqual(t, "Port", cfg.Port, 9000)
	assertEqual(t, "ControllerURL", cfg.ControllerURL, "https://ryu.example:8443")
	assertEqual(t, "SnapshotFile", cfg.SnapshotFile, "/tmp/stats.yaml")
	assertEqual(t, "SeriesCapacity", cfg.SeriesCapacity, 50)
	assertEqual(t, "ArchiveEnabled", cfg.ArchiveEnabled, false)
	assertEqual(t, "ArchivePruneSchedule", cfg.ArchivePruneSchedule, "0 * * * *")
	assertEqual(t, "ReconnectMaxInterval", cfg.ReconnectMaxInterval, 2*time.Minute)
}

func TestLoadEnvConfig_AdminTokenMustBeDefined(t *testing.T) {
	_, err := LoadEnvConfig()
	if err == nil {
		t.Fatal("expected error when PORTWATCH_ADMIN_TOKEN is undefined")
	}
	assertContains(t, err.Error(), "PORTWATCH_ADMIN_TOKEN")
}

func TestLoadEnvConfig_EmptyAdminTokenAllowed(t *testing.T) {
	setEnvs(t, map[string]string{"PORTWATCH_ADMIN_TOKEN": ""})
	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Public().AuthEnabled {
		t.Fatal("empty admin token should disable auth")
	}
}

func TestLoadEnvConfig_CollectsEveryError(t *testing.T) {
	envs := requiredEnvs()
	envs["PORTWATCH_PORT"] = "70000"
	envs["PORTWATCH_SERIES_CAPACITY"] = "abc"
	envs["PORTWATCH_FETCH_TIMEOUT"] = "0s"
	envs["PORTWATCH_ARCHIVE_PRUNE_SCHEDULE"] = "every minute"
	envs["PORTWATCH_ARCHIVE_ENABLED"] = "maybe"
	setEnvs(t, envs)

	_, err := LoadEnvConfig()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, key := range []string{
		"PORTWATCH_PORT",
		"PORTWATCH_SERIES_CAPACITY",
		"PORTWATCH_FETCH_TIMEOUT",
		"PORTWATCH_ARCHIVE_PRUNE_SCHEDULE",
		"PORTWATCH_ARCHIVE_ENABLED",
	} {
		assertContains(t, err.Error(), key)
	}
}

func TestLoadEnvConfig_InvalidControllerURL(t *testing.T) {
	for _, raw := range []string{"ftp://ryu:21", "not a url", "http://"} {
		t.Run(raw, func(t *testing.T) {
			envs := requiredEnvs()
			envs["PORTWATCH_CONTROLLER_URL"] = raw
			setEnvs(t, envs)

			_, err := LoadEnvConfig()
			if err == nil {
				t.Fatalf("expected error for controller url %q", raw)
			}
			assertContains(t, err.Error(), "PORTWATCH_CONTROLLER_URL")
		})
	}
}

func TestLoadEnvConfig_ArchiveQueueMustCoverTwoBatches(t *testing.T) {
	envs := requiredEnvs()
	envs["PORTWATCH_ARCHIVE_QUEUE_SIZE"] = "100"
	envs["PORTWATCH_ARCHIVE_FLUSH_BATCH_SIZE"] = "80"
	setEnvs(t, envs)

	_, err := LoadEnvConfig()
	if err == nil {
		t.Fatal("expected error for undersized archive queue")
	}
	assertContains(t, err.Error(), "PORTWATCH_ARCHIVE_QUEUE_SIZE")
}

func TestLoadEnvConfig_RetainMustCoverSeriesCapacity(t *testing.T) {
	envs := requiredEnvs()
	envs["PORTWATCH_ARCHIVE_RETAIN_SAMPLES"] = "10"
	setEnvs(t, envs)

	_, err := LoadEnvConfig()
	if err == nil {
		t.Fatal("expected error when retention is below series capacity")
	}
	assertContains(t, err.Error(), "PORTWATCH_ARCHIVE_RETAIN_SAMPLES")
}

func TestPublicConfig_HidesSecretsAndFormatsDurations(t *testing.T) {
	envs := requiredEnvs()
	envs["PORTWATCH_CONTROLLER_TOKEN"] = "controller-secret"
	setEnvs(t, envs)

	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := json.Marshal(cfg.Public())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	if strings.Contains(body, "admin-secret") || strings.Contains(body, "controller-secret") {
		t.Fatalf("public config leaks a secret: %s", body)
	}
	assertContains(t, body, `"fetch_timeout":"10s"`)
	assertContains(t, body, `"auth_enabled":true`)
}

// --- test helpers ---

func assertEqual[T comparable](t *testing.T, name string, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", name, got, want)
	}
}

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}
