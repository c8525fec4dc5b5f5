// Package config handles environment-based configuration loading.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// EnvConfig holds all environment-variable-driven settings.
type EnvConfig struct {
	// Directories
	StateDir string

	// Network
	ListenAddress string
	Port          int

	// Auth
	AdminToken string

	// Controller
	ControllerURL            string
	ControllerToken          string
	SnapshotFile             string
	FetchTimeout             time.Duration
	FetchMaxElapsed          time.Duration
	ReconnectInitialInterval time.Duration
	ReconnectMaxInterval     time.Duration
	StreamReadLimitBytes     int

	// Series
	SeriesCapacity    int
	FaultTableEntries int

	// Archive
	ArchiveEnabled        bool
	ArchiveRetainSamples  int
	ArchivePruneSchedule  string
	ArchiveQueueSize      int
	ArchiveFlushBatchSize int
	ArchiveFlushInterval  time.Duration

	// Dashboard stream
	StreamClientBuffer int
}

// LoadEnvConfig reads environment variables and returns a validated EnvConfig.
// Returns an error if any required variable is missing or any value is invalid.
func LoadEnvConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	var errs []string

	// --- Directories / network ---
	cfg.StateDir = envStr("PORTWATCH_STATE_DIR", "/var/lib/portwatch")
	cfg.ListenAddress = strings.TrimSpace(envStr("PORTWATCH_LISTEN_ADDRESS", "0.0.0.0"))
	cfg.Port = envInt("PORTWATCH_PORT", 8090, &errs)

	// --- Auth (must be defined; empty means auth disabled) ---
	adminToken, hasAdminToken := os.LookupEnv("PORTWATCH_ADMIN_TOKEN")
	cfg.AdminToken = adminToken

	// --- Controller ---
	cfg.ControllerURL = strings.TrimSpace(envStr("PORTWATCH_CONTROLLER_URL", "http://127.0.0.1:8080"))
	cfg.ControllerToken = envStr("PORTWATCH_CONTROLLER_TOKEN", "")
	cfg.SnapshotFile = strings.TrimSpace(envStr("PORTWATCH_SNAPSHOT_FILE", ""))
	cfg.FetchTimeout = envDuration("PORTWATCH_FETCH_TIMEOUT", 10*time.Second, &errs)
	cfg.FetchMaxElapsed = envDuration("PORTWATCH_FETCH_MAX_ELAPSED", time.Minute, &errs)
	cfg.ReconnectInitialInterval = envDuration("PORTWATCH_RECONNECT_INITIAL_INTERVAL", 500*time.Millisecond, &errs)
	cfg.ReconnectMaxInterval = envDuration("PORTWATCH_RECONNECT_MAX_INTERVAL", 30*time.Second, &errs)
	cfg.StreamReadLimitBytes = envInt("PORTWATCH_STREAM_READ_LIMIT_BYTES", 1<<20, &errs)

	// --- Series ---
	cfg.SeriesCapacity = envInt("PORTWATCH_SERIES_CAPACITY", 100, &errs)
	cfg.FaultTableEntries = envInt("PORTWATCH_FAULT_TABLE_ENTRIES", 1024, &errs)

	// --- Archive ---
	cfg.ArchiveEnabled = envBool("PORTWATCH_ARCHIVE_ENABLED", true, &errs)
	cfg.ArchiveRetainSamples = envInt("PORTWATCH_ARCHIVE_RETAIN_SAMPLES", 100, &errs)
	cfg.ArchivePruneSchedule = envStr("PORTWATCH_ARCHIVE_PRUNE_SCHEDULE", "*/10 * * * *")
	cfg.ArchiveQueueSize = envInt("PORTWATCH_ARCHIVE_QUEUE_SIZE", 4096, &errs)
	cfg.ArchiveFlushBatchSize = envInt("PORTWATCH_ARCHIVE_FLUSH_BATCH_SIZE", 256, &errs)
	cfg.ArchiveFlushInterval = envDuration("PORTWATCH_ARCHIVE_FLUSH_INTERVAL", 5*time.Second, &errs)

	// --- Dashboard stream ---
	cfg.StreamClientBuffer = envInt("PORTWATCH_STREAM_CLIENT_BUFFER", 64, &errs)

	// --- Validation ---
	if !hasAdminToken {
		errs = append(errs, "PORTWATCH_ADMIN_TOKEN must be defined (can be empty)")
	}
	if cfg.ListenAddress == "" {
		errs = append(errs, "PORTWATCH_LISTEN_ADDRESS must not be empty")
	}
	validatePort("PORTWATCH_PORT", cfg.Port, &errs)

	if cfg.ControllerURL == "" {
		errs = append(errs, "PORTWATCH_CONTROLLER_URL must not be empty")
	} else if u, err := url.Parse(cfg.ControllerURL); err != nil || u.Host == "" {
		errs = append(errs, fmt.Sprintf("PORTWATCH_CONTROLLER_URL: invalid url %q", cfg.ControllerURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("PORTWATCH_CONTROLLER_URL: scheme must be http or https, got %q", u.Scheme))
	}
	if cfg.FetchTimeout <= 0 {
		errs = append(errs, "PORTWATCH_FETCH_TIMEOUT must be positive")
	}
	if cfg.FetchMaxElapsed <= 0 {
		errs = append(errs, "PORTWATCH_FETCH_MAX_ELAPSED must be positive")
	}
	if cfg.ReconnectInitialInterval <= 0 {
		errs = append(errs, "PORTWATCH_RECONNECT_INITIAL_INTERVAL must be positive")
	}
	if cfg.ReconnectMaxInterval < cfg.ReconnectInitialInterval {
		errs = append(errs, "PORTWATCH_RECONNECT_MAX_INTERVAL must be at least PORTWATCH_RECONNECT_INITIAL_INTERVAL")
	}
	validatePositive("PORTWATCH_STREAM_READ_LIMIT_BYTES", cfg.StreamReadLimitBytes, &errs)

	validatePositive("PORTWATCH_SERIES_CAPACITY", cfg.SeriesCapacity, &errs)
	validatePositive("PORTWATCH_FAULT_TABLE_ENTRIES", cfg.FaultTableEntries, &errs)

	validatePositive("PORTWATCH_ARCHIVE_RETAIN_SAMPLES", cfg.ArchiveRetainSamples, &errs)
	if _, err := cron.ParseStandard(cfg.ArchivePruneSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("PORTWATCH_ARCHIVE_PRUNE_SCHEDULE: invalid cron expression %q: %v", cfg.ArchivePruneSchedule, err))
	}
	validatePositive("PORTWATCH_ARCHIVE_QUEUE_SIZE", cfg.ArchiveQueueSize, &errs)
	validatePositive("PORTWATCH_ARCHIVE_FLUSH_BATCH_SIZE", cfg.ArchiveFlushBatchSize, &errs)
	if cfg.ArchiveFlushInterval <= 0 {
		errs = append(errs, "PORTWATCH_ARCHIVE_FLUSH_INTERVAL must be positive")
	}
	// Queue size must be >= 2x batch size
	if cfg.ArchiveQueueSize < 2*cfg.ArchiveFlushBatchSize {
		errs = append(errs, "PORTWATCH_ARCHIVE_QUEUE_SIZE must be at least 2x PORTWATCH_ARCHIVE_FLUSH_BATCH_SIZE")
	}
	if cfg.ArchiveRetainSamples < cfg.SeriesCapacity {
		errs = append(errs, "PORTWATCH_ARCHIVE_RETAIN_SAMPLES must be at least PORTWATCH_SERIES_CAPACITY")
	}

	validatePositive("PORTWATCH_STREAM_CLIENT_BUFFER", cfg.StreamClientBuffer, &errs)

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}

	return cfg, nil
}

// --- helpers ---

func envStr(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func envBool(key string, defaultVal bool, errs *[]string) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid boolean %q", key, v))
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return defaultVal
	}
	return d
}

func validatePort(name string, value int, errs *[]string) {
	if value < 1 || value > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port must be 1-65535, got %d", name, value))
	}
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}
