package config

// PublicConfig is the non-secret subset of EnvConfig reported by the API.
type PublicConfig struct {
	ControllerURL        string   `json:"controller_url"`
	SnapshotFile         string   `json:"snapshot_file,omitempty"`
	FetchTimeout         Duration `json:"fetch_timeout"`
	ReconnectMaxInterval Duration `json:"reconnect_max_interval"`
	SeriesCapacity       int      `json:"series_capacity"`
	FaultTableEntries    int      `json:"fault_table_entries"`
	ArchiveEnabled       bool     `json:"archive_enabled"`
	ArchiveRetainSamples int      `json:"archive_retain_samples"`
	ArchivePruneSchedule string   `json:"archive_prune_schedule"`
	ArchiveFlushInterval Duration `json:"archive_flush_interval"`
	StreamClientBuffer   int      `json:"stream_client_buffer"`
	AuthEnabled          bool     `json:"auth_enabled"`
}

// Public returns the settings safe to expose to API clients.
func (c *EnvConfig) Public() PublicConfig {
	return PublicConfig{
		ControllerURL:        c.ControllerURL,
		SnapshotFile:         c.SnapshotFile,
		FetchTimeout:         Duration(c.FetchTimeout),
		ReconnectMaxInterval: Duration(c.ReconnectMaxInterval),
		SeriesCapacity:       c.SeriesCapacity,
		FaultTableEntries:    c.FaultTableEntries,
		ArchiveEnabled:       c.ArchiveEnabled,
		ArchiveRetainSamples: c.ArchiveRetainSamples,
		ArchivePruneSchedule: c.ArchivePruneSchedule,
		ArchiveFlushInterval: Duration(c.ArchiveFlushInterval),
		StreamClientBuffer:   c.StreamClientBuffer,
		AuthEnabled:          c.AdminToken != "",
	}
}
