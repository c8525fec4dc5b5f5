package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "portwatch_build_info", Help: "Build information of portwatch.",
	}, []string{"version", "commit", "date"})

	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portwatch_feed_events_total", Help: "Live events routed into the series registry.",
	}, []string{"dpid"})
	PointsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portwatch_series_points_appended_total", Help: "Rate points appended to live series.",
	}, []string{"dpid"})
	StaleSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portwatch_series_stale_samples_total", Help: "Samples rejected because their timestamp did not advance.",
	}, []string{"dpid"})
	CounterRegressions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portwatch_series_counter_regressions_total", Help: "Rate points derived from a decreasing counter.",
	}, []string{"dpid"})

	SeriesTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portwatch_series_tracked", Help: "Number of (switch, port) series held in memory.",
	})
	BootstrapSeries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portwatch_bootstrap_series", Help: "Series seeded by the last bootstrap.",
	})
	BootstrapDroppedPairs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portwatch_bootstrap_dropped_pairs", Help: "History pairs skipped by the last bootstrap for non-advancing time.",
	})

	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portwatch_stream_reconnects_total", Help: "Reconnects of the controller stream.",
	})
	StreamDecodeErrs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portwatch_stream_decode_errors_total", Help: "Controller stream frames that could not be decoded.",
	})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portwatch_hub_subscribers", Help: "Dashboard stream subscribers currently connected.",
	})
	SubscriberDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portwatch_hub_dropped_frames_total", Help: "Frames dropped because a subscriber buffer was full.",
	})

	ArchiveQueueDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portwatch_archive_queue_dropped_total", Help: "Samples dropped because the archive queue was full.",
	})
	ArchiveFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portwatch_archive_flushes_total", Help: "Archive batch flush outcomes.",
	}, []string{"result"})
	ArchivePruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portwatch_archive_pruned_rows_total", Help: "Archived samples removed by retention pruning.",
	})
)
