package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/Resinat/Portwatch/internal/api"
	"github.com/Resinat/Portwatch/internal/buildinfo"
	"github.com/Resinat/Portwatch/internal/config"
	"github.com/Resinat/Portwatch/internal/controller"
	"github.com/Resinat/Portwatch/internal/feed"
	"github.com/Resinat/Portwatch/internal/hub"
	"github.com/Resinat/Portwatch/internal/metrics"
	"github.com/Resinat/Portwatch/internal/netutil"
	"github.com/Resinat/Portwatch/internal/state"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

type portwatchApp struct {
	envCfg    *config.EnvConfig
	registry  *telemetry.Registry
	faults    *telemetry.FaultTable
	collector *metrics.Collector
	hub       *hub.Hub
	archive   *state.ArchiveRepo
	writer    *state.Writer
	pruner    *state.Pruner
	stream    *controller.StreamSource
	feed      *feed.Feed
	apiSrv    *api.Server

	feedCancel context.CancelFunc
	feedWG     sync.WaitGroup
}

func run() error {
	envCfg, err := config.LoadEnvConfig()
	if err != nil {
		return err
	}
	for _, w := range config.AdminTokenWarnings(envCfg.AdminToken) {
		log.Printf("WARNING: %s", w)
	}

	app, err := newPortwatchApp(envCfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := app.bootstrap(ctx); err != nil {
		app.closeArchive()
		return err
	}

	serverErrCh := app.startServers()
	runtimeErr := waitForShutdown(serverErrCh)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	app.shutdown(shutdownCtx)

	if runtimeErr != nil {
		return fmt.Errorf("runtime error: %w", runtimeErr)
	}
	return nil
}

func newPortwatchApp(envCfg *config.EnvConfig) (*portwatchApp, error) {
	app := &portwatchApp{
		envCfg:    envCfg,
		registry:  telemetry.NewRegistry(envCfg.SeriesCapacity),
		faults:    telemetry.NewFaultTable(envCfg.FaultTableEntries),
		collector: metrics.NewCollector(),
		hub:       hub.New(envCfg.StreamClientBuffer),
	}
	metrics.BuildInfo.WithLabelValues(buildinfo.Version, buildinfo.GitCommit, buildinfo.BuildTime).Set(1)

	if err := app.initArchive(); err != nil {
		return nil, err
	}

	observers := []feed.Observer{app.hub}
	if app.writer != nil {
		observers = append(observers, app.writer)
	}
	app.feed = feed.New(feed.Config{
		Registry:  app.registry,
		Faults:    app.faults,
		Collector: app.collector,
		Observers: observers,
	})

	app.stream = controller.NewStreamSource(controller.StreamConfig{
		URL:              envCfg.ControllerURL,
		Token:            envCfg.ControllerToken,
		InitialReconnect: envCfg.ReconnectInitialInterval,
		MaxReconnect:     envCfg.ReconnectMaxInterval,
		ReadLimit:        int64(envCfg.StreamReadLimitBytes),
		OnConnect: func(reconnect bool) {
			if reconnect {
				metrics.StreamReconnects.Inc()
			}
		},
		OnDecodeError: func(error) { metrics.StreamDecodeErrs.Inc() },
	})

	app.apiSrv = api.NewServer(api.Deps{
		ListenAddress: envCfg.ListenAddress,
		Port:          envCfg.Port,
		AdminToken:    envCfg.AdminToken,
		SystemInfo: api.SystemInfo{
			Version:   buildinfo.Version,
			GitCommit: buildinfo.GitCommit,
			BuildTime: buildinfo.BuildTime,
			StartedAt: time.Now().UTC(),
		},
		EnvConfig: envCfg,
		Registry:  app.registry,
		Faults:    app.faults,
		Collector: app.collector,
		Hub:       app.hub,
	})
	return app, nil
}

func (a *portwatchApp) initArchive() error {
	if !a.envCfg.ArchiveEnabled {
		log.Println("Sample archive disabled")
		return nil
	}
	if err := os.MkdirAll(a.envCfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	repo, err := state.OpenArchive(a.envCfg.StateDir)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	pruner, err := state.NewPruner(repo, a.envCfg.ArchivePruneSchedule, a.envCfg.ArchiveRetainSamples)
	if err != nil {
		_ = repo.Close()
		return err
	}
	a.archive = repo
	a.pruner = pruner
	a.writer = state.NewWriter(state.WriterConfig{
		Repo:          repo,
		QueueSize:     a.envCfg.ArchiveQueueSize,
		FlushBatch:    a.envCfg.ArchiveFlushBatchSize,
		FlushInterval: a.envCfg.ArchiveFlushInterval,
	})
	log.Printf("Sample archive opened at %s", repo.Path())
	return nil
}

func (a *portwatchApp) snapshotSources() []snapshotSource {
	var sources []snapshotSource
	if a.envCfg.SnapshotFile != "" {
		sources = append(sources, fileSnapshotSource(a.envCfg.SnapshotFile))
	}
	dl := netutil.NewDirectDownloader(a.envCfg.FetchTimeout, "portwatch/"+buildinfo.Version)
	dl.Token = a.envCfg.ControllerToken
	sources = append(sources, controllerSnapshotSource(&controller.SnapshotFetcher{
		Downloader:      dl,
		BaseURL:         a.envCfg.ControllerURL,
		MaxElapsed:      a.envCfg.FetchMaxElapsed,
		InitialInterval: a.envCfg.ReconnectInitialInterval,
	}))
	if a.archive != nil {
		sources = append(sources, archiveSnapshotSource(a.archive, a.envCfg.ArchiveRetainSamples))
	}
	return sources
}

// bootstrap seeds the registry before the live feed starts.
func (a *portwatchApp) bootstrap(ctx context.Context) error {
	snap, source, err := loadBootstrapSnapshot(ctx, a.snapshotSources())
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if snap == nil {
		log.Println("[bootstrap] no snapshot available; series will fill from the live stream")
		return nil
	}
	report, err := telemetry.Bootstrap(a.registry, snap)
	if err != nil {
		return fmt.Errorf("bootstrap from %s: %w", source, err)
	}
	metrics.BootstrapSeries.Set(float64(report.Series))
	metrics.BootstrapDroppedPairs.Set(float64(report.DroppedPairs))
	metrics.SeriesTracked.Set(float64(a.registry.Len()))
	log.Printf("[bootstrap] seeded %d series on %d switches from %s (%d pairs dropped)",
		report.Series, report.Switches, source, report.DroppedPairs)
	return nil
}

func (a *portwatchApp) startServers() <-chan error {
	serverErrCh := make(chan error, 1)
	reportErr := func(name string, err error) {
		if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
			return
		}
		select {
		case serverErrCh <- fmt.Errorf("%s: %w", name, err):
		default:
		}
	}

	if a.writer != nil {
		a.writer.Start()
		log.Println("Archive writer started")
	}
	if a.pruner != nil {
		a.pruner.Start()
		log.Println("Archive pruner started")
	}

	feedCtx, cancel := context.WithCancel(context.Background())
	a.feedCancel = cancel
	a.feedWG.Add(1)
	go func() {
		defer a.feedWG.Done()
		log.Printf("Live feed connecting to %s", controller.StreamURL(a.envCfg.ControllerURL))
		reportErr("live feed", a.feed.Run(feedCtx, a.stream))
	}()

	go func() {
		log.Printf("Portwatch API starting on %s", formatListenURL(a.envCfg.ListenAddress, a.envCfg.Port))
		reportErr("api server", a.apiSrv.ListenAndServe())
	}()

	return serverErrCh
}

func waitForShutdown(serverErrCh <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		log.Printf("Received signal %s, shutting down...", sig)
		return nil
	case err := <-serverErrCh:
		log.Printf("Received runtime error (%v), shutting down...", err)
		return err
	}
}

func formatListenURL(listenAddress string, port int) string {
	return "http://" + net.JoinHostPort(listenAddress, strconv.Itoa(port))
}

func (a *portwatchApp) shutdown(ctx context.Context) {
	// Stop in order: event source, then sinks, then persistence.
	if a.feedCancel != nil {
		a.feedCancel()
	}
	a.feedWG.Wait()
	if err := a.stream.Close(); err != nil {
		log.Printf("Stream close error: %v", err)
	}
	log.Println("Live feed stopped")

	a.hub.Close()
	if err := a.apiSrv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Portwatch API stopped")

	if a.pruner != nil {
		a.pruner.Stop()
		log.Println("Archive pruner stopped")
	}
	if a.writer != nil {
		a.writer.Stop()
		log.Println("Archive writer stopped")
	}
	a.closeArchive()
	a.faults.Close()
	log.Println("Server stopped")
}

func (a *portwatchApp) closeArchive() {
	if a.archive == nil {
		return
	}
	if err := a.archive.Close(); err != nil {
		log.Printf("Archive close error: %v", err)
	}
	log.Println("Archive closed")
}
