package api

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/Resinat/Portwatch/internal/config"
	"github.com/Resinat/Portwatch/internal/hub"
	"github.com/Resinat/Portwatch/internal/metrics"
	"github.com/Resinat/Portwatch/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps the HTTP server and mux for the Portwatch API.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
}

// Deps are the components served by the API.
type Deps struct {
	ListenAddress string
	Port          int
	AdminToken    string
	SystemInfo    SystemInfo
	EnvConfig     *config.EnvConfig
	Registry      *telemetry.Registry
	Faults        *telemetry.FaultTable
	Collector     *metrics.Collector
	Hub           *hub.Hub
	// StreamOriginPatterns lists extra origins allowed to open the stream.
	StreamOriginPatterns []string
}

// NewServer creates a new API server wired with all routes.
func NewServer(d Deps) *Server {
	mux := http.NewServeMux()

	// Public (no auth)
	mux.Handle("GET /healthz", HandleHealthz(d.Registry))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Authenticated routes
	authed := http.NewServeMux()
	authed.Handle("GET /api/v1/system/info", HandleSystemInfo(d.SystemInfo, d.EnvConfig, d.Registry, d.Faults, d.Collector, d.Hub))

	if d.Registry != nil {
		authed.Handle("GET /api/v1/switches", HandleListSwitches(d.Registry, d.Collector))
		authed.Handle("GET /api/v1/series", HandleListSeries(d.Registry))
		authed.Handle("GET /api/v1/series/{dpid}/{port}", HandleGetSeries(d.Registry))
		if d.Hub != nil {
			authed.Handle("GET /api/v1/stream", HandleStream(d.Registry, d.Hub, d.StreamOriginPatterns))
		}
	}
	if d.Faults != nil {
		authed.Handle("GET /api/v1/faults", HandleListFaults(d.Faults))
	}

	mux.Handle("/api/", AuthMiddleware(d.AdminToken, authed))

	srv := &http.Server{
		Addr:    net.JoinHostPort(d.ListenAddress, strconv.Itoa(d.Port)),
		Handler: mux,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
	}
}

// ListenAndServe starts the HTTP server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}
