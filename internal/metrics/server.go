package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/systmms/secwallet/internal/logging"
)

// ServerConfig configures the optional metrics HTTP endpoint.
type ServerConfig struct {
	Enabled bool
	Addr    string
	Path    string
}

// DefaultServerConfig returns the metrics endpoint's defaults: disabled,
// listening on :9090/metrics if enabled.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{Enabled: false, Addr: ":9090", Path: "/metrics"}
}

// Server serves the registered collectors over HTTP for Prometheus to
// scrape.
type Server struct {
	config ServerConfig
	server *http.Server
}

// NewServer builds a Server from config.
func NewServer(config ServerConfig) *Server {
	return &Server{config: config}
}

// Start launches the metrics HTTP server in the background. A no-op if the
// config disables it.
func (s *Server) Start(log *logging.Logger) {
	if !s.config.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle(s.config.Path, promhttp.Handler())

	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed && log != nil {
			log.Error("metrics server error: %v", err)
		}
	}()
}

// Stop gracefully shuts the metrics server down, if it was started.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
