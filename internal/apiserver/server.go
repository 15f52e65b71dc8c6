package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/cortexbuild/cortex/internal/api"
	"github.com/cortexbuild/cortex/internal/api/handlers"
	"github.com/cortexbuild/cortex/internal/logging"
)

// ReadinessChecker is an interface for checking component readiness
type ReadinessChecker interface {
	IsReady() bool
}

// NoOpReadinessChecker is a ReadinessChecker that always returns true.
type NoOpReadinessChecker struct{}

// IsReady always returns true for the no-op checker.
func (n *NoOpReadinessChecker) IsReady() bool {
	return true
}

// TracingProvider hands out tracers when tracing is enabled
type TracingProvider interface {
	Tracer(string) trace.Tracer
	IsEnabled() bool
}

// Config wires the API server to its collaborators
type Config struct {
	Port int

	// Service answers the /v1/cognitive endpoints
	Service handlers.EventService

	// Gatherer is served on /metrics when set
	Gatherer prometheus.Gatherer

	// MCPServer is served on /v1/mcp when set
	MCPServer *server.MCPServer

	Readiness ReadinessChecker
	Tracing   TracingProvider
}

// Server handles HTTP API requests
type Server struct {
	cfg    Config
	server *http.Server
	logger *logging.Logger
	router *http.ServeMux
}

// New creates the API server and registers its routes
func New(cfg Config) *Server {
	if cfg.Readiness == nil {
		cfg.Readiness = &NoOpReadinessChecker{}
	}

	s := &Server{
		cfg:    cfg,
		logger: logging.GetLogger("api"),
		router: http.NewServeMux(),
	}

	s.registerHandlers()
	s.configureHTTPServer(cfg.Port)

	return s
}

// configureHTTPServer creates the HTTP server with CORS middleware and appropriate timeouts
func (s *Server) configureHTTPServer(port int) {
	// Specialist queries are bounded by the pipeline's query timeout, so a
	// minute covers a full analysis with room to spare.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}

// Handler returns the router wrapped in the server middleware
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.accessLog(s.router))
}

// registerMCPHandler adds the MCP endpoint to the router
func (s *Server) registerMCPHandler() {
	if s.cfg.MCPServer == nil {
		s.logger.Debug("MCP server not configured, skipping /v1/mcp endpoint")
		return
	}

	endpointPath := "/v1/mcp"
	streamableServer := server.NewStreamableHTTPServer(
		s.cfg.MCPServer,
		server.WithEndpointPath(endpointPath),
		server.WithStateLess(true),
	)

	s.router.Handle(endpointPath, streamableServer)
	s.logger.Info("MCP endpoint registered at %s", endpointPath)
}

// Start implements the lifecycle.Component interface
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server on port %d", s.cfg.Port)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()

	s.logger.Info("API server listening on port %d", s.cfg.Port)
	return nil
}

// Stop implements the lifecycle.Component interface
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")

	done := make(chan error, 1)
	go func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- s.server.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("HTTP server shutdown error: %v", err)
			return err
		}
		s.logger.Info("API server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("API server shutdown timeout")
		return ctx.Err()
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = api.WriteSuccess(w, map[string]interface{}{
		"status": "healthy",
	})
}

// handleReady handles readiness check requests
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ready := s.cfg.Readiness.IsReady()

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	_ = api.WriteJSON(w, map[string]interface{}{
		"ready": ready,
	})
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() int {
	return s.cfg.Port
}

// Name implements the lifecycle.Component interface
func (s *Server) Name() string {
	return "API Server"
}
