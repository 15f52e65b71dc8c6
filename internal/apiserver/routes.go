package apiserver

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/cortexbuild/cortex/internal/api/handlers"
	"github.com/cortexbuild/cortex/internal/tracing"
)

// registerHandlers registers all HTTP handlers
func (s *Server) registerHandlers() {
	if s.cfg.Service != nil {
		handlers.RegisterHandlers(s.router, s.cfg.Service, s.logger, s.getTracer(tracing.TracerAPI), s.withMethod)
	}

	s.registerHealthEndpoints()
	s.registerMetricsEndpoint()
	s.registerMCPHandler()
}

// registerHealthEndpoints registers health and readiness check endpoints
func (s *Server) registerHealthEndpoints() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/ready", s.handleReady)
}

// registerMetricsEndpoint exposes the Prometheus registry
func (s *Server) registerMetricsEndpoint() {
	if s.cfg.Gatherer == nil {
		return
	}
	s.router.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}

// getTracer returns a tracer for the given name
func (s *Server) getTracer(name string) trace.Tracer {
	if s.cfg.Tracing != nil && s.cfg.Tracing.IsEnabled() {
		return s.cfg.Tracing.Tracer(name)
	}
	return otel.GetTracerProvider().Tracer(name)
}
