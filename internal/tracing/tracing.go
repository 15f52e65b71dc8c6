// Package tracing installs the OpenTelemetry tracer provider that the
// analysis pipeline and API handlers report spans to.
package tracing

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cortexbuild/cortex/internal/logging"
)

// Tracer names used across cortex. Spans are grouped by these in the backend.
const (
	TracerPipeline = "cortex.cognitive"
	TracerExecutor = "cortex.cognitive.executor"
	TracerAPI      = "cortex.api"
)

// ServiceName identifies cortex spans in the trace backend.
const ServiceName = "cortex"

const exporterTimeout = 5 * time.Second

// Config configures span export.
type Config struct {
	Enabled bool

	// Endpoint is the OTLP gRPC collector address, e.g. "otel-collector:4317"
	Endpoint string

	// CAPath verifies the collector with this CA. Insecure skips
	// verification. With neither set the connection is plaintext.
	CAPath   string
	Insecure bool

	// SampleRatio keeps this fraction of root traces. Values outside (0,1)
	// keep every trace.
	SampleRatio float64
}

// Provider owns the global tracer provider and implements
// lifecycle.Component so pending spans are flushed on shutdown.
type Provider struct {
	sdk     *sdktrace.TracerProvider
	enabled bool
	logger  *logging.Logger
}

// New builds the provider and installs it globally. A disabled config
// returns a provider whose tracers are the global no-op ones.
func New(cfg Config, version string) (*Provider, error) {
	logger := logging.GetLogger("tracing")
	if !cfg.Enabled {
		logger.Debug("Tracing disabled")
		return &Provider{logger: logger}, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tracing enabled but endpoint not configured")
	}

	creds, mode, err := transportCredentials(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), exporterTimeout)
	defer cancel()

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(creds)),
	}
	if mode == "plaintext" {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(sdk)

	logger.Info("Exporting traces to %s (%s)", cfg.Endpoint, mode)
	return &Provider{sdk: sdk, enabled: true, logger: logger}, nil
}

// transportCredentials returns the gRPC credentials for the collector and a
// short description of the mode for logs.
func transportCredentials(cfg Config) (credentials.TransportCredentials, string, error) {
	switch {
	case cfg.Insecure:
		return credentials.NewTLS(&tls.Config{
			InsecureSkipVerify: true,
			MinVersion:         tls.VersionTLS12,
		}), "tls, unverified", nil
	case cfg.CAPath != "":
		pem, err := os.ReadFile(cfg.CAPath)
		if err != nil {
			return nil, "", fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, "", fmt.Errorf("no certificates found in %s", cfg.CAPath)
		}
		return credentials.NewTLS(&tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		}), "tls", nil
	default:
		return insecure.NewCredentials(), "plaintext", nil
	}
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

func (p *Provider) Start(context.Context) error { return nil }

// Stop flushes buffered spans within ctx.
func (p *Provider) Stop(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	if err := p.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("flush spans: %w", err)
	}
	p.logger.Debug("Tracer provider shut down")
	return nil
}

func (p *Provider) Name() string { return "tracing" }

// Tracer returns the named tracer from the global provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}

// PipelineTracer returns the tracer the analysis pipeline reports to.
func (p *Provider) PipelineTracer() trace.Tracer {
	return p.Tracer(TracerPipeline)
}

// IsEnabled reports whether spans are exported.
func (p *Provider) IsEnabled() bool {
	return p.enabled
}
