package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/cortexbuild/cortex/internal/cognitive"
	"github.com/cortexbuild/cortex/internal/cognitive/service"
	"github.com/cortexbuild/cortex/internal/cognitive/specialist"
	"github.com/cortexbuild/cortex/internal/config"
	"github.com/cortexbuild/cortex/internal/logging"
	"github.com/cortexbuild/cortex/internal/notify"
	"github.com/cortexbuild/cortex/internal/store"
	"github.com/cortexbuild/cortex/internal/tracing"
)

// runtime holds the collaborators shared by the server, analyze and mcp commands.
type runtime struct {
	registry        *prometheus.Registry
	pipelineMetrics *cognitive.Metrics
	specialist      specialist.Specialist
	tracer          trace.Tracer
	service         *service.Service
	logger          *logging.Logger
}

// newRuntime builds the store, specialist, notifier and service described
// by cfg. A nil tracer uses the global provider.
func newRuntime(ctx context.Context, cfg *config.Config, tracer trace.Tracer) (*runtime, error) {
	logger := logging.GetLogger("main")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if tracer == nil {
		tracer = otel.Tracer(tracing.TracerPipeline)
	}

	sp, err := buildSpecialist(ctx, cfg.Specialist)
	if err != nil {
		return nil, err
	}

	svcMetrics := service.NewMetrics(registry)
	notifier, err := buildNotifier(cfg.Notify, svcMetrics, logger)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		registry:        registry,
		pipelineMetrics: cognitive.NewMetrics(registry),
		specialist:      sp,
		tracer:          tracer,
		logger:          logger,
	}

	opts := []service.Option{
		service.WithNotifier(notifier),
		service.WithMetrics(svcMetrics),
	}
	if cfg.Store.Path != "" {
		st, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			_ = notifier.Close()
			return nil, err
		}
		logger.Info("Persisting analysis results to %s", cfg.Store.Path)
		opts = append(opts, service.WithStore(st))
	} else {
		logger.Info("No store configured; history must be supplied with each event")
	}

	rt.service = service.New(rt.buildPipeline(cfg.Pipeline), service.Config{
		Recipients: cfg.Notify.Recipients,
		DedupSize:  cfg.Service.DedupSize,
		DedupTTL:   cfg.Service.DedupTTL,
	}, opts...)

	return rt, nil
}

// buildPipeline creates a pipeline that shares the runtime's specialist and metrics
func (r *runtime) buildPipeline(cfg cognitive.Config) *cognitive.Pipeline {
	return cognitive.New(r.specialist, cfg,
		cognitive.WithMetrics(r.pipelineMetrics),
		cognitive.WithTracer(r.tracer),
	)
}

// reload applies a changed configuration file. Only the pipeline heuristics
// and notification recipients change at runtime.
func (r *runtime) reload(cfg *config.Config) error {
	r.service.SetPipeline(r.buildPipeline(cfg.Pipeline))
	r.service.SetRecipients(cfg.Notify.Recipients)
	r.logger.Info("Configuration reloaded: maxQueries=%d queryTimeout=%v recipients=%d",
		cfg.Pipeline.MaxQueries, cfg.Pipeline.QueryTimeout, len(cfg.Notify.Recipients))
	return nil
}

func (r *runtime) Close() error {
	return r.service.Close()
}

// buildSpecialist selects the backend that answers cross-agent questions
func buildSpecialist(ctx context.Context, cfg config.SpecialistConfig) (specialist.Specialist, error) {
	llm := specialist.LLMConfig{
		Model:      cfg.Model,
		MaxTokens:  cfg.MaxTokens,
		BaseURL:    cfg.BaseURL,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.APIKeyEnv != "" {
		llm.APIKey = os.Getenv(cfg.APIKeyEnv)
		if llm.APIKey == "" {
			return nil, fmt.Errorf("specialist.apiKeyEnv %s is not set", cfg.APIKeyEnv)
		}
	}

	switch cfg.Backend {
	case config.BackendSimulated, "":
		return specialist.NewSimulated(nil), nil
	case config.BackendAnthropic:
		return specialist.NewAnthropic(llm), nil
	case config.BackendGemini:
		return specialist.NewGemini(ctx, llm)
	default:
		return nil, fmt.Errorf("unknown specialist backend %q", cfg.Backend)
	}
}

// buildNotifier fans notifications out to the configured channels behind a
// bounded asynchronous queue. Background delivery failures are counted on m.
func buildNotifier(cfg config.NotifyConfig, m *service.Metrics, logger *logging.Logger) (notify.Notifier, error) {
	var sinks []notify.Notifier
	if cfg.Log {
		sinks = append(sinks, notify.NewLog())
	}
	if cfg.NATS.URL != "" {
		conn, err := notify.ConnectNATS(cfg.NATS)
		if err != nil {
			return nil, err
		}
		logger.Info("Publishing notifications to NATS at %s", conn.ConnectedUrl())
		sinks = append(sinks, notify.NewNATS(conn, cfg.NATS.SubjectPrefix))
	}

	if len(sinks) == 0 {
		return notify.Noop{}, nil
	}

	return notify.NewAsync(notify.NewMulti(sinks...),
		notify.WithQueueSize(cfg.QueueSize),
		notify.WithOnDropped(func(count int) {
			m.CollaboratorFailures.WithLabelValues("notifier", "dropped").Add(float64(count))
		}),
		notify.WithOnError(func(err error) {
			m.CollaboratorFailures.WithLabelValues("notifier", "deliver").Inc()
		}),
	), nil
}
