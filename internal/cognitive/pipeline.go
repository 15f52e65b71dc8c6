// Package cognitive runs the root-cause analysis pipeline:
//
//	event -> detect -> plan -> execute -> synthesize -> generate actions
//
// A Pipeline is stateless per call. Detection, planning, synthesis and action
// generation are pure transforms; only the executor fans out to the
// specialist. Persistence and notification are the caller's concern (see the
// service package).
package cognitive

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cortexbuild/cortex/internal/cognitive/detector"
	"github.com/cortexbuild/cortex/internal/cognitive/executor"
	"github.com/cortexbuild/cortex/internal/cognitive/planner"
	"github.com/cortexbuild/cortex/internal/cognitive/specialist"
	"github.com/cortexbuild/cortex/internal/cognitive/strategy"
	"github.com/cortexbuild/cortex/internal/cognitive/synthesis"
	"github.com/cortexbuild/cortex/internal/logging"
	"github.com/cortexbuild/cortex/internal/models"
	"github.com/cortexbuild/cortex/internal/tracing"
)

// Pipeline wires the analysis stages together.
type Pipeline struct {
	config      Config
	detector    *detector.Detector
	planner     *planner.Planner
	executor    *executor.Executor
	synthesizer *synthesis.Synthesizer
	generator   *strategy.Generator
	metrics     *Metrics
	tracer      trace.Tracer
	logger      *logging.Logger
}

type options struct {
	metrics     *Metrics
	tracer      trace.Tracer
	synthesis   []synthesis.Option
	actionIDs   func() string
	planTable   planner.Table
	actionRules *strategy.Rules
}

// Option customises a Pipeline.
type Option func(*options)

// WithMetrics records pipeline metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer for pipeline spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithSynthesisOptions passes options to the synthesizer.
func WithSynthesisOptions(opts ...synthesis.Option) Option {
	return func(o *options) { o.synthesis = append(o.synthesis, opts...) }
}

// WithActionIDs overrides action ID generation.
func WithActionIDs(newID func() string) Option {
	return func(o *options) { o.actionIDs = newID }
}

// WithPlanTable replaces the pattern-to-query table.
func WithPlanTable(t planner.Table) Option {
	return func(o *options) { o.planTable = t }
}

// WithActionRules replaces the impact-to-action rules.
func WithActionRules(r strategy.Rules) Option {
	return func(o *options) { o.actionRules = &r }
}

// New builds a Pipeline that asks s for corroborating evidence.
func New(s specialist.Specialist, cfg Config, opts ...Option) *Pipeline {
	o := options{
		metrics:   NewMetrics(nil),
		tracer:    otel.Tracer(tracing.TracerPipeline),
		planTable: planner.DefaultTable(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	exec := executor.New(s,
		executor.Config{Timeout: cfg.QueryTimeout, Concurrency: cfg.Concurrency},
		executor.WithTracer(o.tracer),
		executor.WithFailureHook(o.metrics.observeFailure),
	)

	rules := strategy.DefaultRules()
	if o.actionRules != nil {
		rules = *o.actionRules
	}
	gen := strategy.New(rules)
	if o.actionIDs != nil {
		gen.WithIDGenerator(o.actionIDs)
	}

	return &Pipeline{
		config:   cfg,
		detector: detector.New(cfg.detectorRules()),
		planner:  planner.New(o.planTable, cfg.MaxQueries),
		executor: exec,
		synthesizer: synthesis.New(synthesis.Config{
			BoostDivisor:    cfg.BoostDivisor,
			BoostCap:        cfg.BoostCap,
			DefaultCurrency: cfg.DefaultCurrency,
		}, o.synthesis...),
		generator: gen,
		metrics:   o.metrics,
		tracer:    o.tracer,
		logger:    logging.GetLogger("cognitive.pipeline"),
	}
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.config
}

// HistoryWindow returns the trailing window of history needed to evaluate an
// event at t.
func (p *Pipeline) HistoryWindow(t time.Time) models.TimeWindow {
	return p.detector.Window(t)
}

// Detect validates event and runs detection only.
func (p *Pipeline) Detect(event models.AgentEvent, history models.HistoricalContext) (*models.DetectedPattern, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return p.detector.Detect(event, history), nil
}

// Plan returns the queries the pipeline would ask about pattern.
func (p *Pipeline) Plan(pattern models.DetectedPattern) []models.CrossAgentQuery {
	return p.planner.Plan(pattern)
}

// Process runs the full analysis for one event. It returns (nil, nil) when
// no pattern is detected, and an *models.InvalidEventError for malformed
// events. Specialist failures never fail the call: a detected pattern always
// yields a hypothesis.
func (p *Pipeline) Process(ctx context.Context, event models.AgentEvent, history models.HistoricalContext) (*models.PipelineResult, error) {
	ctx, span := p.tracer.Start(ctx, "cognitive.process",
		trace.WithAttributes(
			attribute.String("event_type", event.EventType),
			attribute.String("entity_id", event.Entity.ID),
		),
	)
	defer span.End()

	logger := p.logger.WithContext(ctx).WithFields(
		logging.Field("event_type", event.EventType),
		logging.Field("entity_id", event.Entity.ID),
	)

	if err := event.Validate(); err != nil {
		p.metrics.EventsTotal.WithLabelValues("invalid").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug("rejected event: %v", err)
		return nil, err
	}

	var pattern *models.DetectedPattern
	p.timed("detect", func() {
		pattern = p.detector.Detect(event, history)
	})
	if pattern == nil {
		p.metrics.EventsTotal.WithLabelValues("no_pattern").Inc()
		span.SetAttributes(attribute.Bool("pattern_detected", false))
		logger.Debug("no pattern detected")
		return nil, nil
	}

	span.SetAttributes(
		attribute.Bool("pattern_detected", true),
		attribute.String("pattern_type", string(pattern.PatternType)),
		attribute.Int("frequency", pattern.Frequency),
		attribute.String("risk_level", pattern.RiskLevel.String()),
	)
	p.metrics.PatternsTotal.WithLabelValues(string(pattern.PatternType), pattern.RiskLevel.String()).Inc()
	logger.InfoWithFields("pattern detected",
		logging.Field("pattern_type", pattern.PatternType),
		logging.Field("frequency", pattern.Frequency),
		logging.Field("risk_level", pattern.RiskLevel.String()),
	)

	var queries []models.CrossAgentQuery
	p.timed("plan", func() {
		queries = p.planner.Plan(*pattern)
	})

	var responses []models.CrossAgentResponse
	p.timed("execute", func() {
		responses = p.executor.ExecuteAll(ctx, queries)
	})
	if len(queries) > 0 && len(responses) == 0 {
		logger.Warn("all %d specialist queries failed; synthesizing from the pattern alone", len(queries))
	}

	var hypothesis models.RootCauseHypothesis
	p.timed("synthesize", func() {
		hypothesis = p.synthesizer.Synthesize(*pattern, responses)
	})

	var actions models.ActionPlan
	p.timed("generate", func() {
		actions = p.generator.Generate(hypothesis)
	})

	p.metrics.EventsTotal.WithLabelValues("pattern").Inc()
	p.metrics.HypothesisConfidence.Observe(hypothesis.Confidence)
	span.SetAttributes(
		attribute.Int("queries", len(queries)),
		attribute.Int("responses", len(responses)),
		attribute.Float64("confidence", hypothesis.Confidence),
		attribute.Int("actions", actions.Len()),
	)
	logger.InfoWithFields("hypothesis generated",
		logging.Field("hypothesis_id", hypothesis.ID),
		logging.Field("confidence", hypothesis.Confidence),
		logging.Field("responses", len(responses)),
		logging.Field("actions", actions.Len()),
	)

	return &models.PipelineResult{
		Pattern:    *pattern,
		Hypothesis: hypothesis,
		Actions:    actions,
	}, nil
}

func (p *Pipeline) timed(stage string, fn func()) {
	start := time.Now()
	fn()
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
