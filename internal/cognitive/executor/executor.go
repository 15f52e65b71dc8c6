package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/cortexbuild/cortex/internal/cognitive/specialist"
	"github.com/cortexbuild/cortex/internal/logging"
	"github.com/cortexbuild/cortex/internal/models"
	"github.com/cortexbuild/cortex/internal/tracing"
)

const (
	// DefaultTimeout bounds a single specialist query.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency limits in-flight specialist queries per batch.
	DefaultConcurrency = 5
)

// Config holds executor settings. Zero values select the defaults.
type Config struct {
	Timeout     time.Duration
	Concurrency int
}

// FailureHook observes every absorbed query failure.
type FailureHook func(failure *models.SpecialistQueryFailure)

// Executor runs cross-agent queries against a specialist in parallel. Each
// query has its own deadline and a failing query is dropped from the result
// rather than failing the batch.
type Executor struct {
	specialist  specialist.Specialist
	timeout     time.Duration
	concurrency int
	logger      *logging.Logger
	tracer      trace.Tracer
	onFailure   FailureHook
	now         func() time.Time
}

// Option customises an Executor.
type Option func(*Executor)

// WithTracer sets the tracer used for per-query spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithFailureHook registers a callback for absorbed failures.
func WithFailureHook(hook FailureHook) Option {
	return func(e *Executor) {
		e.onFailure = hook
	}
}

// New creates an Executor.
func New(s specialist.Specialist, cfg Config, opts ...Option) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	e := &Executor{
		specialist:  s,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		logger:      logging.GetLogger("cognitive.executor"),
		tracer:      otel.Tracer(tracing.TracerExecutor),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout returns the per-query deadline.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// ExecuteAll runs every query and returns the successful responses in query
// order. Cancelling ctx stops all outstanding queries; a single query timing
// out never affects its siblings.
func (e *Executor) ExecuteAll(ctx context.Context, queries []models.CrossAgentQuery) []models.CrossAgentResponse {
	if len(queries) == 0 {
		return nil
	}

	results := make([]*models.CrossAgentResponse, len(queries))

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, q := range queries {
		g.Go(func() error {
			resp, err := e.executeOne(ctx, q)
			if err != nil {
				e.absorb(ctx, err)
				return nil
			}
			results[i] = resp
			return nil
		})
	}
	// Goroutines never return errors; failures are absorbed above.
	_ = g.Wait()

	responses := make([]models.CrossAgentResponse, 0, len(queries))
	for _, r := range results {
		if r != nil {
			responses = append(responses, *r)
		}
	}

	e.logger.WithContext(ctx).DebugWithFields("specialist batch complete",
		logging.Field("queries", len(queries)),
		logging.Field("responses", len(responses)),
	)
	return responses
}

type outcome struct {
	resp *models.CrossAgentResponse
	err  error
}

func (e *Executor) executeOne(ctx context.Context, q models.CrossAgentQuery) (*models.CrossAgentResponse, error) {
	ctx, span := e.tracer.Start(ctx, "cognitive.executor.query",
		trace.WithAttributes(
			attribute.String("agent", string(q.TargetAgent)),
			attribute.String("priority", string(q.Priority)),
		),
	)
	defer span.End()

	qctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := e.now()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("specialist panicked: %v", r)}
			}
		}()
		resp, err := e.specialist.Ask(qctx, q)
		done <- outcome{resp: resp, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-qctx.Done():
		out = outcome{err: qctx.Err()}
	}

	if out.err == nil && out.resp == nil {
		out.err = errors.New("specialist returned no response")
	}
	if out.err != nil {
		failure := &models.SpecialistQueryFailure{
			Agent:    q.TargetAgent,
			Question: q.Question,
			Elapsed:  e.now().Sub(start),
			TimedOut: errors.Is(out.err, context.DeadlineExceeded),
			Err:      out.err,
		}
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
		return nil, failure
	}

	resp := normalize(*out.resp, q, e.now)
	span.SetAttributes(attribute.Float64("confidence", resp.Confidence))
	return &resp, nil
}

func (e *Executor) absorb(ctx context.Context, err error) {
	var failure *models.SpecialistQueryFailure
	if !errors.As(err, &failure) {
		failure = &models.SpecialistQueryFailure{Err: err}
	}
	e.logger.WithContext(ctx).WarnWithFields("specialist query dropped",
		logging.Field("agent", failure.Agent),
		logging.Field("timed_out", failure.TimedOut),
		logging.Field("elapsed", failure.Elapsed),
		logging.Field("error", failure.Error()),
	)
	if e.onFailure != nil {
		e.onFailure(failure)
	}
}

// normalize fills fields a specialist left empty and clamps confidence into
// [0,1].
func normalize(resp models.CrossAgentResponse, q models.CrossAgentQuery, now func() time.Time) models.CrossAgentResponse {
	if resp.AgentType == "" {
		resp.AgentType = q.TargetAgent
	}
	if resp.Question == "" {
		resp.Question = q.Question
	}
	if resp.Timestamp.IsZero() {
		resp.Timestamp = now()
	}
	switch {
	case math.IsNaN(resp.Confidence) || resp.Confidence < 0:
		resp.Confidence = 0
	case resp.Confidence > 1:
		resp.Confidence = 1
	}
	return resp
}
