// Package service connects the analysis pipeline to its collaborators: it
// loads history, persists results, notifies subscribers and drops duplicate
// deliveries.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/cortexbuild/cortex/internal/cognitive"
	"github.com/cortexbuild/cortex/internal/logging"
	"github.com/cortexbuild/cortex/internal/models"
	"github.com/cortexbuild/cortex/internal/notify"
	"github.com/cortexbuild/cortex/internal/store"
)

const (
	// DefaultDedupSize bounds the number of remembered event IDs
	DefaultDedupSize = 4096

	// DefaultDedupTTL is how long a processed event ID is remembered
	DefaultDedupTTL = 10 * time.Minute
)

// ErrNoStore is returned by history queries when no store is configured.
var ErrNoStore = errors.New("no store configured")

// Config configures the service.
type Config struct {
	// Recipients receive notifications for patterns at or above their level
	Recipients []notify.Recipient `yaml:"recipients" json:"recipients"`

	// DedupSize and DedupTTL bound the duplicate-delivery guard
	DedupSize int           `yaml:"dedupSize" json:"dedupSize"`
	DedupTTL  time.Duration `yaml:"dedupTTL" json:"dedupTTL"`
}

// Request is one event submitted for analysis.
type Request struct {
	TenantID string
	Event    models.AgentEvent

	// History overrides the stored history when set
	History *models.HistoricalContext
}

// Outcome is the result of processing one request.
type Outcome struct {
	// Result is nil when no pattern was detected
	Result *models.PipelineResult

	// Duplicate is set when the event ID was already processed
	Duplicate bool

	Notifications []notify.Notification
}

// PatternDetected reports whether the outcome carries a result.
func (o *Outcome) PatternDetected() bool {
	return o != nil && o.Result != nil
}

// Service runs the pipeline for incoming events.
type Service struct {
	pipeline   atomic.Pointer[cognitive.Pipeline]
	recipients atomic.Pointer[[]notify.Recipient]
	store      store.Store
	notifier   notify.Notifier
	seen       *expirable.LRU[string, *Outcome]
	inflight   singleflight.Group
	metrics    *Metrics
	now        func() time.Time
	logger     *logging.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithStore sets the persistence collaborator.
func WithStore(s store.Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithNotifier sets the notification collaborator.
func WithNotifier(n notify.Notifier) Option {
	return func(svc *Service) { svc.notifier = n }
}

// WithMetrics records service metrics.
func WithMetrics(m *Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

// WithClock overrides the clock used for history queries.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// New builds a Service around p.
func New(p *cognitive.Pipeline, cfg Config, opts ...Option) *Service {
	size := cfg.DedupSize
	if size <= 0 {
		size = DefaultDedupSize
	}
	ttl := cfg.DedupTTL
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}

	svc := &Service{
		notifier: notify.Noop{},
		seen:     expirable.NewLRU[string, *Outcome](size, nil, ttl),
		metrics:  NewMetrics(nil),
		now:      time.Now,
		logger:   logging.GetLogger("cognitive.service"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.pipeline.Store(p)
	svc.SetRecipients(cfg.Recipients)
	return svc
}

// Pipeline returns the pipeline currently in use.
func (s *Service) Pipeline() *cognitive.Pipeline {
	return s.pipeline.Load()
}

// SetPipeline swaps the pipeline. Requests already running finish on the
// previous one.
func (s *Service) SetPipeline(p *cognitive.Pipeline) {
	s.pipeline.Store(p)
}

// SetRecipients replaces the notification subscribers.
func (s *Service) SetRecipients(r []notify.Recipient) {
	cp := append([]notify.Recipient(nil), r...)
	s.recipients.Store(&cp)
}

// Process analyses one event. Only invalid events fail the call; store and
// notifier errors are logged and counted.
func (s *Service) Process(ctx context.Context, req Request) (*Outcome, error) {
	event := req.Event
	if event.TenantID == "" {
		event.TenantID = req.TenantID
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger.WithContext(ctx).WithFields(
		logging.Field("tenant", event.TenantID),
		logging.Field("event_id", event.ID),
	)

	key := dedupKey(event)
	if key == "" {
		return s.run(ctx, event, req.History, logger)
	}
	if prev, ok := s.seen.Get(key); ok {
		return s.duplicate(prev, logger), nil
	}

	// Concurrent deliveries of one event share a single run. Only the caller
	// whose closure executes sees fresh set.
	fresh := false
	v, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		if prev, ok := s.seen.Get(key); ok {
			return prev, nil
		}
		fresh = true
		outcome, err := s.run(ctx, event, req.History, logger)
		if err != nil {
			return nil, err
		}
		s.seen.Add(key, outcome)
		return outcome, nil
	})
	if err != nil {
		return nil, err
	}
	outcome := v.(*Outcome)
	if !fresh {
		return s.duplicate(outcome, logger), nil
	}
	return outcome, nil
}

func (s *Service) run(ctx context.Context, event models.AgentEvent, supplied *models.HistoricalContext, logger *logging.Logger) (*Outcome, error) {
	p := s.Pipeline()
	history := s.history(ctx, p, event, supplied, logger)

	result, err := p.Process(ctx, event, history)
	if err != nil {
		return nil, err
	}

	s.persist(ctx, event, result, logger)

	outcome := &Outcome{Result: result}
	if result != nil {
		outcome.Notifications = s.notifications(result)
		s.notify(ctx, outcome.Notifications, logger)
	}
	return outcome, nil
}

func (s *Service) duplicate(prev *Outcome, logger *logging.Logger) *Outcome {
	s.metrics.Duplicates.Inc()
	logger.Debug("duplicate delivery ignored")
	return &Outcome{Result: prev.Result, Duplicate: true}
}

func (s *Service) history(ctx context.Context, p *cognitive.Pipeline, event models.AgentEvent, supplied *models.HistoricalContext, logger *logging.Logger) models.HistoricalContext {
	if supplied != nil {
		return *supplied
	}
	if s.store == nil {
		return models.HistoricalContext{TenantID: event.TenantID}
	}
	h, err := s.store.LoadHistory(ctx, event.TenantID, p.HistoryWindow(event.Timestamp))
	if err != nil {
		s.failed("store", "load_history")
		logger.Warn("failed to load history, analysing without it: %v", err)
		return models.HistoricalContext{TenantID: event.TenantID}
	}
	return h
}

func (s *Service) persist(ctx context.Context, event models.AgentEvent, result *models.PipelineResult, logger *logging.Logger) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendEvent(ctx, event); err != nil {
		s.failed("store", "append_event")
		logger.Warn("failed to record event: %v", err)
	}
	if result == nil {
		return
	}
	if err := s.store.InsertPattern(ctx, result.Pattern); err != nil {
		s.failed("store", "insert_pattern")
		logger.Warn("failed to record pattern %s: %v", result.Pattern.ID, err)
	}
	if err := s.store.InsertHypothesis(ctx, result.Hypothesis); err != nil {
		s.failed("store", "insert_hypothesis")
		logger.Warn("failed to record hypothesis %s: %v", result.Hypothesis.ID, err)
	}
	for _, a := range result.Actions.All() {
		if err := s.store.InsertAction(ctx, a); err != nil {
			s.failed("store", "insert_action")
			logger.Warn("failed to record action %s: %v", a.ID, err)
		}
	}
}

func (s *Service) notifications(result *models.PipelineResult) []notify.Notification {
	recipients := *s.recipients.Load()
	if len(recipients) == 0 {
		return nil
	}
	msg := FormatMessage(result)
	var out []notify.Notification
	for _, r := range recipients {
		if !r.Wants(result.Pattern.RiskLevel) {
			continue
		}
		out = append(out, notify.Notification{Channel: r.Channel, Recipient: r.Address, Message: msg})
	}
	return out
}

func (s *Service) notify(ctx context.Context, notes []notify.Notification, logger *logging.Logger) {
	if len(notes) == 0 {
		return
	}
	if err := s.notifier.Notify(ctx, notes); err != nil {
		s.failed("notifier", "notify")
		logger.Warn("failed to send %d notifications: %v", len(notes), err)
		return
	}
	s.metrics.NotificationsSent.Add(float64(len(notes)))
}

// History returns the stored history of tenant since the given time.
func (s *Service) History(ctx context.Context, tenantID string, since time.Time) (models.HistoricalContext, error) {
	if s.store == nil {
		return models.HistoricalContext{}, ErrNoStore
	}
	h, err := s.store.LoadHistory(ctx, tenantID, models.TimeWindow{Start: since, End: s.now()})
	if err != nil {
		return h, fmt.Errorf("load history for %s: %w", tenantID, err)
	}
	return h, nil
}

// Close releases the collaborators.
func (s *Service) Close() error {
	var errs []error
	if err := s.notifier.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) failed(collaborator, op string) {
	s.metrics.CollaboratorFailures.WithLabelValues(collaborator, op).Inc()
}

// FormatMessage renders the notification text for a result:
// "[LEVEL] pattern_type detected for Entity: hypothesis".
func FormatMessage(result *models.PipelineResult) string {
	entity := "unknown entity"
	if e, ok := result.Pattern.PrimaryEntity(); ok {
		entity = e.DisplayName()
	}
	return fmt.Sprintf("[%s] %s detected for %s: %s",
		strings.ToUpper(result.Pattern.RiskLevel.String()),
		result.Pattern.PatternType,
		entity,
		result.Hypothesis.Hypothesis,
	)
}

func dedupKey(e models.AgentEvent) string {
	if e.ID == "" {
		return ""
	}
	return e.TenantID + "/" + e.ID
}
