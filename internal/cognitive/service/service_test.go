package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexbuild/cortex/internal/cognitive"
	"github.com/cortexbuild/cortex/internal/cognitive/specialist"
	"github.com/cortexbuild/cortex/internal/models"
	"github.com/cortexbuild/cortex/internal/notify"
	"github.com/cortexbuild/cortex/internal/store"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func incident(id string, at time.Time) models.AgentEvent {
	return models.AgentEvent{
		ID:        id,
		AgentType: models.AgentSafety,
		EventType: "safety_incident",
		Entity:    models.EntityRef{ID: "sub-acme", Type: "subcontractor", Name: "Acme Subcontractor"},
		Timestamp: at,
		Payload:   models.Payload{"severity": "medium"},
	}
}

type captureNotifier struct {
	mu    sync.Mutex
	notes []notify.Notification
	err   error
}

func (c *captureNotifier) Notify(_ context.Context, n []notify.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, n...)
	return c.err
}

func (c *captureNotifier) Close() error { return nil }

type failingStore struct{}

var _ store.Store = failingStore{}

func (failingStore) AppendEvent(context.Context, models.AgentEvent) error {
	return errors.New("disk full")
}

func (failingStore) InsertPattern(context.Context, models.DetectedPattern) error {
	return errors.New("disk full")
}

func (failingStore) InsertHypothesis(context.Context, models.RootCauseHypothesis) error {
	return errors.New("disk full")
}

func (failingStore) InsertAction(context.Context, models.StrategicAction) error {
	return errors.New("disk full")
}

func (failingStore) LoadHistory(context.Context, string, models.TimeWindow) (models.HistoricalContext, error) {
	return models.HistoricalContext{}, errors.New("disk full")
}

func (failingStore) Close() error { return nil }

func newPipeline() *cognitive.Pipeline {
	return cognitive.New(specialist.NewSimulated(nil), cognitive.DefaultConfig())
}

func openStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "cortex.db"))
	require.NoError(t, err)
	return s
}

func TestProcessBuildsHistoryFromStore(t *testing.T) {
	st := openStore(t)
	notes := &captureNotifier{}
	svc := New(newPipeline(), Config{
		Recipients: []notify.Recipient{
			{Channel: "email", Address: "pm@example.com", MinRiskLevel: models.RiskHigh},
			{Channel: "sms", Address: "+440000", MinRiskLevel: models.RiskCritical},
		},
	}, WithStore(st), WithNotifier(notes))
	defer svc.Close()
	ctx := context.Background()

	for i, at := range []time.Time{t0, t0.Add(5 * 24 * time.Hour)} {
		out, err := svc.Process(ctx, Request{TenantID: "tenant-1", Event: incident(string(rune('a'+i)), at)})
		require.NoError(t, err)
		assert.False(t, out.PatternDetected())
	}

	out, err := svc.Process(ctx, Request{TenantID: "tenant-1", Event: incident("c", t0.Add(10*24*time.Hour))})
	require.NoError(t, err)
	require.True(t, out.PatternDetected())
	assert.Equal(t, 3, out.Result.Pattern.Frequency)
	assert.Equal(t, "tenant-1", out.Result.Pattern.TenantID)

	require.Len(t, out.Notifications, 1)
	assert.Equal(t, "pm@example.com", out.Notifications[0].Recipient)
	assert.Equal(t, notes.notes, out.Notifications)
	assert.Regexp(t, `^\[HIGH\] safety_violation detected for Acme Subcontractor: `, out.Notifications[0].Message)

	history, err := svc.History(ctx, "tenant-1", t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, history.Events, 3)
	assert.Len(t, history.ActivePatterns, 1)
	require.Len(t, history.Hypotheses, 1)
	assert.Equal(t, out.Result.Hypothesis.ID, history.Hypotheses[0].ID)

	actions, err := st.Actions(ctx, out.Result.Hypothesis.ID)
	require.NoError(t, err)
	assert.Len(t, actions, out.Result.Actions.Len())
}

func TestProcessUsesSuppliedHistory(t *testing.T) {
	svc := New(newPipeline(), Config{})
	history := &models.HistoricalContext{Events: []models.AgentEvent{
		incident("a", t0),
		incident("b", t0.Add(24*time.Hour)),
	}}

	out, err := svc.Process(context.Background(), Request{Event: incident("c", t0.Add(48*time.Hour)), History: history})
	require.NoError(t, err)
	assert.True(t, out.PatternDetected())
	assert.Empty(t, out.Notifications)
}

func TestProcessDropsDuplicateDeliveries(t *testing.T) {
	metrics := NewMetrics(nil)
	svc := New(newPipeline(), Config{}, WithMetrics(metrics))
	history := &models.HistoricalContext{Events: []models.AgentEvent{
		incident("a", t0),
		incident("b", t0.Add(24*time.Hour)),
	}}
	req := Request{TenantID: "t1", Event: incident("c", t0.Add(48*time.Hour)), History: history}

	first, err := svc.Process(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := svc.Process(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Same(t, first.Result, second.Result)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Duplicates))

	req.TenantID = "t2"
	third, err := svc.Process(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, third.Duplicate)
}

func TestConcurrentDeliveriesRunOnce(t *testing.T) {
	st := openStore(t)
	notes := &captureNotifier{}
	metrics := NewMetrics(nil)

	sim := specialist.NewSimulated(nil)
	slow := specialist.Func(func(ctx context.Context, q models.CrossAgentQuery) (*models.CrossAgentResponse, error) {
		time.Sleep(20 * time.Millisecond)
		return sim.Ask(ctx, q)
	})
	svc := New(cognitive.New(slow, cognitive.DefaultConfig()), Config{
		Recipients: []notify.Recipient{{Channel: "email", Address: "pm@example.com", MinRiskLevel: models.RiskLow}},
	}, WithStore(st), WithNotifier(notes), WithMetrics(metrics))
	defer svc.Close()

	history := &models.HistoricalContext{Events: []models.AgentEvent{
		incident("a", t0),
		incident("b", t0.Add(24*time.Hour)),
	}}
	req := Request{TenantID: "t1", Event: incident("c", t0.Add(48*time.Hour)), History: history}

	const deliveries = 12
	outcomes := make([]*Outcome, deliveries)
	var wg sync.WaitGroup
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := svc.Process(context.Background(), req)
			assert.NoError(t, err)
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	fresh := 0
	for _, out := range outcomes {
		require.NotNil(t, out)
		require.True(t, out.PatternDetected())
		if !out.Duplicate {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, float64(deliveries-1), testutil.ToFloat64(metrics.Duplicates))

	notes.mu.Lock()
	assert.Len(t, notes.notes, 1)
	notes.mu.Unlock()

	stored, err := svc.History(context.Background(), "t1", time.Time{})
	require.NoError(t, err)
	assert.Len(t, stored.Hypotheses, 1)
	assert.Len(t, stored.Events, 1)
}

func TestEventsWithoutIDAreNeverDuplicates(t *testing.T) {
	metrics := NewMetrics(nil)
	svc := New(newPipeline(), Config{}, WithMetrics(metrics))
	req := Request{TenantID: "t1", Event: incident("", t0)}

	for i := 0; i < 2; i++ {
		out, err := svc.Process(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, out.Duplicate)
	}
	assert.Zero(t, testutil.ToFloat64(metrics.Duplicates))
}

func TestProcessAbsorbsCollaboratorFailures(t *testing.T) {
	metrics := NewMetrics(nil)
	svc := New(newPipeline(), Config{
		Recipients: []notify.Recipient{{Channel: "email", Address: "pm@example.com"}},
	}, WithStore(failingStore{}), WithNotifier(&captureNotifier{err: errors.New("smtp down")}), WithMetrics(metrics))

	history := &models.HistoricalContext{Events: []models.AgentEvent{
		incident("a", t0),
		incident("b", t0.Add(24*time.Hour)),
	}}
	out, err := svc.Process(context.Background(), Request{Event: incident("c", t0.Add(48*time.Hour)), History: history})
	require.NoError(t, err)
	require.True(t, out.PatternDetected())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CollaboratorFailures.WithLabelValues("store", "append_event")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CollaboratorFailures.WithLabelValues("store", "insert_pattern")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CollaboratorFailures.WithLabelValues("notifier", "notify")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.NotificationsSent))
}

func TestProcessContinuesWhenHistoryLoadFails(t *testing.T) {
	metrics := NewMetrics(nil)
	svc := New(newPipeline(), Config{}, WithStore(failingStore{}), WithMetrics(metrics))

	out, err := svc.Process(context.Background(), Request{Event: incident("a", t0)})
	require.NoError(t, err)
	assert.False(t, out.PatternDetected())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CollaboratorFailures.WithLabelValues("store", "load_history")))
}

func TestProcessRejectsInvalidEvent(t *testing.T) {
	svc := New(newPipeline(), Config{})
	event := incident("a", t0)
	event.AgentType = "marketing"

	out, err := svc.Process(context.Background(), Request{Event: event})
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, models.IsInvalidEvent(err))
}

func TestSetPipelineSwapsConfiguration(t *testing.T) {
	svc := New(newPipeline(), Config{})
	cfg := cognitive.DefaultConfig()
	cfg.Patterns = map[models.PatternType]cognitive.PatternOverride{
		models.PatternSafetyViolation: {Threshold: 1},
	}
	svc.SetPipeline(cognitive.New(specialist.NewSimulated(nil), cfg))

	out, err := svc.Process(context.Background(), Request{Event: incident("a", t0)})
	require.NoError(t, err)
	assert.True(t, out.PatternDetected())
	assert.Equal(t, 1, svc.Pipeline().Config().Patterns[models.PatternSafetyViolation].Threshold)
}

func TestHistoryWithoutStore(t *testing.T) {
	svc := New(newPipeline(), Config{})
	_, err := svc.History(context.Background(), "t1", t0)
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestFormatMessage(t *testing.T) {
	result := &models.PipelineResult{
		Pattern: models.DetectedPattern{
			PatternType:      models.PatternCostOverrun,
			RiskLevel:        models.RiskCritical,
			AffectedEntities: []models.EntityRef{{ID: "pkg-7", Name: "Package 7"}},
		},
		Hypothesis: models.RootCauseHypothesis{Hypothesis: "Costs are climbing."},
	}
	assert.Equal(t, "[CRITICAL] cost_overrun detected for Package 7: Costs are climbing.", FormatMessage(result))
}
