package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexbuild/cortex/internal/api"
	"github.com/cortexbuild/cortex/internal/cognitive"
	"github.com/cortexbuild/cortex/internal/cognitive/service"
	"github.com/cortexbuild/cortex/internal/cognitive/specialist"
	"github.com/cortexbuild/cortex/internal/models"
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

func newService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	p := cognitive.New(specialist.NewSimulated(nil), cognitive.DefaultConfig())
	svc := service.New(p, service.Config{}, opts...)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func patternInput(t *testing.T) json.RawMessage {
	return mustJSON(t, map[string]interface{}{
		"tenantId": "t1",
		"event":    incident("c", t0.Add(10*24*time.Hour)),
		"history": models.HistoricalContext{Events: []models.AgentEvent{
			incident("a", t0),
			incident("b", t0.Add(5*24*time.Hour)),
		}},
	})
}

func TestProcessEventTool(t *testing.T) {
	tool := NewProcessEventTool(newService(t))

	out, err := tool.Execute(context.Background(), patternInput(t))
	require.NoError(t, err)

	resp, ok := out.(api.ProcessEventResponse)
	require.True(t, ok)
	assert.True(t, resp.PatternDetected)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "t1", resp.Result.Pattern.TenantID)
	assert.NotEmpty(t, resp.Result.Actions.ImmediateActions)
}

func TestProcessEventToolRejectsInvalidEvent(t *testing.T) {
	tool := NewProcessEventTool(newService(t))

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"event": {"agentType": "safety"}}`))
	require.Error(t, err)
	assert.True(t, models.IsInvalidEvent(err))

	_, err = tool.Execute(context.Background(), json.RawMessage(`not json`))
	assert.Error(t, err)
}

func TestDetectPatternToolPlansWithoutExecuting(t *testing.T) {
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "cortex.db"))
	require.NoError(t, err)
	svc := newService(t, service.WithStore(st))
	tool := NewDetectPatternTool(svc)

	out, err := tool.Execute(context.Background(), patternInput(t))
	require.NoError(t, err)

	res := out.(DetectPatternOutput)
	assert.True(t, res.PatternDetected)
	require.NotNil(t, res.Pattern)
	assert.Equal(t, models.PatternSafetyViolation, res.Pattern.PatternType)
	assert.NotEmpty(t, res.PlannedQueries)
	assert.LessOrEqual(t, len(res.PlannedQueries), svc.Pipeline().Config().MaxQueries)

	history, err := svc.History(context.Background(), "t1", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, history.Events, "detect_pattern must not store anything")
}

func TestDetectPatternToolWithoutStore(t *testing.T) {
	tool := NewDetectPatternTool(newService(t))

	out, err := tool.Execute(context.Background(), mustJSON(t, map[string]interface{}{
		"event": incident("a", t0),
	}))
	require.NoError(t, err)
	assert.False(t, out.(DetectPatternOutput).PatternDetected)
}

func TestHistoryTool(t *testing.T) {
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "cortex.db"))
	require.NoError(t, err)
	svc := newService(t, service.WithStore(st))

	now := time.Now().UTC()
	_, err = svc.Process(context.Background(), service.Request{TenantID: "t1", Event: incident("a", now.Add(-time.Hour))})
	require.NoError(t, err)

	tool := NewHistoryTool(svc)
	out, err := tool.Execute(context.Background(), json.RawMessage(`{"tenantId": "t1"}`))
	require.NoError(t, err)

	res := out.(HistoryOutput)
	assert.Equal(t, 1, res.EventCount)
	assert.Equal(t, 1, res.EventsByAgent[models.AgentSafety])

	_, err = tool.Execute(context.Background(), json.RawMessage(`{}`))
	assert.Error(t, err)
}
