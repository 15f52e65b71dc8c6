package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentEventValidate(t *testing.T) {
	base := func() AgentEvent {
		return AgentEvent{
			AgentType: AgentSafety,
			EventType: "safety_incident",
			Entity:    EntityRef{ID: "sub-1", Type: "subcontractor", Name: "Acme Subcontractor"},
			Timestamp: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		}
	}

	tests := []struct {
		name      string
		mutate    func(*AgentEvent)
		wantField string
	}{
		{name: "valid event", mutate: func(*AgentEvent) {}},
		{name: "missing agent type", mutate: func(e *AgentEvent) { e.AgentType = "" }, wantField: "agentType"},
		{name: "unknown agent type", mutate: func(e *AgentEvent) { e.AgentType = "weather" }, wantField: "agentType"},
		{name: "missing event type", mutate: func(e *AgentEvent) { e.EventType = "  " }, wantField: "eventType"},
		{name: "missing entity id", mutate: func(e *AgentEvent) { e.Entity.ID = "" }, wantField: "entity.id"},
		{name: "missing timestamp", mutate: func(e *AgentEvent) { e.Timestamp = time.Time{} }, wantField: "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := base()
			tt.mutate(&event)
			err := event.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsInvalidEvent(err))
			var invalid *InvalidEventError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.wantField, invalid.Field)
		})
	}
}

func TestRiskLevelOrderingAndEscalation(t *testing.T) {
	assert.True(t, RiskSystemic.AtLeast(RiskCritical))
	assert.True(t, RiskHigh.AtLeast(RiskHigh))
	assert.False(t, RiskMedium.AtLeast(RiskHigh))

	assert.Equal(t, RiskCritical, RiskHigh.Escalate(1))
	assert.Equal(t, RiskSystemic, RiskCritical.Escalate(5))
	assert.Equal(t, RiskLow, RiskMedium.Escalate(-3))
}

func TestRiskLevelJSONUsesNames(t *testing.T) {
	data, err := json.Marshal(struct {
		Level RiskLevel `json:"level"`
	}{Level: RiskCritical})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"critical"}`, string(data))

	var decoded struct {
		Level RiskLevel `json:"level"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"level":"SYSTEMIC"}`), &decoded))
	assert.Equal(t, RiskSystemic, decoded.Level)

	assert.Error(t, json.Unmarshal([]byte(`{"level":"apocalyptic"}`), &decoded))
}

func TestDetectedPatternDaysSpanned(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{name: "same instant", end: start, want: 0},
		{name: "exact days", end: start.Add(10 * 24 * time.Hour), want: 10},
		{name: "partial day rounds up", end: start.Add(9*24*time.Hour + time.Hour), want: 10},
		{name: "under a day", end: start.Add(2 * time.Hour), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DetectedPattern{Timespan: TimeWindow{Start: start, End: tt.end}}
			assert.Equal(t, tt.want, p.DaysSpanned())
		})
	}
}

func TestDetectedPatternValidate(t *testing.T) {
	valid := DetectedPattern{
		Frequency:        3,
		Confidence:       0.6,
		AffectedEntities: []EntityRef{{ID: "sub-1"}},
	}
	assert.NoError(t, valid.Validate())

	zeroFreq := valid
	zeroFreq.Frequency = 0
	assert.True(t, IsValidationError(zeroFreq.Validate()))

	badConf := valid
	badConf.Confidence = 1.2
	assert.Error(t, badConf.Validate())

	noEntities := valid
	noEntities.AffectedEntities = nil
	assert.Error(t, noEntities.Validate())
}

func TestPayloadAccessors(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{
		"severity": "High",
		"amount": 1200,
		"relatedEntities": [
			{"id": "proj-9", "type": "project", "name": "Riverside"},
			{"type": "project"}
		]
	}`), &p))

	assert.Equal(t, "High", p.String("severity"))
	amount, ok := p.Float("amount")
	assert.True(t, ok)
	assert.Equal(t, 1200.0, amount)

	_, ok = p.Float("missing")
	assert.False(t, ok)

	refs := p.Entities("relatedEntities")
	require.Len(t, refs, 1)
	assert.Equal(t, "Riverside", refs[0].Name)
}

func TestTimeWindowContains(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	w := TimeWindow{Start: start, End: start.Add(24 * time.Hour)}

	assert.True(t, w.Contains(start))
	assert.True(t, w.Contains(start.Add(time.Hour)))
	assert.False(t, w.Contains(start.Add(-time.Second)))
	assert.False(t, w.Contains(start.Add(25*time.Hour)))
	assert.True(t, TimeWindow{}.Contains(start))
}
