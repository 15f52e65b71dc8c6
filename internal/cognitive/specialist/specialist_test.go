package specialist

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexbuild/cortex/internal/models"
)

func query(agent models.AgentType) models.CrossAgentQuery {
	return models.CrossAgentQuery{
		TargetAgent: agent,
		Question:    "Is Acme Subcontractor under schedule pressure?",
		Context: models.QueryContext{
			EntityID:    "sub-acme",
			EntityType:  "subcontractor",
			EntityName:  "Acme Subcontractor",
			PatternType: models.PatternSafetyViolation,
			Frequency:   3,
			RiskLevel:   models.RiskHigh,
		},
		Priority: models.PriorityUrgent,
	}
}

func TestSimulatedAnswersPerDomain(t *testing.T) {
	fixed := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	sim := NewSimulated(nil).WithClock(func() time.Time { return fixed })

	for _, agent := range models.AllAgentTypes {
		resp, err := sim.Ask(context.Background(), query(agent))
		require.NoError(t, err, agent)
		assert.Equal(t, agent, resp.AgentType)
		assert.Equal(t, fixed, resp.Timestamp)
		assert.Contains(t, resp.Answer, "Acme Subcontractor")
		assert.Greater(t, resp.Confidence, 0.0)
	}

	resp, err := sim.Ask(context.Background(), query(models.AgentFinancial))
	require.NoError(t, err)
	penalty, ok := resp.Data.Float("totalPenaltyRisk")
	assert.True(t, ok)
	assert.Equal(t, 3000.0, penalty)
	assert.Equal(t, "GBP", resp.Data.String("currency"))
}

func TestSimulatedDataIsCopiedPerResponse(t *testing.T) {
	sim := NewSimulated(nil)
	first, err := sim.Ask(context.Background(), query(models.AgentFinancial))
	require.NoError(t, err)
	first.Data["totalPenaltyRisk"] = 1.0

	second, err := sim.Ask(context.Background(), query(models.AgentFinancial))
	require.NoError(t, err)
	penalty, _ := second.Data.Float("totalPenaltyRisk")
	assert.Equal(t, 3000.0, penalty)
}

func TestSimulatedUnknownDomain(t *testing.T) {
	sim := NewSimulated(map[models.AgentType]Canned{})
	_, err := sim.Ask(context.Background(), query(models.AgentSafety))
	var unsupported *UnsupportedAgentError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, models.AgentSafety, unsupported.Agent)
}

func TestSimulatedHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimulated(nil).Ask(ctx, query(models.AgentSafety))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRouterDispatch(t *testing.T) {
	var called models.AgentType
	record := func(name models.AgentType) Specialist {
		return Func(func(ctx context.Context, q models.CrossAgentQuery) (*models.CrossAgentResponse, error) {
			called = name
			return &models.CrossAgentResponse{AgentType: q.TargetAgent}, nil
		})
	}

	router := NewRouter(record("fallback")).Handle(models.AgentFinancial, record(models.AgentFinancial))

	_, err := router.Ask(context.Background(), query(models.AgentFinancial))
	require.NoError(t, err)
	assert.Equal(t, models.AgentFinancial, called)

	_, err = router.Ask(context.Background(), query(models.AgentQuality))
	require.NoError(t, err)
	assert.Equal(t, models.AgentType("fallback"), called)

	_, err = NewRouter(nil).Ask(context.Background(), query(models.AgentQuality))
	var unsupported *UnsupportedAgentError
	assert.True(t, errors.As(err, &unsupported))
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "bare json", text: `{"answer":"14 days late","confidence":0.8,"data":{"delayDays":14}}`},
		{name: "fenced json", text: "```json\n{\"answer\":\"ok\",\"confidence\":0.5}\n```"},
		{name: "no json", text: "I cannot answer", wantErr: true},
		{name: "empty answer", text: `{"answer":"  ","confidence":0.5}`, wantErr: true},
		{name: "malformed", text: `{"answer": }`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ans, err := parseAnswer(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, ans.Answer)
		})
	}
}

func anthropicServer(t *testing.T, text string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var req map[string]interface{}
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "test-model", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":            "msg_test",
			"type":          "message",
			"role":          "assistant",
			"model":         "test-model",
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content":       []map[string]interface{}{{"type": "text", "text": text}},
			"usage":         map[string]interface{}{"input_tokens": 10, "output_tokens": 20},
		})
	}))
}

func TestAnthropicAsk(t *testing.T) {
	srv := anthropicServer(t, `{"answer":"Acme is 14 days late","confidence":0.9,"data":{"delayDays":14}}`, http.StatusOK)
	defer srv.Close()

	llm := NewAnthropic(LLMConfig{Model: "test-model", APIKey: "test", BaseURL: srv.URL, MaxRetries: 0})
	resp, err := llm.Ask(context.Background(), query(models.AgentProjectControls))
	require.NoError(t, err)

	assert.Equal(t, models.AgentProjectControls, resp.AgentType)
	assert.Equal(t, "Acme is 14 days late", resp.Answer)
	assert.Equal(t, 0.9, resp.Confidence)
	delay, ok := resp.Data.Float("delayDays")
	assert.True(t, ok)
	assert.Equal(t, 14.0, delay)
}

func TestAnthropicAskAPIError(t *testing.T) {
	srv := anthropicServer(t, "", http.StatusBadRequest)
	defer srv.Close()

	llm := NewAnthropic(LLMConfig{Model: "test-model", APIKey: "test", BaseURL: srv.URL, MaxRetries: 0})
	_, err := llm.Ask(context.Background(), query(models.AgentProjectControls))
	assert.Error(t, err)
}

func TestAnthropicAskUnparseableOutput(t *testing.T) {
	srv := anthropicServer(t, "I am not sure.", http.StatusOK)
	defer srv.Close()

	llm := NewAnthropic(LLMConfig{Model: "test-model", APIKey: "test", BaseURL: srv.URL, MaxRetries: 0})
	_, err := llm.Ask(context.Background(), query(models.AgentProjectControls))
	assert.Error(t, err)
}
