package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cortexbuild/cortex/internal/api"
	"github.com/cortexbuild/cortex/internal/models"
)

// defaultLookback is used when since is omitted
const defaultLookback = 30 * 24 * time.Hour

// HistoryTool implements the tenant_history MCP tool
type HistoryTool struct {
	service Service
	now     func() time.Time
}

// NewHistoryTool creates the tool
func NewHistoryTool(svc Service) *HistoryTool {
	return &HistoryTool{service: svc, now: time.Now}
}

// HistoryInput is the tool input
type HistoryInput struct {
	TenantID string `json:"tenantId"`

	// Since accepts Unix seconds, RFC3339 or phrases such as "2 weeks ago"
	Since string `json:"since,omitempty"`
}

// HistoryOutput summarises the stored history of a tenant
type HistoryOutput struct {
	TenantID       string                       `json:"tenantId"`
	Since          time.Time                    `json:"since"`
	EventCount     int                          `json:"eventCount"`
	EventsByAgent  map[models.AgentType]int     `json:"eventsByAgent"`
	ActivePatterns []models.DetectedPattern     `json:"activePatterns"`
	Hypotheses     []models.RootCauseHypothesis `json:"hypotheses"`
}

// Execute runs the tool
func (t *HistoryTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in HistoryInput
	if err := decode(input, &in); err != nil {
		return nil, err
	}
	if in.TenantID == "" {
		return nil, fmt.Errorf("tenantId is required")
	}

	now := t.now()
	since, err := api.ParseOptionalTime(in.Since, "since", now, now.Add(-defaultLookback))
	if err != nil {
		return nil, err
	}

	history, err := t.service.History(ctx, in.TenantID, since)
	if err != nil {
		return nil, err
	}

	out := HistoryOutput{
		TenantID:       in.TenantID,
		Since:          since,
		EventCount:     len(history.Events),
		EventsByAgent:  make(map[models.AgentType]int),
		ActivePatterns: history.ActivePatterns,
		Hypotheses:     history.Hypotheses,
	}
	for _, e := range history.Events {
		out.EventsByAgent[e.AgentType]++
	}
	return out, nil
}
