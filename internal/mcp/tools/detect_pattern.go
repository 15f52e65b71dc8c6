package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cortexbuild/cortex/internal/cognitive/service"
	"github.com/cortexbuild/cortex/internal/models"
)

// DetectPatternTool implements the detect_pattern MCP tool. It runs
// detection and planning only: no specialist is asked and nothing is stored.
type DetectPatternTool struct {
	service Service
}

// NewDetectPatternTool creates the tool
func NewDetectPatternTool(svc Service) *DetectPatternTool {
	return &DetectPatternTool{service: svc}
}

// DetectPatternInput is the tool input
type DetectPatternInput struct {
	TenantID string                    `json:"tenantId"`
	Event    models.AgentEvent         `json:"event"`
	History  *models.HistoricalContext `json:"history,omitempty"`
}

// DetectPatternOutput lists the pattern and the questions that would be asked
type DetectPatternOutput struct {
	PatternDetected bool                     `json:"patternDetected"`
	Pattern         *models.DetectedPattern  `json:"pattern,omitempty"`
	PlannedQueries  []models.CrossAgentQuery `json:"plannedQueries,omitempty"`
}

// Execute runs the tool
func (t *DetectPatternTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in DetectPatternInput
	if err := decode(input, &in); err != nil {
		return nil, err
	}
	if in.Event.TenantID == "" {
		in.Event.TenantID = in.TenantID
	}

	p := t.service.Pipeline()

	var history models.HistoricalContext
	if in.History != nil {
		history = *in.History
	} else {
		window := p.HistoryWindow(in.Event.Timestamp)
		h, err := t.service.History(ctx, in.Event.TenantID, window.Start)
		if err != nil && !errors.Is(err, service.ErrNoStore) {
			return nil, err
		}
		history = h
	}

	pattern, err := p.Detect(in.Event, history)
	if err != nil {
		return nil, err
	}
	if pattern == nil {
		return DetectPatternOutput{}, nil
	}
	return DetectPatternOutput{
		PatternDetected: true,
		Pattern:         pattern,
		PlannedQueries:  p.Plan(*pattern),
	}, nil
}
