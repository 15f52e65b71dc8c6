package tools

import (
	"context"
	"encoding/json"

	"github.com/cortexbuild/cortex/internal/api"
)

// ProcessEventTool implements the process_event MCP tool
type ProcessEventTool struct {
	service Service
}

// NewProcessEventTool creates the tool
func NewProcessEventTool(svc Service) *ProcessEventTool {
	return &ProcessEventTool{service: svc}
}

// Execute runs the full analysis for one event. The result is persisted and
// notified exactly as if it had arrived over HTTP.
func (t *ProcessEventTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var req api.ProcessEventRequest
	if err := decode(input, &req); err != nil {
		return nil, err
	}

	outcome, err := t.service.Process(ctx, req.ServiceRequest())
	if err != nil {
		return nil, err
	}
	return api.NewProcessEventResponse(outcome), nil
}
