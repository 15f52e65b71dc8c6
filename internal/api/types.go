package api

import (
	"github.com/cortexbuild/cortex/internal/cognitive/service"
	"github.com/cortexbuild/cortex/internal/models"
	"github.com/cortexbuild/cortex/internal/notify"
)

// ProcessEventRequest is the body of POST /v1/cognitive/process-event and
// the arguments of the process_event MCP tool.
type ProcessEventRequest struct {
	TenantID string            `json:"tenantId"`
	Event    models.AgentEvent `json:"event"`

	// History replaces the stored history when present
	History *models.HistoricalContext `json:"history,omitempty"`
}

// ServiceRequest converts the wire request.
func (r ProcessEventRequest) ServiceRequest() service.Request {
	return service.Request{TenantID: r.TenantID, Event: r.Event, History: r.History}
}

// ProcessEventResponse reports the outcome of one event.
type ProcessEventResponse struct {
	PatternDetected bool                   `json:"patternDetected"`
	Duplicate       bool                   `json:"duplicate,omitempty"`
	Result          *models.PipelineResult `json:"result,omitempty"`
	Notifications   []notify.Notification  `json:"notifications,omitempty"`
}

// NewProcessEventResponse converts a service outcome.
func NewProcessEventResponse(o *service.Outcome) ProcessEventResponse {
	return ProcessEventResponse{
		PatternDetected: o.PatternDetected(),
		Duplicate:       o.Duplicate,
		Result:          o.Result,
		Notifications:   o.Notifications,
	}
}
