package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cortexbuild/cortex/internal/api"
	"github.com/cortexbuild/cortex/internal/cognitive/service"
	"github.com/cortexbuild/cortex/internal/logging"
	"github.com/cortexbuild/cortex/internal/models"
)

// maxEventBodyBytes bounds a process-event request, history included
const maxEventBodyBytes = 4 << 20

// EventService is the part of the analysis service the HTTP layer needs.
type EventService interface {
	Process(ctx context.Context, req service.Request) (*service.Outcome, error)
	History(ctx context.Context, tenantID string, since time.Time) (models.HistoricalContext, error)
}

// ProcessEventHandler handles POST /v1/cognitive/process-event
type ProcessEventHandler struct {
	service EventService
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewProcessEventHandler creates a new handler
func NewProcessEventHandler(svc EventService, logger *logging.Logger, tracer trace.Tracer) *ProcessEventHandler {
	return &ProcessEventHandler{
		service: svc,
		logger:  logger,
		tracer:  tracer,
	}
}

// Handle decodes one agent event, runs it through the service and returns
// the detected pattern with its hypothesis and action plan.
func (h *ProcessEventHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "cognitive.ProcessEvent")
		defer span.End()
	}

	var req api.ProcessEventRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		recordError(span, err)
		api.WriteError(w, http.StatusBadRequest, string(api.ErrorCodeInvalidRequest), "invalid JSON body: "+err.Error())
		return
	}

	if span != nil {
		span.SetAttributes(
			attribute.String("tenant_id", req.TenantID),
			attribute.String("event_id", req.Event.ID),
			attribute.String("agent_type", string(req.Event.AgentType)),
			attribute.String("event_type", req.Event.EventType),
		)
	}

	outcome, err := h.service.Process(ctx, req.ServiceRequest())
	if err != nil {
		recordError(span, err)
		apiErr := api.AsAPIError(err)
		if apiErr.StatusCode >= http.StatusInternalServerError {
			h.logger.Error("Processing event %q failed: %v", req.Event.ID, err)
		}
		api.WriteAPIError(w, apiErr)
		return
	}

	if span != nil {
		span.SetAttributes(
			attribute.Bool("pattern_detected", outcome.PatternDetected()),
			attribute.Bool("duplicate", outcome.Duplicate),
		)
	}

	_ = api.WriteSuccess(w, api.NewProcessEventResponse(outcome))
}

func recordError(span trace.Span, err error) {
	if span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
