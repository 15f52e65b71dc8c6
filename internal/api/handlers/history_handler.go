package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cortexbuild/cortex/internal/api"
	"github.com/cortexbuild/cortex/internal/cognitive/service"
	"github.com/cortexbuild/cortex/internal/logging"
)

// DefaultHistoryLookback is used when the since parameter is omitted
const DefaultHistoryLookback = 30 * 24 * time.Hour

// HistoryHandler handles GET /v1/cognitive/history
type HistoryHandler struct {
	service EventService
	logger  *logging.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewHistoryHandler creates a new handler
func NewHistoryHandler(svc EventService, logger *logging.Logger, tracer trace.Tracer) *HistoryHandler {
	return &HistoryHandler{
		service: svc,
		logger:  logger,
		tracer:  tracer,
		now:     time.Now,
	}
}

// Handle returns the stored events, active patterns and hypotheses of one
// tenant. Query parameters: tenant (required), since (optional, Unix
// seconds, RFC3339 or human-readable such as "7 days ago").
func (h *HistoryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "cognitive.History")
		defer span.End()
	}

	query := r.URL.Query()
	tenant := query.Get("tenant")
	if tenant == "" {
		api.WriteAPIError(w, api.NewInvalidRequestError("tenant is required"))
		return
	}

	now := h.now()
	since, err := api.ParseOptionalTime(query.Get("since"), "since", now, now.Add(-DefaultHistoryLookback))
	if err != nil {
		recordError(span, err)
		api.WriteAPIError(w, err)
		return
	}

	if span != nil {
		span.SetAttributes(
			attribute.String("tenant_id", tenant),
			attribute.String("since", since.Format(time.RFC3339)),
		)
	}

	history, err := h.service.History(ctx, tenant, since)
	if err != nil {
		recordError(span, err)
		if errors.Is(err, service.ErrNoStore) {
			api.WriteAPIError(w, api.NewUnavailableError("history requires a configured store"))
			return
		}
		h.logger.Error("Loading history for %s failed: %v", tenant, err)
		api.WriteAPIError(w, err)
		return
	}

	_ = api.WriteSuccess(w, history)
}
