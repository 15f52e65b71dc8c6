package handlers

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/cortexbuild/cortex/internal/logging"
)

// RegisterHandlers registers all HTTP handlers on the given router
func RegisterHandlers(
	router *http.ServeMux,
	svc EventService,
	logger *logging.Logger,
	tracer trace.Tracer,
	withMethod func(string, http.HandlerFunc) http.HandlerFunc,
) {
	processHandler := NewProcessEventHandler(svc, logger, tracer)
	historyHandler := NewHistoryHandler(svc, logger, tracer)

	router.HandleFunc("/v1/cognitive/process-event", withMethod(http.MethodPost, processHandler.Handle))
	router.HandleFunc("/v1/cognitive/history", withMethod(http.MethodGet, historyHandler.Handle))

	logger.Info("Registered /v1/cognitive endpoints")
}
