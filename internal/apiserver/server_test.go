package apiserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexbuild/cortex/internal/cognitive/service"
	"github.com/cortexbuild/cortex/internal/logging"
	"github.com/cortexbuild/cortex/internal/models"
)

type stubService struct {
	requests []service.Request
}

func (s *stubService) Process(_ context.Context, req service.Request) (*service.Outcome, error) {
	s.requests = append(s.requests, req)
	return &service.Outcome{}, nil
}

func (s *stubService) History(context.Context, string, time.Time) (models.HistoricalContext, error) {
	return models.HistoricalContext{}, nil
}

type notReady struct{}

func (notReady) IsReady() bool { return false }

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func TestHealthAndReady(t *testing.T) {
	h := New(Config{Port: 8080}).Handler()

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":true}`, rec.Body.String())

	h = New(Config{Port: 8080, Readiness: notReady{}}).Handler()
	rec = do(t, h, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCognitiveRoutes(t *testing.T) {
	svc := &stubService{}
	h := New(Config{Port: 8080, Service: svc}).Handler()

	body := `{"tenantId":"t1","event":{"agentType":"safety","eventType":"near_miss","entity":{"id":"site-1"},"timestamp":"2024-03-01T09:00:00Z"}}`
	rec := do(t, h, http.MethodPost, "/v1/cognitive/process-event", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"patternDetected":false}`, rec.Body.String())
	require.Len(t, svc.requests, 1)
	assert.Equal(t, "t1", svc.requests[0].TenantID)

	rec = do(t, h, http.MethodPut, "/v1/cognitive/process-event", body)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	assert.Contains(t, rec.Body.String(), "METHOD_NOT_ALLOWED")
}

type brokenService struct{}

func (brokenService) Process(context.Context, service.Request) (*service.Outcome, error) {
	return nil, errors.New("specialist pool exhausted")
}

func (brokenService) History(context.Context, string, time.Time) (models.HistoricalContext, error) {
	return models.HistoricalContext{}, errors.New("specialist pool exhausted")
}

func TestAccessLogReportsServerErrors(t *testing.T) {
	var out bytes.Buffer
	logging.SetOutput(&out, &out)
	t.Cleanup(logging.ResetOutput)

	h := New(Config{Port: 8080, Service: brokenService{}}).Handler()
	body := `{"tenantId":"t1","event":{"agentType":"safety","eventType":"near_miss","entity":{"id":"site-1"},"timestamp":"2024-03-01T09:00:00Z"}}`
	rec := do(t, h, http.MethodPost, "/v1/cognitive/process-event", body)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, out.String(), "request failed")
	assert.Contains(t, out.String(), "/v1/cognitive/process-event")
}

func TestCORSPreflight(t *testing.T) {
	h := New(Config{Port: 8080, Service: &stubService{}}).Handler()

	rec := do(t, h, http.MethodOptions, "/v1/cognitive/process-event", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "cortex_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := New(Config{Port: 8080, Gatherer: reg}).Handler()
	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cortex_test_total 1")

	h = New(Config{Port: 8080}).Handler()
	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartStop(t *testing.T) {
	s := New(Config{Port: 0})
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
	assert.Equal(t, "API Server", s.Name())
}
