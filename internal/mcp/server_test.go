package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexbuild/cortex/internal/cognitive"
	"github.com/cortexbuild/cortex/internal/cognitive/service"
	"github.com/cortexbuild/cortex/internal/cognitive/specialist"
)

type mockTool struct {
	result interface{}
	err    error
	input  json.RawMessage
}

func (m *mockTool) Execute(_ context.Context, input json.RawMessage) (interface{}, error) {
	m.input = input
	return m.result, m.err
}

func newServer(t *testing.T) *CortexServer {
	t.Helper()
	p := cognitive.New(specialist.NewSimulated(nil), cognitive.DefaultConfig())
	svc := service.New(p, service.Config{})
	t.Cleanup(func() { svc.Close() })
	return NewCortexServer(svc, "test")
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestRegisteredTools(t *testing.T) {
	s := newServer(t)

	for _, name := range []string{"process_event", "detect_pattern", "tenant_history"} {
		assert.Contains(t, s.tools, name)
	}
	assert.NotNil(t, s.GetMCPServer())
}

func TestToolHandlerFormatsResult(t *testing.T) {
	s := newServer(t)
	tool := &mockTool{result: map[string]interface{}{"status": "ok"}}

	res, err := s.createToolHandler("mock", tool)(context.Background(), callRequest("mock", map[string]interface{}{"tenantId": "t1"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"status":"ok"}`, resultText(t, res))
	assert.JSONEq(t, `{"tenantId":"t1"}`, string(tool.input))
}

func TestToolHandlerReportsErrorsInResult(t *testing.T) {
	s := newServer(t)
	tool := &mockTool{err: errors.New("boom")}

	res, err := s.createToolHandler("mock", tool)(context.Background(), callRequest("mock", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "boom")
}

func TestProcessEventThroughHandler(t *testing.T) {
	s := newServer(t)
	args := map[string]interface{}{
		"tenantId": "t1",
		"event": map[string]interface{}{
			"agentType": "safety",
			"eventType": "near_miss",
			"entity":    map[string]interface{}{"id": "site-1"},
			"timestamp": "2024-03-01T09:00:00Z",
		},
	}

	res, err := s.createToolHandler("process_event", s.tools["process_event"])(context.Background(), callRequest("process_event", args))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, false, out["patternDetected"])
}
