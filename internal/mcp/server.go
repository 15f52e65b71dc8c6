// Package mcp exposes the analysis service to MCP clients.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cortexbuild/cortex/internal/logging"
	"github.com/cortexbuild/cortex/internal/mcp/tools"
)

// Tool defines the interface for our tool implementations
type Tool interface {
	Execute(ctx context.Context, input json.RawMessage) (interface{}, error)
}

// CortexServer wraps the mcp-go server with the cortex tools
type CortexServer struct {
	mcpServer *server.MCPServer
	service   tools.Service
	tools     map[string]Tool
	logger    *logging.Logger
}

// NewCortexServer creates the MCP server around svc
func NewCortexServer(svc tools.Service, version string) *CortexServer {
	mcpServer := server.NewMCPServer(
		"Cortex MCP Server",
		version,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithLogging(),
	)

	s := &CortexServer{
		mcpServer: mcpServer,
		service:   svc,
		tools:     make(map[string]Tool),
		logger:    logging.GetLogger("mcp"),
	}

	s.registerTools()
	s.registerPrompts()

	return s
}

var eventSchema = map[string]interface{}{
	"type":        "object",
	"description": "Agent event: agentType (safety, project_controls, financial, commercial, quality, workforce, supply_chain), eventType, entity {id, type, name}, RFC3339 timestamp and free-form payload",
	"properties": map[string]interface{}{
		"id":        map[string]interface{}{"type": "string"},
		"agentType": map[string]interface{}{"type": "string"},
		"eventType": map[string]interface{}{"type": "string"},
		"entity": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id":   map[string]interface{}{"type": "string"},
				"type": map[string]interface{}{"type": "string"},
				"name": map[string]interface{}{"type": "string"},
			},
			"required": []string{"id"},
		},
		"timestamp": map[string]interface{}{"type": "string", "format": "date-time"},
		"payload":   map[string]interface{}{"type": "object"},
	},
	"required": []string{"agentType", "eventType", "entity", "timestamp"},
}

func (s *CortexServer) registerTools() {
	eventInput := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"tenantId": map[string]interface{}{
				"type":        "string",
				"description": "Tenant the event belongs to",
			},
			"event": eventSchema,
			"history": map[string]interface{}{
				"type":        "object",
				"description": "Optional: history to analyse against instead of the stored one ({events: [...]})",
			},
		},
		"required": []string{"event"},
	}

	s.registerTool(
		"process_event",
		"Analyse one agent event: detect a recurring risk pattern, question the other agents, and return the root-cause hypothesis with a prioritised action plan. The result is stored and notified.",
		tools.NewProcessEventTool(s.service),
		eventInput,
	)

	s.registerTool(
		"detect_pattern",
		"Dry run: report whether an event completes a risk pattern and which cross-agent questions would be asked, without asking them or storing anything",
		tools.NewDetectPatternTool(s.service),
		eventInput,
	)

	s.registerTool(
		"tenant_history",
		"List the stored events, active patterns and hypotheses of a tenant",
		tools.NewHistoryTool(s.service),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"tenantId": map[string]interface{}{
					"type":        "string",
					"description": "Tenant to look up",
				},
				"since": map[string]interface{}{
					"type":        "string",
					"description": "Optional: Unix seconds, RFC3339 or a phrase such as '2 weeks ago'. Default: 30 days ago",
				},
			},
			"required": []string{"tenantId"},
		},
	)
}

func (s *CortexServer) registerTool(name, description string, tool Tool, inputSchema map[string]interface{}) {
	s.tools[name] = tool

	schemaJSON, err := json.Marshal(inputSchema)
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal schema for tool %s: %v", name, err))
	}

	mcpTool := mcp.NewToolWithRawSchema(name, description, schemaJSON)
	s.mcpServer.AddTool(mcpTool, s.createToolHandler(name, tool))
}

func (s *CortexServer) createToolHandler(name string, tool Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			s.logger.Debug("Tool %s failed: %v", name, err)
			return mcp.NewToolResultError(fmt.Sprintf("Tool execution failed: %v", err)), nil
		}

		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

func (s *CortexServer) registerPrompts() {
	prompt := mcp.Prompt{
		Name:        "investigate_entity",
		Description: "Review the recent risk history of a subcontractor, package or site",
		Arguments: []mcp.PromptArgument{
			{Name: "tenant_id", Description: "Tenant to investigate", Required: true},
			{Name: "entity", Description: "Entity name or ID", Required: true},
			{Name: "since", Description: "Optional start of the review window, e.g. '30 days ago'", Required: false},
		},
	}

	s.mcpServer.AddPrompt(prompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		tenant := request.Params.Arguments["tenant_id"]
		entity := request.Params.Arguments["entity"]
		since := request.Params.Arguments["since"]
		if since == "" {
			since = "30 days ago"
		}

		text := fmt.Sprintf(
			"Review the risk history of %s for tenant %s since %s. Call tenant_history first, "+
				"then summarise the active patterns and open hypotheses that involve %s and list the "+
				"immediate actions that are still outstanding.",
			entity, tenant, since, entity)

		return &mcp.GetPromptResult{
			Description: "Entity risk review",
			Messages: []mcp.PromptMessage{
				{
					Role:    mcp.RoleUser,
					Content: mcp.TextContent{Type: "text", Text: text},
				},
			},
		}, nil
	})
}

// GetMCPServer returns the underlying mcp-go server for transport setup
func (s *CortexServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over stdin and stdout until the client disconnects
func (s *CortexServer) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
