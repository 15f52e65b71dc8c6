package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cortexbuild/cortex/internal/logging"
	"github.com/cortexbuild/cortex/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the Cortex tools over MCP on stdio",
	Long: `Serve process_event, detect_pattern and tenant_history to an MCP client
(for example an IDE assistant) over stdin and stdout. Logs go to stderr.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol
	logging.SetOutput(cmd.ErrOrStderr(), cmd.ErrOrStderr())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newRuntime(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	logging.GetLogger("mcp").Info("Serving MCP on stdio (v%s)", Version)
	return mcp.NewCortexServer(rt.service, Version).ServeStdio()
}
