package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cortexbuild/cortex/internal/apiserver"
	"github.com/cortexbuild/cortex/internal/config"
	"github.com/cortexbuild/cortex/internal/lifecycle"
	"github.com/cortexbuild/cortex/internal/logging"
	"github.com/cortexbuild/cortex/internal/mcp"
	"github.com/cortexbuild/cortex/internal/tracing"
)

var (
	apiPort      int
	watchConfig  bool
	stdioEnabled bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Cortex API server",
	Long: `Start the Cortex server. Agents post events to /v1/cognitive/process-event;
results are stored, notified and available over HTTP and MCP (/v1/mcp).`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().IntVar(&apiPort, "api-port", 0, "Port the API server listens on (overrides server.port)")
	serverCmd.Flags().BoolVar(&watchConfig, "watch-config", true, "Reload pipeline settings and recipients when the config file changes")
	serverCmd.Flags().BoolVar(&stdioEnabled, "stdio", false, "Serve MCP on stdio alongside HTTP")
}

func runServer(cmd *cobra.Command, args []string) error {
	if stdioEnabled {
		// stdout carries MCP frames
		logging.SetOutput(cmd.ErrOrStderr(), cmd.ErrOrStderr())
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != 0 {
		cfg.Server.Port = apiPort
	}

	logger := logging.GetLogger("main")
	logger.Info("Starting Cortex v%s", Version)

	tracingProvider, err := tracing.New(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		CAPath:      cfg.Tracing.TLSCAPath,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, Version)
	if err != nil {
		logger.Warn("Failed to initialize tracing (continuing without tracing): %v", err)
		tracingProvider = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rt *runtime
	if tracingProvider != nil {
		rt, err = newRuntime(ctx, cfg, tracingProvider.PipelineTracer())
	} else {
		rt, err = newRuntime(ctx, cfg, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	manager := lifecycle.NewManager(lifecycle.WithRegisterer(rt.registry))
	manager.SetShutdownTimeout(cfg.Server.ShutdownTimeout)

	var deps []lifecycle.Component
	if tracingProvider != nil {
		if err := manager.Register(tracingProvider); err != nil {
			return fmt.Errorf("failed to register tracing provider: %w", err)
		}
		deps = append(deps, tracingProvider)
	}

	serviceComponent := &lifecycle.Hooks{
		ComponentName: "analysis-service",
		OnStop: func(context.Context) error {
			return rt.Close()
		},
	}
	if err := manager.Register(serviceComponent, deps...); err != nil {
		return fmt.Errorf("failed to register analysis service: %w", err)
	}

	if watchConfig && configPath != "" {
		watcher, err := config.NewWatcher(config.WatcherConfig{FilePath: configPath}, rt.reload)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		if err := manager.Register(watcher, serviceComponent); err != nil {
			return fmt.Errorf("failed to register config watcher: %w", err)
		}
	}

	mcpServer := mcp.NewCortexServer(rt.service, Version)

	serverCfg := apiserver.Config{
		Port:      cfg.Server.Port,
		Service:   rt.service,
		Gatherer:  rt.registry,
		MCPServer: mcpServer.GetMCPServer(),
		Readiness: manager,
	}
	if tracingProvider != nil {
		serverCfg.Tracing = tracingProvider
	}
	apiComponent := apiserver.New(serverCfg)
	if err := manager.Register(apiComponent, serviceComponent); err != nil {
		return fmt.Errorf("failed to register API server: %w", err)
	}

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}
	logger.Info("Cortex started, listening on port %d", cfg.Server.Port)

	if stdioEnabled {
		go func() {
			logger.Info("Serving MCP on stdio")
			if err := mcpServer.ServeStdio(); err != nil {
				logger.Error("MCP stdio transport stopped: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutdown signal received, gracefully shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Error("Error during shutdown: %v", err)
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}
