package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cortexbuild/cortex/internal/config"
	"github.com/cortexbuild/cortex/internal/logging"
)

// Version is overridden at build time with -ldflags "-X ...commands.Version=..."
var Version = "0.1.0"

var (
	logLevelFlags []string // Supports multiple --log-level flags
	configPath    string
)

var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "Cortex - root-cause analysis for construction project agents",
	Long: `Cortex watches events raised by the safety, programme, financial and other
project agents, detects recurring risk patterns, asks the other agents for
corroborating evidence and produces a root-cause hypothesis with a
prioritised action plan.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Supports per-package log levels: --log-level debug --log-level cognitive.executor=debug
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		nil,
		"Log level for packages. Use 'default=level' for default, or 'package.name=level' for per-package.\n"+
			"Examples: --log-level debug (all), --log-level cognitive.executor=debug --log-level store=warn")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CORTEX_CONFIG"),
		"Path to the cortex YAML configuration file (default: built-in defaults, env CORTEX_CONFIG)")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads --config and initializes logging from it and the flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if err := setupLog(cfg.Log, logLevelFlags); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLog initializes the logging system.
// Priority: CLI flags > Environment variables > config file
func setupLog(fileCfg config.LogConfig, flags []string) error {
	defaultLevel, packageLevels, err := parseLogLevelFlags(fileCfg, flags)
	if err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevelFlags merges the config file, environment variables and CLI flags.
//
// CLI format: ["debug"], ["default=info", "cognitive.executor=debug"], or ["info"]
// Env vars: LOG_LEVEL_COGNITIVE_EXECUTOR=debug (package name uppercased, dots to underscores)
//
// Returns: (defaultLevel, packageLevels map, error)
func parseLogLevelFlags(fileCfg config.LogConfig, flags []string) (string, map[string]string, error) {
	result := make(map[string]string)

	// Step 1: config file (lowest priority)
	if fileCfg.Level != "" {
		result["default"] = fileCfg.Level
	}
	for pkg, level := range fileCfg.Packages {
		result[pkg] = level
	}

	// Step 2: LOG_LEVEL_* environment variables
	for _, envPair := range os.Environ() {
		if strings.HasPrefix(envPair, "LOG_LEVEL_") {
			parts := strings.SplitN(envPair, "=", 2)
			if len(parts) != 2 {
				continue
			}
			result[convertEnvKeyToPackageName(parts[0])] = parts[1]
		}
	}

	// Step 3: CLI flags override everything
	for _, flag := range flags {
		if !strings.Contains(flag, "=") {
			result["default"] = flag
		} else {
			parts := strings.SplitN(flag, "=", 2)
			if len(parts) == 2 {
				result[parts[0]] = parts[1]
			}
		}
	}

	defaultLevel := "info"
	if level, exists := result["default"]; exists {
		defaultLevel = level
		delete(result, "default")
	}

	if err := validateLogLevel(defaultLevel); err != nil {
		return "", nil, err
	}
	for pkg, level := range result {
		if err := validateLogLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %v", pkg, err)
		}
	}

	return defaultLevel, result, nil
}

// convertEnvKeyToPackageName converts LOG_LEVEL_COGNITIVE_EXECUTOR -> cognitive.executor
func convertEnvKeyToPackageName(envKey string) string {
	name := strings.TrimPrefix(envKey, "LOG_LEVEL_")
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

// validateLogLevel checks if a level string is valid
func validateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", level)
	}
	return nil
}
