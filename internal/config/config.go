package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/cortexbuild/cortex/internal/cognitive"
	"github.com/cortexbuild/cortex/internal/notify"
)

// SchemaVersion is written by `cortex config init`.
const SchemaVersion = "v1"

// supportedSchemas accepts every v1.x file.
var supportedSchemas = version.MustConstraints(version.NewConstraint(">= 1.0, < 2.0"))

// Specialist backends.
const (
	BackendSimulated = "simulated"
	BackendAnthropic = "anthropic"
	BackendGemini    = "gemini"
)

// Config is the cortex configuration file.
//
// Example YAML structure:
//
//	schemaVersion: v1
//	server:
//	  port: 8080
//	store:
//	  path: /var/lib/cortex/cortex.db
//	specialist:
//	  backend: anthropic
//	  model: claude-sonnet-4-5
//	notify:
//	  recipients:
//	    - channel: email
//	      address: safety-lead@example.com
//	      minRiskLevel: high
//	pipeline:
//	  maxQueries: 5
//	  queryTimeout: 30s
type Config struct {
	// SchemaVersion is the config schema version (e.g. "v1")
	SchemaVersion string `yaml:"schemaVersion"`

	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Store      StoreConfig      `yaml:"store"`
	Specialist SpecialistConfig `yaml:"specialist"`
	Notify     NotifyConfig     `yaml:"notify"`
	Service    ServiceConfig    `yaml:"service"`

	// Pipeline holds the analysis heuristics. It is the only section that
	// is hot-reloaded.
	Pipeline cognitive.Config `yaml:"pipeline"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the default level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Packages overrides the level per logger name, e.g. {"cognitive.*": "debug"}
	Packages map[string]string `yaml:"packages,omitempty"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	TLSCAPath string `yaml:"tlsCAPath"`
	Insecure  bool   `yaml:"insecure"`

	// SampleRatio keeps this fraction of traces; 0 or 1 keeps all of them
	SampleRatio float64 `yaml:"sampleRatio"`
}

// StoreConfig configures persistence. An empty Path disables it.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// SpecialistConfig selects how cross-agent questions are answered.
type SpecialistConfig struct {
	// Backend is simulated, anthropic or gemini
	Backend string `yaml:"backend"`

	Model      string `yaml:"model"`
	MaxTokens  int    `yaml:"maxTokens"`
	BaseURL    string `yaml:"baseURL"`
	MaxRetries int    `yaml:"maxRetries"`

	// APIKeyEnv names the environment variable holding the API key
	APIKeyEnv string `yaml:"apiKeyEnv"`
}

// NotifyConfig configures notification delivery.
type NotifyConfig struct {
	// Log writes notifications to the application log
	Log bool `yaml:"log"`

	// NATS publishes notifications when URL is set
	NATS notify.NATSConfig `yaml:"nats"`

	// QueueSize bounds the asynchronous delivery backlog
	QueueSize int `yaml:"queueSize"`

	Recipients []notify.Recipient `yaml:"recipients"`
}

// ServiceConfig configures the duplicate-delivery guard.
type ServiceConfig struct {
	DedupSize int           `yaml:"dedupSize"`
	DedupTTL  time.Duration `yaml:"dedupTTL"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		SchemaVersion: SchemaVersion,
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Specialist: SpecialistConfig{
			Backend:    BackendSimulated,
			MaxRetries: -1,
		},
		Notify: NotifyConfig{
			Log:       true,
			QueueSize: notify.DefaultQueueSize,
			NATS:      notify.NATSConfig{SubjectPrefix: notify.DefaultSubjectPrefix},
		},
		Service: ServiceConfig{
			DedupSize: 4096,
			DedupTTL:  10 * time.Minute,
		},
		Pipeline: cognitive.DefaultConfig(),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	v, err := version.NewVersion(c.SchemaVersion)
	if err != nil {
		return NewConfigError(fmt.Sprintf("invalid schemaVersion %q: %v", c.SchemaVersion, err))
	}
	if !supportedSchemas.Check(v) {
		return NewConfigError(fmt.Sprintf("unsupported schemaVersion %q (expected %s)", c.SchemaVersion, SchemaVersion))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return NewConfigError("server.port must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return NewConfigError("server.shutdownTimeout must be positive")
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return NewConfigError("tracing.endpoint must be set when tracing is enabled")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return NewConfigError(fmt.Sprintf("tracing.sampleRatio must be within [0,1], got %v", c.Tracing.SampleRatio))
	}

	switch c.Specialist.Backend {
	case BackendSimulated, BackendAnthropic, BackendGemini:
	default:
		return NewConfigError(fmt.Sprintf("unknown specialist.backend %q", c.Specialist.Backend))
	}

	for i, r := range c.Notify.Recipients {
		if r.Channel == "" || r.Address == "" {
			return NewConfigError(fmt.Sprintf("notify.recipients[%d]: channel and address are required", i))
		}
	}

	if err := c.Pipeline.Validate(); err != nil {
		return NewConfigError("pipeline: " + err.Error())
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
