package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexbuild/cortex/internal/api"
	"github.com/cortexbuild/cortex/internal/cognitive/service"
	"github.com/cortexbuild/cortex/internal/cognitive/specialist"
	"github.com/cortexbuild/cortex/internal/config"
	"github.com/cortexbuild/cortex/internal/logging"
	"github.com/cortexbuild/cortex/internal/models"
	"github.com/cortexbuild/cortex/internal/notify"
)

func TestParseLogLevelFlags(t *testing.T) {
	t.Setenv("LOG_LEVEL_COGNITIVE_EXECUTOR", "debug")

	fileCfg := config.LogConfig{Level: "warn", Packages: map[string]string{"store": "error", "notify": "warn"}}

	level, pkgs, err := parseLogLevelFlags(fileCfg, []string{"info", "store=debug"})
	require.NoError(t, err)
	assert.Equal(t, "info", level)
	assert.Equal(t, "debug", pkgs["cognitive.executor"])
	assert.Equal(t, "debug", pkgs["store"], "flags override the file")
	assert.Equal(t, "warn", pkgs["notify"])
	assert.NotContains(t, pkgs, "default")

	level, _, err = parseLogLevelFlags(fileCfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "warn", level)

	_, _, err = parseLogLevelFlags(config.LogConfig{}, []string{"loud"})
	assert.Error(t, err)

	_, _, err = parseLogLevelFlags(config.LogConfig{}, []string{"store=loud"})
	assert.Error(t, err)
}

func TestConvertEnvKeyToPackageName(t *testing.T) {
	assert.Equal(t, "cognitive.executor", convertEnvKeyToPackageName("LOG_LEVEL_COGNITIVE_EXECUTOR"))
	assert.Equal(t, "store", convertEnvKeyToPackageName("LOG_LEVEL_STORE"))
}

func TestBuildSpecialist(t *testing.T) {
	ctx := context.Background()

	s, err := buildSpecialist(ctx, config.SpecialistConfig{Backend: config.BackendSimulated})
	require.NoError(t, err)
	assert.IsType(t, &specialist.Simulated{}, s)

	s, err = buildSpecialist(ctx, config.SpecialistConfig{Backend: config.BackendAnthropic, MaxRetries: -1})
	require.NoError(t, err)
	assert.IsType(t, &specialist.Anthropic{}, s)

	_, err = buildSpecialist(ctx, config.SpecialistConfig{Backend: "oracle"})
	assert.Error(t, err)

	_, err = buildSpecialist(ctx, config.SpecialistConfig{Backend: config.BackendAnthropic, APIKeyEnv: "CORTEX_TEST_UNSET_KEY"})
	assert.Error(t, err)
}

func TestBuildNotifier(t *testing.T) {
	m := service.NewMetrics(nil)
	logger := logging.GetLogger("test")

	n, err := buildNotifier(config.NotifyConfig{}, m, logger)
	require.NoError(t, err)
	assert.IsType(t, notify.Noop{}, n)

	n, err = buildNotifier(config.NotifyConfig{Log: true, QueueSize: 4}, m, logger)
	require.NoError(t, err)
	assert.IsType(t, &notify.Async{}, n)
	assert.NoError(t, n.Notify(context.Background(), []notify.Notification{{Channel: "email", Recipient: "pm", Message: "hi"}}))
	assert.NoError(t, n.Close())
}

func TestRuntimeReloadSwapsPipeline(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "cortex.db")

	rt, err := newRuntime(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer rt.Close()

	next := config.Default()
	next.Pipeline.MaxQueries = 2
	next.Notify.Recipients = []notify.Recipient{{Channel: "email", Address: "pm@example.com"}}
	require.NoError(t, rt.reload(next))
	assert.Equal(t, 2, rt.service.Pipeline().Config().MaxQueries)

	// metrics are shared across reloads, so the registry still gathers cleanly
	_, err = rt.registry.Gather()
	assert.NoError(t, err)
}

func writeJSONFile(t *testing.T, dir, name string, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func incident(id string, at time.Time) models.AgentEvent {
	return models.AgentEvent{
		ID:        id,
		AgentType: models.AgentSafety,
		EventType: "safety_incident",
		Entity:    models.EntityRef{ID: "sub-acme", Type: "subcontractor", Name: "Acme Subcontractor"},
		Timestamp: at,
		Payload:   models.Payload{"severity": "medium"},
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	eventFile := writeJSONFile(t, dir, "event.json", incident("c", t0.Add(10*24*time.Hour)))
	historyFile := writeJSONFile(t, dir, "history.json", models.HistoricalContext{Events: []models.AgentEvent{
		incident("a", t0),
		incident("b", t0.Add(5*24*time.Hour)),
	}})

	out, err := run(t, "analyze", "--config=", "--tenant", "t1", "--event", eventFile, "--history", historyFile)
	require.NoError(t, err)

	var resp api.ProcessEventResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.PatternDetected)
	require.NotNil(t, resp.Result)
	assert.Equal(t, models.PatternSafetyViolation, resp.Result.Pattern.PatternType)
	assert.Equal(t, "t1", resp.Result.Pattern.TenantID)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cortex.yaml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = run(t, "config", "init", path)
	assert.Error(t, err, "refuses to overwrite")

	out, err = run(t, "--config", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Pipeline, cfg.Pipeline)
}
