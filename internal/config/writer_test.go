package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cortexbuild/cortex/internal/models"
	"github.com/cortexbuild/cortex/internal/notify"
)

func TestWrite_ReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cortex.yaml")

	cfg := Default()
	cfg.Server.Port = 9191
	cfg.Pipeline.QueryTimeout = 12 * time.Second
	cfg.Notify.Recipients = []notify.Recipient{
		{Channel: "email", Address: "pm@example.com", MinRiskLevel: models.RiskCritical},
	}

	if err := Write(path, cfg); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "schemaVersion: v1") {
		t.Errorf("written file missing schemaVersion:\n%s", content)
	}
	if !strings.Contains(content, "minRiskLevel: critical") {
		t.Errorf("risk level not written by name:\n%s", content)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Write failed: %v", err)
	}
	if loaded.Server.Port != 9191 {
		t.Errorf("expected port 9191, got %d", loaded.Server.Port)
	}
	if loaded.Pipeline.QueryTimeout != 12*time.Second {
		t.Errorf("expected query timeout 12s, got %v", loaded.Pipeline.QueryTimeout)
	}
	if len(loaded.Notify.Recipients) != 1 || loaded.Notify.Recipients[0].MinRiskLevel != models.RiskCritical {
		t.Errorf("recipients not round-tripped: %+v", loaded.Notify.Recipients)
	}
}

func TestWrite_InvalidPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "cortex.yaml")
	if err := Write(path, Default()); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if err := Write(filepath.Join(dir, "cortex.yaml"), Default()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the config file, found %d entries", len(entries))
	}
}
