package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("expected default workers 8, got %d", cfg.Workers)
	}
	if cfg.QAQC.PercentCheck != 100 || cfg.QAQC.OutputFormat != "csv" {
		t.Errorf("unexpected qaqc defaults: %+v", cfg.QAQC)
	}
	if cfg.RunLog.Enabled {
		t.Error("expected runlog disabled by default")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
workers: 4
qaqc:
  percent_check: 25
  output_format: parquet
runlog:
  enabled: true
  path: /tmp/runs.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 4 {
		t.Errorf("expected workers 4, got %d", cfg.Workers)
	}
	if cfg.QAQC.PercentCheck != 25 || cfg.QAQC.OutputFormat != "parquet" {
		t.Errorf("unexpected qaqc config: %+v", cfg.QAQC)
	}
	if !cfg.RunLog.Enabled || cfg.RunLog.Path != "/tmp/runs.db" {
		t.Errorf("unexpected runlog config: %+v", cfg.RunLog)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "workers: 2\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 2 {
		t.Errorf("expected workers 2, got %d", cfg.Workers)
	}
	if cfg.QAQC.PercentCheck != 100 {
		t.Errorf("expected default percent_check kept, got %v", cfg.QAQC.PercentCheck)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("RUNS_DB", "/var/lib/runs.db")
	path := writeConfig(t, "runlog:\n  path: ${RUNS_DB}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RunLog.Path != "/var/lib/runs.db" {
		t.Errorf("expected expanded path, got %q", cfg.RunLog.Path)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name, content string
	}{
		{"negative workers", "workers: -1\n"},
		{"percent out of range", "qaqc:\n  percent_check: 150\n"},
		{"bad format", "qaqc:\n  output_format: xlsx\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "workers: [not a number\n")); err == nil {
		t.Error("expected parse error")
	}
}
