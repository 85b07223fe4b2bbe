package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "anarchy.yaml")

	content := `
anarchy:
  enabled_on_start: true
  eligible_tools: ["object", "net"]
elevation:
  steps: [5, 1]
grade:
  max_slope: 0.2
settings:
  backend: "sqlite"
  sqlite:
    path: "./settings.db"
    driver: "sqlite3"
telemetry:
  logging:
    level: "debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if !cfg.Anarchy.EnabledOnStart {
		t.Error("expected anarchy enabled on start")
	}
	if len(cfg.Anarchy.EligibleTools) != 2 {
		t.Errorf("expected 2 eligible tools, got %v", cfg.Anarchy.EligibleTools)
	}
	if len(cfg.Elevation.Steps) != 2 || cfg.Elevation.Steps[0] != 5 {
		t.Errorf("expected steps [5 1], got %v", cfg.Elevation.Steps)
	}
	if cfg.Grade.MaxSlope != 0.2 {
		t.Errorf("expected max slope 0.2, got %v", cfg.Grade.MaxSlope)
	}
	if cfg.Settings.SQLite.Driver != "sqlite3" {
		t.Errorf("expected driver sqlite3, got %q", cfg.Settings.SQLite.Driver)
	}
	if cfg.Settings.SQLite.BusyTimeout != DefaultSQLiteBusyTimeout {
		t.Errorf("expected default busy timeout, got %v", cfg.Settings.SQLite.BusyTimeout)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level debug, got %q", cfg.Telemetry.Logging.Level)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("anarchy: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}
	if cfg.Elevation.DefaultBound != DefaultElevationBound {
		t.Errorf("DefaultBound = %v, want %v", cfg.Elevation.DefaultBound, DefaultElevationBound)
	}
	if cfg.Settings.Debounce != 100*time.Millisecond {
		t.Errorf("Debounce = %v, want 100ms", cfg.Settings.Debounce)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	first := *cfg
	ApplyDefaults(cfg)

	if cfg.Settings.Backend != first.Settings.Backend || cfg.Grade.MaxSlope != first.Grade.MaxSlope {
		t.Error("ApplyDefaults is not idempotent")
	}
	if len(cfg.Elevation.Steps) != len(DefaultElevationSteps) {
		t.Errorf("Steps = %v", cfg.Elevation.Steps)
	}

	// Mutating the applied slice must not leak into the package default.
	cfg.Elevation.Steps[0] = 99
	if DefaultElevationSteps[0] == 99 {
		t.Error("ApplyDefaults aliased DefaultElevationSteps")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"ANARCHY_ANARCHY_ENABLED_ON_START":       "true",
		"ANARCHY_ANARCHY_ELIGIBLE_TOOLS":         "net, area",
		"ANARCHY_GRADE_MAX_SLOPE":                "0.15",
		"ANARCHY_SETTINGS_BACKEND":               "memory",
		"ANARCHY_SESSIONS_IDLE_TTL":              "30s",
		"ANARCHY_TELEMETRY_LOGGING_LEVEL":        "warn",
		"ANARCHY_TELEMETRY_TRACING_ENABLED":      "yes-please",
		"ANARCHY_ELEVATION_EXPANDED_RANGE":       "1",
		"ANARCHY_TELEMETRY_TRACING_SAMPLE_RATIO": "0.5",
	}
	cfg := Default()
	applyEnvOverrides(cfg, func(k string) string { return env[k] })

	if !cfg.Anarchy.EnabledOnStart {
		t.Error("EnabledOnStart not overridden")
	}
	if strings.Join(cfg.Anarchy.EligibleTools, ",") != "net,area" {
		t.Errorf("EligibleTools = %v", cfg.Anarchy.EligibleTools)
	}
	if cfg.Grade.MaxSlope != 0.15 {
		t.Errorf("MaxSlope = %v", cfg.Grade.MaxSlope)
	}
	if cfg.Settings.Backend != "memory" {
		t.Errorf("Backend = %q", cfg.Settings.Backend)
	}
	if cfg.Sessions.IdleTTL != 30*time.Second {
		t.Errorf("IdleTTL = %v", cfg.Sessions.IdleTTL)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Level = %q", cfg.Telemetry.Logging.Level)
	}
	// Unparseable booleans are ignored.
	if cfg.Telemetry.Tracing.Enabled {
		t.Error("Tracing.Enabled should be unchanged")
	}
	if !cfg.Elevation.ExpandedRange {
		t.Error("ExpandedRange not overridden")
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.5 {
		t.Errorf("SampleRatio = %v", cfg.Telemetry.Tracing.SampleRatio)
	}
}

func TestLoadConfigWithEnvOverrides_EmptyPath(t *testing.T) {
	t.Setenv("ANARCHY_SETTINGS_BACKEND", "memory")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Settings.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Settings.Backend)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	t.Setenv("ANARCHY_SETTINGS_BACKEND", "postgres")

	_, err := LoadConfigWithEnvOverrides("")
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}
