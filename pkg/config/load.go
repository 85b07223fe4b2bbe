package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "ANARCHY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults, and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention ANARCHY_SECTION_FIELD (e.g., ANARCHY_SETTINGS_BACKEND).
// Environment variables always take precedence over file-based configuration.
//
// An empty path loads defaults only.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = Default()
	} else {
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg, os.Getenv)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	env := func(name string) string { return getenv(EnvPrefix + name) }

	// Anarchy overrides
	setBool(env("ANARCHY_ENABLED_ON_START"), &cfg.Anarchy.EnabledOnStart)
	if val := env("ANARCHY_ELIGIBLE_TOOLS"); val != "" {
		var tools []string
		for _, t := range strings.Split(val, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tools = append(tools, t)
			}
		}
		cfg.Anarchy.EligibleTools = tools
	}

	// Elevation overrides
	setFloat(env("ELEVATION_DEFAULT_BOUND"), &cfg.Elevation.DefaultBound)
	setFloat(env("ELEVATION_EXPANDED_BOUND"), &cfg.Elevation.ExpandedBound)
	setBool(env("ELEVATION_EXPANDED_RANGE"), &cfg.Elevation.ExpandedRange)

	// Grade overrides
	setFloat(env("GRADE_MAX_SLOPE"), &cfg.Grade.MaxSlope)

	// Composition overrides
	setFloat(env("COMPOSITION_MAX_NODE_ELEVATION_DELTA"), &cfg.Composition.MaxNodeElevationDelta)
	setFloat(env("COMPOSITION_MAX_TRACK_ELEVATION"), &cfg.Composition.MaxTrackElevation)

	// Settings overrides
	setString(env("SETTINGS_BACKEND"), &cfg.Settings.Backend)
	setString(env("SETTINGS_FILE_PATH"), &cfg.Settings.FilePath)
	setString(env("SETTINGS_SQLITE_PATH"), &cfg.Settings.SQLite.Path)
	setString(env("SETTINGS_SQLITE_DRIVER"), &cfg.Settings.SQLite.Driver)
	setDuration(env("SETTINGS_SQLITE_BUSY_TIMEOUT"), &cfg.Settings.SQLite.BusyTimeout)
	setBool(env("SETTINGS_WATCH"), &cfg.Settings.Watch)
	setDuration(env("SETTINGS_DEBOUNCE"), &cfg.Settings.Debounce)

	// Session overrides
	setDuration(env("SESSIONS_IDLE_TTL"), &cfg.Sessions.IdleTTL)
	setString(env("SESSIONS_SWEEP_SCHEDULE"), &cfg.Sessions.SweepSchedule)

	// Telemetry overrides
	setString(env("TELEMETRY_LOGGING_LEVEL"), &cfg.Telemetry.Logging.Level)
	setString(env("TELEMETRY_LOGGING_FORMAT"), &cfg.Telemetry.Logging.Format)
	setBool(env("TELEMETRY_METRICS_ENABLED"), &cfg.Telemetry.Metrics.Enabled)
	setString(env("TELEMETRY_METRICS_NAMESPACE"), &cfg.Telemetry.Metrics.Namespace)
	setBool(env("TELEMETRY_TRACING_ENABLED"), &cfg.Telemetry.Tracing.Enabled)
	setString(env("TELEMETRY_TRACING_ENDPOINT"), &cfg.Telemetry.Tracing.Endpoint)
	setFloat(env("TELEMETRY_TRACING_SAMPLE_RATIO"), &cfg.Telemetry.Tracing.SampleRatio)
}

func setString(val string, dst *string) {
	if val != "" {
		*dst = val
	}
}

func setBool(val string, dst *bool) {
	if val == "" {
		return
	}
	if b, err := strconv.ParseBool(val); err == nil {
		*dst = b
	}
}

func setFloat(val string, dst *float64) {
	if val == "" {
		return
	}
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		*dst = f
	}
}

func setDuration(val string, dst *time.Duration) {
	if val == "" {
		return
	}
	if d, err := time.ParseDuration(val); err == nil {
		*dst = d
	}
}
