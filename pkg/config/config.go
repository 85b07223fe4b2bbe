package config

import "time"

// Config is the root configuration structure for the anarchy pipeline.
type Config struct {
	// Anarchy contains the initial toggle and the eligible tool list.
	Anarchy AnarchyConfig `yaml:"anarchy"`

	// Elevation contains the elevation step table and range bounds.
	Elevation ElevationConfig `yaml:"elevation"`

	// Grade contains network grade limits.
	Grade GradeConfig `yaml:"grade"`

	// Composition contains the topology limits used to reject composition
	// requests.
	Composition CompositionConfig `yaml:"composition"`

	// Settings contains the persistence backend for the policy table.
	Settings SettingsConfig `yaml:"settings"`

	// Sessions contains tool session eviction settings.
	Sessions SessionsConfig `yaml:"sessions"`

	// Telemetry contains logging, metrics, and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AnarchyConfig configures the anarchy toggle.
type AnarchyConfig struct {
	// EnabledOnStart is the toggle value at startup.
	// Default: false
	EnabledOnStart bool `yaml:"enabled_on_start"`

	// EligibleTools lists the tools anarchy mode may apply to.
	// Default: ["object", "net", "area", "bulldoze", "upgrade"]
	EligibleTools []string `yaml:"eligible_tools"`
}

// ElevationConfig configures elevation control.
type ElevationConfig struct {
	// Steps is the step table, largest first.
	// Default: [10, 2.5, 1.0, 0.1]
	Steps []float64 `yaml:"steps"`

	// DefaultBound is the host's permitted absolute offset.
	// Default: 50
	DefaultBound float64 `yaml:"default_bound"`

	// ExpandedBound is the permitted absolute offset with the expanded range.
	// Default: 1000
	ExpandedBound float64 `yaml:"expanded_bound"`

	// ExpandedRange enables ExpandedBound at startup.
	// Default: false
	ExpandedRange bool `yaml:"expanded_range"`
}

// GradeConfig configures network grade control.
type GradeConfig struct {
	// MaxSlope is the steepest grade (rise over run).
	// Default: 0.3
	MaxSlope float64 `yaml:"max_slope"`
}

// CompositionConfig configures composition conflict detection.
type CompositionConfig struct {
	// MaxNodeElevationDelta is the largest rise across a segment touching an
	// intersection for which curb and shoulder changes are allowed.
	// Default: 2.0
	MaxNodeElevationDelta float64 `yaml:"max_node_elevation_delta"`

	// MaxTrackElevation is the highest elevation above terrain at which an
	// extra track may be added.
	// Default: 25.0
	MaxTrackElevation float64 `yaml:"max_track_elevation"`
}

// SettingsConfig configures persistence of the policy table.
type SettingsConfig struct {
	// Backend selects the store.
	// Options: "memory", "file", "sqlite"
	// Default: "file"
	Backend string `yaml:"backend"`

	// FilePath is the YAML settings file for the "file" backend.
	// Default: "anarchy-settings.yaml"
	FilePath string `yaml:"file_path"`

	// SQLite contains settings for the "sqlite" backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Watch reloads the policy table when the settings file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period before a watched change is applied.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`
}

// SQLiteConfig configures the SQLite settings store.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/anarchy.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is how long to wait for locks.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// SessionsConfig configures tool session eviction.
type SessionsConfig struct {
	// IdleTTL evicts sessions unused for this long.
	// Default: 10m
	IdleTTL time.Duration `yaml:"idle_ttl"`

	// SweepSchedule is a cron expression; empty disables sweeping.
	// Default: "*/5 * * * *"
	SweepSchedule string `yaml:"sweep_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "anarchy"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "pipeline"
	Subsystem string `yaml:"subsystem"`

	// PassDurationBuckets are histogram buckets for pass duration (seconds).
	// Default: exponential from 1µs
	PassDurationBuckets []float64 `yaml:"pass_duration_buckets"`
}

// TracingConfig contains tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName is the resource service name.
	// Default: "anarchy"
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// SampleRatio is the fraction of frames traced (0.0 to 1.0).
	// Default: 0.01
	SampleRatio float64 `yaml:"sample_ratio"`

	// Insecure disables TLS to the collector.
	// Default: true
	Insecure bool `yaml:"insecure"`
}
