package config

import "time"

// Default values for configuration fields.
const (
	// Elevation defaults
	DefaultElevationBound         = 50.0
	DefaultExpandedElevationBound = 1000.0

	// Grade defaults
	DefaultMaxSlope = 0.3

	// Composition defaults
	DefaultMaxNodeElevationDelta = 2.0
	DefaultMaxTrackElevation     = 25.0

	// Settings defaults
	DefaultSettingsBackend   = "file"
	DefaultSettingsFilePath  = "anarchy-settings.yaml"
	DefaultSQLitePath        = "data/anarchy.db"
	DefaultSQLiteDriver      = "sqlite"
	DefaultSQLiteBusyTimeout = 5 * time.Second
	DefaultSettingsDebounce  = 100 * time.Millisecond

	// Session defaults
	DefaultSessionIdleTTL       = 10 * time.Minute
	DefaultSessionSweepSchedule = "*/5 * * * *"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	DefaultMetricsNamespace   = "anarchy"
	DefaultMetricsSubsystem   = "pipeline"
	DefaultTracingServiceName = "anarchy"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampleRatio = 0.01
)

// DefaultElevationSteps is the default step table.
var DefaultElevationSteps = []float64{10, 2.5, 1.0, 0.1}

// DefaultEligibleTools are the host tools anarchy mode applies to.
var DefaultEligibleTools = []string{"object", "net", "area", "bulldoze", "upgrade"}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Tracing.Insecure = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// It is idempotent.
func ApplyDefaults(cfg *Config) {
	if len(cfg.Anarchy.EligibleTools) == 0 {
		cfg.Anarchy.EligibleTools = append([]string(nil), DefaultEligibleTools...)
	}

	if len(cfg.Elevation.Steps) == 0 {
		cfg.Elevation.Steps = append([]float64(nil), DefaultElevationSteps...)
	}
	if cfg.Elevation.DefaultBound == 0 {
		cfg.Elevation.DefaultBound = DefaultElevationBound
	}
	if cfg.Elevation.ExpandedBound == 0 {
		cfg.Elevation.ExpandedBound = DefaultExpandedElevationBound
	}

	if cfg.Grade.MaxSlope == 0 {
		cfg.Grade.MaxSlope = DefaultMaxSlope
	}

	if cfg.Composition.MaxNodeElevationDelta == 0 {
		cfg.Composition.MaxNodeElevationDelta = DefaultMaxNodeElevationDelta
	}
	if cfg.Composition.MaxTrackElevation == 0 {
		cfg.Composition.MaxTrackElevation = DefaultMaxTrackElevation
	}

	if cfg.Settings.Backend == "" {
		cfg.Settings.Backend = DefaultSettingsBackend
	}
	if cfg.Settings.FilePath == "" {
		cfg.Settings.FilePath = DefaultSettingsFilePath
	}
	if cfg.Settings.SQLite.Path == "" {
		cfg.Settings.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Settings.SQLite.Driver == "" {
		cfg.Settings.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Settings.SQLite.BusyTimeout == 0 {
		cfg.Settings.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Settings.Debounce == 0 {
		cfg.Settings.Debounce = DefaultSettingsDebounce
	}

	if cfg.Sessions.IdleTTL == 0 {
		cfg.Sessions.IdleTTL = DefaultSessionIdleTTL
	}
	if cfg.Sessions.SweepSchedule == "" {
		cfg.Sessions.SweepSchedule = DefaultSessionSweepSchedule
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
}
