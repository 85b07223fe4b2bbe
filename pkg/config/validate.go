package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "grade.max_slope").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateAnarchy(&cfg.Anarchy)...)
	errs = append(errs, validateElevation(&cfg.Elevation)...)
	errs = append(errs, validateGrade(&cfg.Grade)...)
	errs = append(errs, validateComposition(&cfg.Composition)...)
	errs = append(errs, validateSettings(&cfg.Settings)...)
	errs = append(errs, validateSessions(&cfg.Sessions)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateAnarchy(cfg *AnarchyConfig) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool, len(cfg.EligibleTools))
	for i, tool := range cfg.EligibleTools {
		field := fmt.Sprintf("anarchy.eligible_tools[%d]", i)
		if tool == "" {
			errs = append(errs, FieldError{Field: field, Message: "tool id must not be empty"})
			continue
		}
		if seen[tool] {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("duplicate tool %q", tool)})
		}
		seen[tool] = true
	}
	return errs
}

func validateElevation(cfg *ElevationConfig) []FieldError {
	var errs []FieldError

	if len(cfg.Steps) == 0 {
		errs = append(errs, FieldError{Field: "elevation.steps", Message: "at least one step is required"})
	}
	for i, s := range cfg.Steps {
		if s <= 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("elevation.steps[%d]", i),
				Message: "step must be positive",
			})
		}
	}

	if cfg.DefaultBound <= 0 {
		errs = append(errs, FieldError{Field: "elevation.default_bound", Message: "bound must be positive"})
	}
	if cfg.ExpandedBound < cfg.DefaultBound {
		errs = append(errs, FieldError{
			Field:   "elevation.expanded_bound",
			Message: "expanded bound must be at least the default bound",
		})
	}

	return errs
}

func validateGrade(cfg *GradeConfig) []FieldError {
	if cfg.MaxSlope <= 0 || cfg.MaxSlope > 1 {
		return []FieldError{{Field: "grade.max_slope", Message: "max slope must be in (0, 1]"}}
	}
	return nil
}

func validateComposition(cfg *CompositionConfig) []FieldError {
	var errs []FieldError
	if cfg.MaxNodeElevationDelta <= 0 {
		errs = append(errs, FieldError{
			Field:   "composition.max_node_elevation_delta",
			Message: "delta must be positive",
		})
	}
	if cfg.MaxTrackElevation <= 0 {
		errs = append(errs, FieldError{
			Field:   "composition.max_track_elevation",
			Message: "elevation must be positive",
		})
	}
	return errs
}

func validateSettings(cfg *SettingsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "file":
		if cfg.FilePath == "" {
			errs = append(errs, FieldError{Field: "settings.file_path", Message: "file path is required for file backend"})
		}
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "settings.sqlite.path", Message: "path is required for sqlite backend"})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "settings.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q (must be sqlite or sqlite3)", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{Field: "settings.sqlite.busy_timeout", Message: "busy timeout must be non-negative"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "settings.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory, file, or sqlite)", cfg.Backend),
		})
	}

	if cfg.Watch && cfg.Backend != "file" {
		errs = append(errs, FieldError{Field: "settings.watch", Message: "watch requires the file backend"})
	}
	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{Field: "settings.debounce", Message: "debounce must be non-negative"})
	}

	return errs
}

func validateSessions(cfg *SessionsConfig) []FieldError {
	var errs []FieldError
	if cfg.IdleTTL <= 0 {
		errs = append(errs, FieldError{Field: "sessions.idle_ttl", Message: "idle ttl must be positive"})
	}
	if cfg.SweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "sessions.sweep_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		errs = append(errs, FieldError{Field: "telemetry.metrics.namespace", Message: "namespace is required when metrics are enabled"})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0.0 and 1.0"})
	}

	return errs
}
