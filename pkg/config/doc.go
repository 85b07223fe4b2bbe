// Package config provides configuration management for the anarchy pipeline.
//
// Configuration is loaded from YAML, completed with defaults, optionally
// overridden from the environment, and validated before use:
//
//	cfg, err := config.LoadConfig("anarchy.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("anarchy.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ANARCHY_SECTION_FIELD:
//
//   - ANARCHY_SETTINGS_BACKEND overrides settings.backend
//   - ANARCHY_GRADE_MAX_SLOPE overrides grade.max_slope
//   - ANARCHY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// There is no process-wide configuration instance. Callers construct the
// components they need from an explicit *Config.
//
// # Validation
//
// Validate collects every problem into a ValidationError of FieldErrors, each
// naming the dotted YAML path of the offending field.
package config
