package metrics

import (
	"time"

	"skyline-hq/anarchy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric the anarchy pipeline records.
//
// A nil *Collector is valid and records nothing, so components accept one
// unconditionally and callers pass nil when metrics are disabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	pipeline *PipelineMetrics
	sessions *SessionMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "anarchy",
//		Subsystem: "pipeline",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		pipeline: NewPipelineMetrics(cfg, registry),
		sessions: NewSessionMetrics(cfg, registry),
	}
}

// FromConfig returns a collector when metrics are enabled and nil otherwise.
func FromConfig(cfg *config.MetricsConfig) *Collector {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return NewCollector(cfg, nil)
}

// RecordFrame records one completed frame.
func (c *Collector) RecordFrame(anarchyApplies bool) {
	if c == nil {
		return
	}
	c.pipeline.RecordFrame(anarchyApplies)
}

// RecordPass records a pass execution.
func (c *Collector) RecordPass(pass, result string, duration time.Duration) {
	if c == nil {
		return
	}
	c.pipeline.RecordPass(pass, result, duration)
}

// RecordSuppressed records an error check disabled for the current frame.
func (c *Collector) RecordSuppressed(category string) {
	if c == nil {
		return
	}
	c.pipeline.RecordSuppressed(category)
}

// RecordEntities records n entities changed by a pass.
func (c *Collector) RecordEntities(pass string, n int) {
	if c == nil {
		return
	}
	c.pipeline.RecordEntities(pass, n)
}

// RecordConflict records a dropped composition flag.
func (c *Collector) RecordConflict(flag string) {
	if c == nil {
		return
	}
	c.pipeline.RecordConflict(flag)
}

// SetActiveSessions sets the number of live tool sessions.
func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.sessions.SetActive(n)
}

// RecordEvicted records sessions removed by the sweeper.
func (c *Collector) RecordEvicted(n int) {
	if c == nil {
		return
	}
	c.sessions.RecordEvicted(n)
}

// RecordSave records a policy table save.
func (c *Collector) RecordSave(backend string, err error) {
	if c == nil {
		return
	}
	c.sessions.RecordSave(backend, err)
}

// RecordReload records a settings reload.
func (c *Collector) RecordReload(err error) {
	if c == nil {
		return
	}
	c.sessions.RecordReload(err)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}
