package metrics

import (
	"time"

	"skyline-hq/anarchy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the anarchy frame pipeline.
//
// Metrics:
//   - anarchy_pipeline_frames_total: Frames run, by whether anarchy applied
//   - anarchy_pipeline_pass_runs_total: Pass executions by pass and result
//   - anarchy_pipeline_pass_duration_seconds: Pass duration
//   - anarchy_pipeline_checks_suppressed_total: Error checks disabled for a frame
//   - anarchy_pipeline_entities_touched_total: Entities a pass changed
//   - anarchy_pipeline_composition_conflicts_total: Composition flags dropped
type PipelineMetrics struct {
	framesTotal     *prometheus.CounterVec
	passRunsTotal   *prometheus.CounterVec
	passDuration    *prometheus.HistogramVec
	suppressedTotal *prometheus.CounterVec
	entitiesTotal   *prometheus.CounterVec
	conflictsTotal  *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers pipeline metrics with the provided registry.
func NewPipelineMetrics(cfg *config.MetricsConfig, registry prometheus.Registerer) *PipelineMetrics {
	buckets := cfg.PassDurationBuckets
	if len(buckets) == 0 {
		// Passes are in-frame work and should finish well under a millisecond.
		buckets = prometheus.ExponentialBuckets(0.000001, 2, 15) // 1µs to 16ms
	}

	pm := &PipelineMetrics{
		framesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "frames_total",
				Help:      "Total number of frames run through the pipeline",
			},
			[]string{"anarchy"},
		),

		passRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pass_runs_total",
				Help:      "Total number of pass executions",
			},
			[]string{"pass", "result"},
		),

		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pass_duration_seconds",
				Help:      "Duration of pass execution in seconds",
				Buckets:   buckets,
			},
			[]string{"pass"},
		),

		suppressedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "checks_suppressed_total",
				Help:      "Total number of error checks disabled for a frame",
			},
			[]string{"category"},
		),

		entitiesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "entities_touched_total",
				Help:      "Total number of entities changed by a pass",
			},
			[]string{"pass"},
		),

		conflictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "composition_conflicts_total",
				Help:      "Total number of composition flags dropped for a topology conflict",
			},
			[]string{"flag"},
		),
	}

	registry.MustRegister(
		pm.framesTotal,
		pm.passRunsTotal,
		pm.passDuration,
		pm.suppressedTotal,
		pm.entitiesTotal,
		pm.conflictsTotal,
	)

	return pm
}

// RecordFrame records one completed frame.
func (pm *PipelineMetrics) RecordFrame(anarchyApplies bool) {
	label := "off"
	if anarchyApplies {
		label = "on"
	}
	pm.framesTotal.WithLabelValues(label).Inc()
}

// RecordPass records a pass execution.
//
// Parameters:
//   - pass: Pass name
//   - result: "ok", "error", "panic", "skipped", or "disabled"
//   - duration: Time taken by the pass
func (pm *PipelineMetrics) RecordPass(pass, result string, duration time.Duration) {
	pm.passRunsTotal.WithLabelValues(pass, result).Inc()
	if result == "skipped" || result == "disabled" {
		return
	}
	pm.passDuration.WithLabelValues(pass).Observe(duration.Seconds())
}

// RecordSuppressed records an error check disabled for the current frame.
func (pm *PipelineMetrics) RecordSuppressed(category string) {
	pm.suppressedTotal.WithLabelValues(category).Inc()
}

// RecordEntities records n entities changed by a pass.
func (pm *PipelineMetrics) RecordEntities(pass string, n int) {
	if n <= 0 {
		return
	}
	pm.entitiesTotal.WithLabelValues(pass).Add(float64(n))
}

// RecordConflict records a dropped composition flag.
func (pm *PipelineMetrics) RecordConflict(flag string) {
	pm.conflictsTotal.WithLabelValues(flag).Inc()
}
