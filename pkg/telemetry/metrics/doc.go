// Package metrics provides Prometheus metrics for the anarchy pipeline.
//
// # Metrics Categories
//
//   - Pipeline: frames, pass runs and durations, suppressed checks, entities
//     touched per pass, composition conflicts
//   - Sessions: live tool sessions and idle evictions
//   - Settings: policy table saves and file reloads
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordPass("errorcheck.suppress", "ok", 12*time.Microsecond)
//	http.Handle("/metrics", collector.Handler())
//
// All Collector methods are safe on a nil receiver.
package metrics
