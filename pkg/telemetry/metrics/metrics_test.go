package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"skyline-hq/anarchy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
		Subsystem: "pipeline",
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_DefaultsNamespace(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, nil)

	if cfg.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, config.DefaultMetricsNamespace)
	}
}

func TestFromConfig_Disabled(t *testing.T) {
	if c := FromConfig(&config.MetricsConfig{Enabled: false}); c != nil {
		t.Error("expected nil collector when metrics disabled")
	}
	if c := FromConfig(nil); c != nil {
		t.Error("expected nil collector for nil config")
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	c.RecordFrame(true)
	c.RecordPass("p", "ok", time.Millisecond)
	c.RecordSuppressed("OverlapExisting")
	c.RecordEntities("p", 3)
	c.RecordConflict("lowered_curb")
	c.SetActiveSessions(2)
	c.RecordEvicted(1)
	c.RecordSave("file", nil)
	c.RecordReload(nil)

	if c.Registry() != nil {
		t.Error("nil collector should have nil registry")
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCollector_RecordPass(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	tests := []struct {
		name   string
		pass   string
		result string
	}{
		{name: "ok", pass: "errorcheck.suppress", result: "ok"},
		{name: "error", pass: "grade.apply", result: "error"},
		{name: "panic", pass: "grade.apply", result: "panic"},
		{name: "disabled", pass: "elevation.capture", result: "disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.RecordPass(tt.pass, tt.result, 5*time.Microsecond)

			got := testutil.ToFloat64(c.pipeline.passRunsTotal.WithLabelValues(tt.pass, tt.result))
			if got != 1 {
				t.Errorf("pass_runs_total{%s,%s} = %v, want 1", tt.pass, tt.result, got)
			}
		})
	}

	// Disabled passes do not observe a duration.
	if n := testutil.CollectAndCount(c.pipeline.passDuration); n != 2 {
		t.Errorf("pass_duration series = %d, want 2", n)
	}
}

func TestCollector_RecordFrame(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordFrame(true)
	c.RecordFrame(true)
	c.RecordFrame(false)

	if got := testutil.ToFloat64(c.pipeline.framesTotal.WithLabelValues("on")); got != 2 {
		t.Errorf("frames{on} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.pipeline.framesTotal.WithLabelValues("off")); got != 1 {
		t.Errorf("frames{off} = %v, want 1", got)
	}
}

func TestCollector_RecordEntities(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordEntities("transform.consistency", 3)
	c.RecordEntities("transform.consistency", 0)
	c.RecordEntities("transform.consistency", -1)

	if got := testutil.ToFloat64(c.pipeline.entitiesTotal.WithLabelValues("transform.consistency")); got != 3 {
		t.Errorf("entities_touched_total = %v, want 3", got)
	}
}

func TestCollector_SuppressedAndConflicts(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordSuppressed("OverlapExisting")
	c.RecordSuppressed("OverlapExisting")
	c.RecordConflict("extra_track")

	if got := testutil.ToFloat64(c.pipeline.suppressedTotal.WithLabelValues("OverlapExisting")); got != 2 {
		t.Errorf("checks_suppressed_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.pipeline.conflictsTotal.WithLabelValues("extra_track")); got != 1 {
		t.Errorf("composition_conflicts_total = %v, want 1", got)
	}
}

func TestCollector_SessionMetrics(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.SetActiveSessions(4)
	c.RecordEvicted(2)
	c.RecordEvicted(0)
	c.RecordSave("sqlite", nil)
	c.RecordSave("sqlite", errors.New("disk full"))
	c.RecordReload(nil)

	if got := testutil.ToFloat64(c.sessions.active); got != 4 {
		t.Errorf("sessions_active = %v, want 4", got)
	}
	if got := testutil.ToFloat64(c.sessions.evictedTotal); got != 2 {
		t.Errorf("sessions_evicted_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.sessions.savesTotal.WithLabelValues("sqlite", "error")); got != 1 {
		t.Errorf("saves_total{sqlite,error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.sessions.reloadsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("reloads_total{ok} = %v, want 1", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	c.RecordFrame(true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_pipeline_frames_total") {
		t.Errorf("metrics output missing frames_total:\n%s", rec.Body.String())
	}
}
