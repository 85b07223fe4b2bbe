package metrics

import (
	"skyline-hq/anarchy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics tracks tool sessions and policy table persistence.
type SessionMetrics struct {
	// Live tool sessions
	active prometheus.Gauge

	// Sessions removed by the idle sweeper
	evictedTotal prometheus.Counter

	// Policy table saves by backend and result
	savesTotal *prometheus.CounterVec

	// Settings file reloads by result
	reloadsTotal *prometheus.CounterVec
}

// NewSessionMetrics creates and registers session metrics with the provided registry.
func NewSessionMetrics(cfg *config.MetricsConfig, registry prometheus.Registerer) *SessionMetrics {
	sm := &SessionMetrics{
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "sessions",
				Name:      "active",
				Help:      "Number of live tool sessions",
			},
		),

		evictedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "sessions",
				Name:      "evicted_total",
				Help:      "Total number of idle tool sessions evicted",
			},
		),

		savesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "settings",
				Name:      "saves_total",
				Help:      "Total number of policy table saves",
			},
			[]string{"backend", "result"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "settings",
				Name:      "reloads_total",
				Help:      "Total number of policy table reloads from a watched file",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		sm.active,
		sm.evictedTotal,
		sm.savesTotal,
		sm.reloadsTotal,
	)

	return sm
}

// SetActive sets the number of live tool sessions.
func (sm *SessionMetrics) SetActive(n int) {
	sm.active.Set(float64(n))
}

// RecordEvicted records sessions removed by a sweep.
func (sm *SessionMetrics) RecordEvicted(n int) {
	if n > 0 {
		sm.evictedTotal.Add(float64(n))
	}
}

// RecordSave records a policy table save.
func (sm *SessionMetrics) RecordSave(backend string, err error) {
	sm.savesTotal.WithLabelValues(backend, result(err)).Inc()
}

// RecordReload records a settings reload.
func (sm *SessionMetrics) RecordReload(err error) {
	sm.reloadsTotal.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
