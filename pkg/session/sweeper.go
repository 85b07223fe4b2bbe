package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"skyline-hq/anarchy/pkg/telemetry/metrics"
)

// Sweeper evicts idle sessions on a cron schedule.
type Sweeper struct {
	arena    *Arena
	schedule string
	idleTTL  time.Duration
	cron     *cron.Cron
	metrics  *metrics.Collector
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewSweeper creates a sweeper. schedule is a standard five-field cron
// expression; an empty schedule disables sweeping.
func NewSweeper(arena *Arena, schedule string, idleTTL time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		arena:    arena,
		schedule: schedule,
		idleTTL:  idleTTL,
		cron:     cron.New(),
		logger:   logger.With("component", "session.sweeper"),
	}
}

// WithMetrics records evictions and the live session count on m.
func (s *Sweeper) WithMetrics(m *metrics.Collector) *Sweeper {
	s.metrics = m
	return s
}

// Start schedules sweeping until ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping sweeper")
		return nil
	}
	if s.idleTTL <= 0 {
		return fmt.Errorf("idle ttl must be positive, got %v", s.idleTTL)
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.SweepNow() }); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("session sweeper started",
		"schedule", s.schedule,
		"idle_ttl", s.idleTTL,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// SweepNow evicts sessions idle for longer than the TTL.
func (s *Sweeper) SweepNow() int {
	evicted := s.arena.Sweep(s.arena.now().Add(-s.idleTTL))
	s.metrics.RecordEvicted(evicted)
	s.metrics.SetActiveSessions(s.arena.Len())
	if evicted > 0 {
		s.logger.Info("evicted idle sessions", "count", evicted)
	}
	return evicted
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("session sweeper stopped")
	}
}

// IsRunning reports whether the schedule is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
