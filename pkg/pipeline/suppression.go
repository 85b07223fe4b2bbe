package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
)

// SuppressionState is the position of the Suppressor in its per-frame cycle.
type SuppressionState int

const (
	SuppressionIdle SuppressionState = iota
	SuppressionSuppressing
	SuppressionValidated
	SuppressionRestoring
)

// String returns the state name.
func (s SuppressionState) String() string {
	switch s {
	case SuppressionIdle:
		return "idle"
	case SuppressionSuppressing:
		return "suppressing"
	case SuppressionValidated:
		return "validated"
	case SuppressionRestoring:
		return "restoring"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Suppressor disables error checks on the host validator before validation
// and re-enables exactly the ones it disabled afterwards.
//
// Cycle: Idle -> Suppressing -> Validated -> Restoring -> Idle.
type Suppressor struct {
	validator Validator
	metrics   *metrics.Collector
	logger    *slog.Logger

	mu      sync.Mutex
	state   SuppressionState
	toggled []errorcheck.Category
	seen    map[errorcheck.Category]bool
}

// NewSuppressor creates a suppressor for validator.
func NewSuppressor(validator Validator, m *metrics.Collector, logger *slog.Logger) *Suppressor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Suppressor{
		validator: validator,
		metrics:   m,
		logger:    logger.With("component", "pipeline.suppressor"),
		seen:      make(map[errorcheck.Category]bool),
	}
}

// Ready reports ErrMissingHostSystem when no validator was supplied.
func (s *Suppressor) Ready() error {
	if s.validator == nil {
		return fmt.Errorf("%w: %s", ErrMissingHostSystem, SystemValidation)
	}
	return nil
}

// State returns the current cycle state.
func (s *Suppressor) State() SuppressionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Toggled returns the categories disabled by this suppressor and not yet
// restored.
func (s *Suppressor) Toggled() []errorcheck.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]errorcheck.Category, len(s.toggled))
	copy(out, s.toggled)
	return out
}

// Suppress disables every category the frame's snapshot suppresses. A
// category is recorded once per cycle, and a category someone else already
// disabled is neither recorded nor touched. It returns the categories newly
// disabled by this call.
func (s *Suppressor) Suppress(ctx context.Context, f *Frame) ([]errorcheck.Category, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = SuppressionSuppressing

	var added []errorcheck.Category
	for _, c := range f.Checks.DisabledSet(f.AnarchyApplies) {
		if s.seen[c] || s.validator.CheckDisabled(c) {
			continue
		}
		s.validator.DisableCheck(c)
		s.seen[c] = true
		s.toggled = append(s.toggled, c)
		added = append(added, c)
		s.metrics.RecordSuppressed(c.String())
	}

	if len(added) > 0 {
		f.Report.Suppressed = append(f.Report.Suppressed, added...)
		s.logger.DebugContext(ctx, "error checks suppressed", "categories", added)
	}
	return added, nil
}

// Restore re-enables every recorded category, drops error results of the
// frame's suppressed categories into the report, and returns to Idle.
func (s *Suppressor) Restore(ctx context.Context, f *Frame) []errorcheck.Category {
	if s.Ready() != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SuppressionSuppressing {
		s.state = SuppressionValidated
	}
	s.state = SuppressionRestoring

	restored := s.toggled
	for _, c := range restored {
		s.validator.EnableCheck(c)
	}
	s.toggled = nil
	s.seen = make(map[errorcheck.Category]bool)

	if f != nil && f.Checks != nil && f.Set != nil {
		filterSuppressed(f)
	}

	if len(restored) > 0 {
		s.logger.DebugContext(ctx, "error checks restored", "categories", restored)
	}
	s.state = SuppressionIdle
	return restored
}

// filterSuppressed removes results of categories suppressed this frame from
// every entity and records them in the report.
func filterSuppressed(f *Frame) {
	disabled := f.Checks.DisabledSet(f.AnarchyApplies)
	if len(disabled) == 0 {
		return
	}
	drop := make(map[errorcheck.Category]bool, len(disabled))
	for _, c := range disabled {
		drop[c] = true
	}

	for _, e := range f.Set.Entities() {
		if len(e.Errors) == 0 {
			continue
		}
		kept := e.Errors[:0]
		for _, r := range e.Errors {
			if drop[r.Category] {
				f.Report.Filtered = append(f.Report.Filtered, r)
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			e.Errors = nil
		} else {
			e.Errors = kept
		}
	}
}

// SuppressPass returns the pre-validation pass.
func (s *Suppressor) SuppressPass() Pass {
	return &suppressPass{s: s}
}

// RestorePass returns the mandatory post-validation pass.
func (s *Suppressor) RestorePass() Pass {
	return &restorePass{s: s}
}

type suppressPass struct{ s *Suppressor }

func (p *suppressPass) Name() string { return PassSuppress }
func (p *suppressPass) Ready() error { return p.s.Ready() }

func (p *suppressPass) Run(ctx context.Context, f *Frame) error {
	_, err := p.s.Suppress(ctx, f)
	return err
}

type restorePass struct{ s *Suppressor }

func (p *restorePass) Name() string    { return PassRestore }
func (p *restorePass) Ready() error    { return p.s.Ready() }
func (p *restorePass) Mandatory() bool { return true }

func (p *restorePass) Run(ctx context.Context, f *Frame) error {
	p.s.Restore(ctx, f)
	return nil
}
