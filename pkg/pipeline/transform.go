package pipeline

import (
	"context"

	"skyline-hq/anarchy/pkg/placement"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
)

// TransformConsistency puts temp entities back on the transform the tool
// asked for. The host nudges temp entities off overlapping geometry while it
// resolves placement; with overlap permitted that nudge is wrong.
type TransformConsistency struct {
	metrics *metrics.Collector
}

// Name returns the pass name.
func (p *TransformConsistency) Name() string { return PassTransform }

// Run restores the intended transform on created or updated temp entities.
func (p *TransformConsistency) Run(_ context.Context, f *Frame) error {
	if !f.AnarchyApplies {
		return nil
	}

	candidates := f.Set.Select(func(e *placement.Entity) bool {
		return e.IsTemp() &&
			e.Intended != nil &&
			e.Flags.Any(placement.FlagCreated|placement.FlagUpdated) &&
			!e.Flags.Has(placement.FlagDeleted)
	})

	corrected := 0
	for _, e := range candidates {
		if e.Transform.ApproxEqual(*e.Intended) {
			continue
		}
		e.Transform = *e.Intended
		e.Flags |= placement.FlagUpdated
		f.Report.Corrected = append(f.Report.Corrected, e.ID)
		corrected++
	}

	p.metrics.RecordEntities(PassTransform, corrected)
	return nil
}
