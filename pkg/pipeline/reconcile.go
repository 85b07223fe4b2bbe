package pipeline

import (
	"context"

	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/placement"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
)

// overlapAllowed reports whether placed entities may coexist with the
// entities they overlap this frame.
func overlapAllowed(f *Frame) bool {
	return f.Checks != nil && f.Checks.Disables(errorcheck.OverlapExisting, f.AnarchyApplies)
}

// PreventOverride strips the pending-override marker from existing entities
// a temp entity is about to replace, so the host does not destroy them on
// commit. Both entities then coexist.
type PreventOverride struct {
	metrics *metrics.Collector
}

// Name returns the pass name.
func (p *PreventOverride) Name() string { return PassPreventOverride }

// Run clears pending overrides.
func (p *PreventOverride) Run(_ context.Context, f *Frame) error {
	if !overlapAllowed(f) {
		return nil
	}

	preserved := 0
	preserve := func(e *placement.Entity) {
		if e.IsTemp() || e.Flags.Has(placement.FlagDeleted) || !e.Flags.Has(placement.FlagOverridden) {
			return
		}
		e.Flags &^= placement.FlagOverridden
		e.Flags |= placement.FlagPreserved
		f.Report.Preserved = append(f.Report.Preserved, e.ID)
		preserved++
	}

	for _, t := range f.Set.Select(func(e *placement.Entity) bool { return e.IsTemp() && e.Overrides != 0 }) {
		if target, ok := f.Set.Get(t.Overrides); ok {
			preserve(target)
		}
		t.Overrides = 0
	}
	for _, e := range f.Set.Entities() {
		preserve(e)
	}

	p.metrics.RecordEntities(PassPreventOverride, preserved)
	return nil
}

// RemoveOverridden reverses destruction the host applied before this
// frame's pipeline ran, for overlaps the policy permits.
type RemoveOverridden struct {
	metrics *metrics.Collector
}

// Name returns the pass name.
func (p *RemoveOverridden) Name() string { return PassRemoveOverridden }

// Run reactivates overridden-and-deleted existing entities.
func (p *RemoveOverridden) Run(_ context.Context, f *Frame) error {
	if !overlapAllowed(f) {
		return nil
	}

	destroyed := f.Set.Select(func(e *placement.Entity) bool {
		return !e.IsTemp() && e.Flags.Has(placement.FlagOverridden|placement.FlagDeleted)
	})
	for _, e := range destroyed {
		e.Flags &^= placement.FlagOverridden | placement.FlagDeleted
		e.Flags |= placement.FlagUpdated | placement.FlagPreserved
		f.Report.Restored = append(f.Report.Restored, e.ID)
	}

	p.metrics.RecordEntities(PassRemoveOverridden, len(destroyed))
	return nil
}

// PreventCulling exempts preserved entities from culling. The host culls
// entities it believes were overridden; a preserved entity would otherwise
// stay alive but never render.
type PreventCulling struct {
	metrics *metrics.Collector
}

// Name returns the pass name.
func (p *PreventCulling) Name() string { return PassPreventCulling }

// Run marks preserved entities cull-exempt and visible.
func (p *PreventCulling) Run(_ context.Context, f *Frame) error {
	unculled := 0
	for _, e := range f.Set.Select(func(e *placement.Entity) bool { return e.Flags.Has(placement.FlagPreserved) }) {
		if e.Flags.Has(placement.FlagCullExempt) && !e.Flags.Has(placement.FlagHidden) {
			continue
		}
		e.Flags |= placement.FlagCullExempt
		e.Flags &^= placement.FlagHidden
		f.Report.Unculled = append(f.Report.Unculled, e.ID)
		unculled++
	}

	p.metrics.RecordEntities(PassPreventCulling, unculled)
	return nil
}
