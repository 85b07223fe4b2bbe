package pipeline

import (
	"context"

	"github.com/google/uuid"

	"skyline-hq/anarchy/pkg/placement"
	"skyline-hq/anarchy/pkg/session"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
)

// ElevationCapture stamps the session elevation onto object definitions
// created this frame, so downstream placement treats it as input instead of
// deriving height from terrain.
type ElevationCapture struct {
	sessions *session.Arena
}

// Name returns the pass name.
func (p *ElevationCapture) Name() string { return PassElevationCapture }

// Run stamps new object definitions.
func (p *ElevationCapture) Run(_ context.Context, f *Frame) error {
	if !f.AnarchyApplies {
		return nil
	}

	for _, d := range f.Set.Definitions() {
		if !d.Created || d.Kind != placement.KindObject || d.Session == uuid.Nil {
			continue
		}
		state := p.sessions.Acquire(d.Session, string(f.Tool)).Elevation()
		d.Elevation = state.Offset
		d.ElevationLocked = state.Locked
		d.Stamped = true
	}
	return nil
}

// ElevationApply overwrites the terrain-snapped height of temp objects with
// the session elevation. While the session is locked the absolute height
// captured on the first locked frame is held, whatever the terrain below.
type ElevationApply struct {
	sessions *session.Arena
	metrics  *metrics.Collector
}

// Name returns the pass name.
func (p *ElevationApply) Name() string { return PassElevationApply }

// Run applies session elevation to temp objects.
func (p *ElevationApply) Run(_ context.Context, f *Frame) error {
	if !f.AnarchyApplies {
		return nil
	}

	applied := 0
	for _, e := range f.Set.Temps(placement.KindObject) {
		if e.Session == uuid.Nil || e.Flags.Has(placement.FlagDeleted) {
			continue
		}

		rec := p.sessions.Acquire(e.Session, string(f.Tool))
		state := rec.Elevation()
		y, _ := rec.HoldHeight(e.TerrainHeight + state.Offset)

		if e.Transform.Position.Y == y && e.Elevation == state.Offset {
			continue
		}
		e.Transform.Position.Y = y
		e.Elevation = state.Offset
		e.Flags |= placement.FlagUpdated
		applied++
	}

	p.metrics.RecordEntities(PassElevationApply, applied)
	return nil
}
