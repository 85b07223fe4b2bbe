package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"skyline-hq/anarchy/pkg/placement"
	"skyline-hq/anarchy/pkg/session"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
)

// intersectionDegree is the node degree at which a node counts as an
// intersection.
const intersectionDegree = 3

// CompositionModify writes the session's requested composition onto each
// temp segment before validation and snapshots the result.
type CompositionModify struct {
	cfg      Config
	sessions *session.Arena
	metrics  *metrics.Collector
}

// Name returns the pass name.
func (p *CompositionModify) Name() string { return PassCompositionModify }

// Run merges requested flags into each temp segment and drops every merged
// flag that conflicts with topology.
func (p *CompositionModify) Run(ctx context.Context, f *Frame) error {
	if !f.AnarchyApplies {
		return nil
	}

	modified := 0
	for _, e := range f.Set.Temps(placement.KindSegment) {
		if e.Session == uuid.Nil || e.Flags.Has(placement.FlagDeleted) {
			continue
		}
		requested := p.sessions.Acquire(e.Session, string(f.Tool)).Composition()
		if requested == 0 {
			continue
		}

		merged := e.Composition | requested
		allowed := merged
		for _, flag := range merged.Flags() {
			reason, conflict := p.conflict(f.Set, e, flag)
			if !conflict {
				continue
			}
			allowed &^= flag
			f.Report.Conflicts = append(f.Report.Conflicts, CompositionConflict{
				Entity: e.ID,
				Flag:   flag,
				Reason: reason,
			})
			p.metrics.RecordConflict(flag.String())
			f.log().DebugContext(ctx, "composition flag dropped",
				"entity", e.ID,
				"flag", flag.String(),
				"reason", reason,
			)
		}

		e.Composition = allowed
		e.Snapshot = &placement.CompositionSnapshot{Entity: e.ID, Flags: e.Composition}
		modified++
	}

	p.metrics.RecordEntities(PassCompositionModify, modified)
	return nil
}

// conflict reports whether flag violates a hard topology constraint on e.
func (p *CompositionModify) conflict(ws *placement.WorkingSet, e *placement.Entity, flag placement.Composition) (string, bool) {
	switch flag {
	case placement.CompositionLoweredCurb, placement.CompositionWideShoulder:
		start, okStart := ws.Node(e.StartNode)
		end, okEnd := ws.Node(e.EndNode)
		if !okStart || !okEnd {
			return "", false
		}
		delta := math.Abs(end.Position.Y - start.Position.Y)
		if delta <= p.cfg.MaxNodeElevationDelta {
			return "", false
		}
		for _, n := range []*placement.Node{start, end} {
			if ws.NodeDegree(n.ID) >= intersectionDegree {
				return fmt.Sprintf("elevation difference %.2f at intersection %d exceeds %.2f",
					delta, n.ID, p.cfg.MaxNodeElevationDelta), true
			}
		}

	case placement.CompositionExtraTrack:
		height := segmentElevation(ws, e)
		if height > p.cfg.MaxTrackElevation {
			return fmt.Sprintf("elevation %.2f above terrain exceeds %.2f",
				height, p.cfg.MaxTrackElevation), true
		}
	}
	return "", false
}

// segmentElevation is the highest point of a segment above its terrain.
func segmentElevation(ws *placement.WorkingSet, e *placement.Entity) float64 {
	height := e.Elevation
	for _, id := range []placement.NodeID{e.StartNode, e.EndNode} {
		if n, ok := ws.Node(id); ok {
			height = math.Max(height, n.Position.Y-e.TerrainHeight)
		}
	}
	return height
}

// CompositionReset restores the flags captured by CompositionModify after the
// host validator has had a chance to rewrite them, and discards the snapshot.
type CompositionReset struct {
	metrics *metrics.Collector
}

// Name returns the pass name.
func (p *CompositionReset) Name() string { return PassCompositionReset }

// Run restores and discards snapshots.
func (p *CompositionReset) Run(_ context.Context, f *Frame) error {
	reverted := 0
	for _, e := range f.Set.Select(func(e *placement.Entity) bool { return e.Snapshot != nil }) {
		snap := *e.Snapshot
		e.Snapshot = nil
		if e.Composition == snap.Flags {
			continue
		}
		e.Composition = snap.Flags
		f.Report.Reverted = append(f.Report.Reverted, snap)
		reverted++
	}

	p.metrics.RecordEntities(PassCompositionReset, reverted)
	return nil
}
