package pipeline

import (
	"context"

	"github.com/google/uuid"

	"skyline-hq/anarchy/pkg/placement"
	"skyline-hq/anarchy/pkg/session"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
)

// GradeCapture stamps the session grade onto segment definitions created
// this frame.
type GradeCapture struct {
	sessions *session.Arena
}

// Name returns the pass name.
func (p *GradeCapture) Name() string { return PassGradeCapture }

// Run stamps new segment definitions.
func (p *GradeCapture) Run(_ context.Context, f *Frame) error {
	if !f.AnarchyApplies {
		return nil
	}

	for _, d := range f.Set.Definitions() {
		if !d.Created || d.Kind != placement.KindSegment || d.Session == uuid.Nil {
			continue
		}
		d.Grade = p.sessions.Acquire(d.Session, string(f.Tool)).Grade().Slope
		d.GradeStamped = true
	}
	return nil
}

// GradeApply raises the end node of each temp segment so the segment follows
// the session grade. A node given a height earlier in the pass keeps it, so
// segments meeting at a node stay continuous.
type GradeApply struct {
	sessions *session.Arena
	metrics  *metrics.Collector
}

// Name returns the pass name.
func (p *GradeApply) Name() string { return PassGradeApply }

// Run applies session grade to temp segments.
func (p *GradeApply) Run(_ context.Context, f *Frame) error {
	if !f.AnarchyApplies {
		return nil
	}

	assigned := make(map[placement.NodeID]float64)
	applied := 0

	for _, e := range f.Set.Temps(placement.KindSegment) {
		if e.Session == uuid.Nil || e.Flags.Has(placement.FlagDeleted) {
			continue
		}
		state := p.sessions.Acquire(e.Session, string(f.Tool)).Grade()
		if state.Slope == 0 && !state.Locked {
			continue
		}

		start, ok := f.Set.Node(e.StartNode)
		if !ok {
			continue
		}
		end, ok := f.Set.Node(e.EndNode)
		if !ok {
			continue
		}

		startY, ok := assigned[start.ID]
		if !ok {
			startY = start.Position.Y
		}
		endY, ok := assigned[end.ID]
		if !ok {
			endY = startY + state.Slope*e.Length
		}

		grade := 0.0
		if e.Length > 0 {
			grade = (endY - startY) / e.Length
		}

		start.Position.Y = startY
		end.Position.Y = endY
		assigned[start.ID] = startY
		assigned[end.ID] = endY

		e.Grade = grade
		e.Flags |= placement.FlagUpdated
		applied++
	}

	p.metrics.RecordEntities(PassGradeApply, applied)
	return nil
}
