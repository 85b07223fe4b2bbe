package hostsim

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/pipeline"
	"skyline-hq/anarchy/pkg/placement"
)

// Placement kinds accepted in a Placement.
const (
	KindObject  = "object"
	KindSegment = "segment"
)

// Placement is one tool request in a frame.
type Placement struct {
	Kind   string  `yaml:"kind" json:"kind"`
	X      float64 `yaml:"x" json:"x,omitempty"`
	Z      float64 `yaml:"z" json:"z,omitempty"`
	Yaw    float64 `yaml:"yaw" json:"yaw,omitempty"`
	Radius float64 `yaml:"radius" json:"radius,omitempty"`

	Start placement.NodeID `yaml:"start" json:"start,omitempty"`
	End   placement.NodeID `yaml:"end" json:"end,omitempty"`
}

// nudgeGap is the clearance left between a nudged object and what it was
// pushed off.
const nudgeGap = 0.01

// Outcome is what the host did with a frame's temp entities.
type Outcome struct {
	Committed []placement.EntityID `json:"committed,omitempty"`
	Rejected  []placement.EntityID `json:"rejected,omitempty"`
	Destroyed []placement.EntityID `json:"destroyed,omitempty"`
	Purged    []placement.EntityID `json:"purged,omitempty"`
	Hidden    []placement.EntityID `json:"hidden,omitempty"`
}

// Host owns the world and implements the host systems around the passes.
// A host runs one frame at a time.
type Host struct {
	world     *World
	validator *Validator
	logger    *slog.Logger

	radius   map[placement.DefinitionID]float64
	derived  map[placement.EntityID]placement.Transform
	doomed   map[placement.EntityID]bool
	tooltips []string
}

// NewHost creates a host over world.
func NewHost(world *World, validator *Validator, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		world:     world,
		validator: validator,
		logger:    logger.With("component", "hostsim"),
		radius:    make(map[placement.DefinitionID]float64),
		derived:   make(map[placement.EntityID]placement.Transform),
		doomed:    make(map[placement.EntityID]bool),
	}
}

// World returns the host world.
func (h *Host) World() *World { return h.world }

// Validator returns the host validator.
func (h *Host) Validator() *Validator { return h.validator }

// Tooltips returns the tooltip lines built during the last frame.
func (h *Host) Tooltips() []string {
	out := make([]string, len(h.tooltips))
	copy(out, h.tooltips)
	return out
}

// Systems returns the host systems as schedule registrations.
func (h *Host) Systems() []pipeline.Registration {
	sys := func(name string, phase pipeline.Phase, fn func(*pipeline.Frame)) pipeline.Registration {
		return pipeline.Registration{
			Slot: pipeline.Slot{Name: name, Phase: phase},
			Pass: pipeline.NewPassFunc(name, func(_ context.Context, f *pipeline.Frame) error {
				fn(f)
				return nil
			}),
		}
	}
	return []pipeline.Registration{
		sys(pipeline.SystemRaycastInit, pipeline.PhaseToolUpdate, h.raycast),
		sys(pipeline.SystemTooltip, pipeline.PhaseToolUpdate, h.tooltip),
		sys(pipeline.SystemTempCreation, pipeline.PhaseModification, h.createTemps),
		sys(pipeline.SystemTransformReset, pipeline.PhaseModification, h.resetTransforms),
		sys(pipeline.SystemValidation, pipeline.PhaseValidation, func(f *pipeline.Frame) {
			h.validator.Validate(f.Set)
		}),
		sys(pipeline.SystemCulling, pipeline.PhaseRendering, h.cull),
	}
}

// BeginFrame builds the working set for one frame: every committed entity,
// a copy of every node and one definition per placement.
func (h *Host) BeginFrame(session uuid.UUID, places []Placement) (*placement.WorkingSet, error) {
	ws := placement.NewWorkingSet()
	h.radius = make(map[placement.DefinitionID]float64)
	h.derived = make(map[placement.EntityID]placement.Transform)
	h.doomed = make(map[placement.EntityID]bool)
	h.tooltips = nil

	for _, e := range h.world.Entities() {
		e.Flags &^= placement.FlagHidden | placement.FlagCreated | placement.FlagUpdated
		e.Errors = nil
		if e.Flags.Has(placement.FlagOverridden | placement.FlagDeleted) {
			h.doomed[e.ID] = true
		}
		if err := ws.Add(e); err != nil {
			return nil, err
		}
	}
	for _, n := range h.world.nodeCopies() {
		ws.SetNode(n)
	}

	for i, p := range places {
		d := &placement.Definition{
			ID:       placement.DefinitionID(i + 1),
			Session:  session,
			Created:  true,
			Position: placement.Vec3{X: p.X, Z: p.Z},
			Yaw:      p.Yaw,
		}
		switch p.Kind {
		case KindObject, "":
			d.Kind = placement.KindObject
			h.radius[d.ID] = p.Radius
		case KindSegment:
			a, okA := ws.Node(p.Start)
			b, okB := ws.Node(p.End)
			if !okA || !okB {
				return nil, fmt.Errorf("placement %d: segment %d-%d references an unknown node", i, p.Start, p.End)
			}
			d.Kind = placement.KindSegment
			d.StartNode = p.Start
			d.EndNode = p.End
			d.Length = math.Hypot(b.Position.X-a.Position.X, b.Position.Z-a.Position.Z)
		default:
			return nil, fmt.Errorf("placement %d: unknown kind %q", i, p.Kind)
		}
		ws.AddDefinition(d)
	}
	return ws, nil
}

// raycast snaps object definitions to the terrain under the cursor.
func (h *Host) raycast(f *pipeline.Frame) {
	for _, d := range f.Set.Definitions() {
		if d.Kind == placement.KindObject {
			d.Position.Y = h.world.Terrain.HeightAt(d.Position.X, d.Position.Z)
		}
	}
}

// tooltip describes what the tool is about to place.
func (h *Host) tooltip(f *pipeline.Frame) {
	for _, d := range f.Set.Definitions() {
		switch {
		case d.Kind == placement.KindObject && d.Stamped:
			lock := ""
			if d.ElevationLocked {
				lock = " (locked)"
			}
			h.tooltips = append(h.tooltips, fmt.Sprintf("object %d: elevation %+.2f%s", d.ID, d.Elevation, lock))
		case d.Kind == placement.KindObject:
			h.tooltips = append(h.tooltips, fmt.Sprintf("object %d: on ground", d.ID))
		case d.GradeStamped:
			h.tooltips = append(h.tooltips, fmt.Sprintf("segment %d: grade %.3f", d.ID, d.Grade))
		default:
			h.tooltips = append(h.tooltips, fmt.Sprintf("segment %d: length %.1f", d.ID, d.Length))
		}
	}
}

// createTemps turns definitions into temp entities. Objects are nudged off
// whatever they overlap and sit on the terrain; stamped elevation is not the
// host's concern.
func (h *Host) createTemps(f *pipeline.Frame) {
	existing := f.Set.Select(func(e *placement.Entity) bool { return !e.IsTemp() && e.Active() })

	for _, d := range f.Set.Definitions() {
		e := &placement.Entity{
			ID:         h.world.alloc(),
			Kind:       d.Kind,
			Flags:      placement.FlagTemp | placement.FlagCreated,
			Session:    d.Session,
			Definition: d.ID,
		}

		switch d.Kind {
		case placement.KindObject:
			intended := placement.Transform{Position: d.Position, Yaw: d.Yaw}
			e.Intended = &intended
			e.Radius = h.radius[d.ID]
			e.TerrainHeight = d.Position.Y
			e.Transform = intended
			h.nudge(e, existing)
		case placement.KindSegment:
			a, _ := f.Set.Node(d.StartNode)
			b, _ := f.Set.Node(d.EndNode)
			e.StartNode = d.StartNode
			e.EndNode = d.EndNode
			shapeSegment(e, a, b)
		}

		h.derived[e.ID] = e.Transform
		if err := f.Set.Add(e); err != nil {
			h.logger.Error("temp entity rejected", "entity", e.ID, "error", err)
		}
	}
}

// nudge pushes a temp object out of every object it overlaps.
func (h *Host) nudge(e *placement.Entity, existing []*placement.Entity) {
	for _, o := range existing {
		if !overlaps(e, o) {
			continue
		}
		dx := e.Transform.Position.X - o.Transform.Position.X
		dz := e.Transform.Position.Z - o.Transform.Position.Z
		d := math.Hypot(dx, dz)
		if d == 0 {
			dx, d = 1, 1
		}
		push := (e.Radius + o.Radius + nudgeGap) / d
		e.Transform.Position.X = o.Transform.Position.X + dx*push
		e.Transform.Position.Z = o.Transform.Position.Z + dz*push
		e.Transform.Position.Y = h.world.Terrain.HeightAt(e.Transform.Position.X, e.Transform.Position.Z)
	}
}

// resetTransforms snaps temps nobody updated back to the host-derived
// transform and re-syncs the rest.
func (h *Host) resetTransforms(f *pipeline.Frame) {
	for _, e := range f.Set.Select(func(e *placement.Entity) bool { return e.IsTemp() }) {
		if !e.Flags.Has(placement.FlagUpdated) {
			if t, ok := h.derived[e.ID]; ok {
				e.Transform = t
			}
			continue
		}
		e.Revision++
		if e.Kind == placement.KindSegment {
			a, okA := f.Set.Node(e.StartNode)
			b, okB := f.Set.Node(e.EndNode)
			if okA && okB {
				shapeSegment(e, a, b)
			}
		}
	}
}

// cull hides committed entities a temp entity overlaps or replaces.
func (h *Host) cull(f *pipeline.Frame) {
	temps := f.Set.Temps(placement.KindObject)
	for _, e := range f.Set.Select(func(e *placement.Entity) bool { return !e.IsTemp() }) {
		if e.Flags.Has(placement.FlagCullExempt) {
			continue
		}
		hide := e.Flags.Has(placement.FlagOverridden)
		for _, t := range temps {
			if overlaps(t, e) {
				hide = true
				break
			}
		}
		if hide {
			e.Flags |= placement.FlagHidden
		}
	}
}

// EndFrame applies the frame. With commit, temps without error-severity
// results become committed entities, and entities they still replace are
// destroyed. Entities destroyed by an earlier frame that this frame did not
// restore are purged. Without commit every temp is discarded.
func (h *Host) EndFrame(ws *placement.WorkingSet, commit bool) Outcome {
	var out Outcome

	for _, e := range ws.Select(func(e *placement.Entity) bool { return !e.IsTemp() && e.Flags.Has(placement.FlagHidden) }) {
		out.Hidden = append(out.Hidden, e.ID)
	}

	for _, t := range ws.Select(func(e *placement.Entity) bool { return e.IsTemp() }) {
		if !commit || t.Flags.Has(placement.FlagDeleted) {
			continue
		}
		if blocking(t) {
			out.Rejected = append(out.Rejected, t.ID)
			continue
		}

		if t.Overrides != 0 {
			if target, ok := h.world.Entity(t.Overrides); ok && target.Flags.Has(placement.FlagOverridden) {
				target.Flags |= placement.FlagDeleted
				out.Destroyed = append(out.Destroyed, target.ID)
			}
		}
		if t.Kind == placement.KindSegment {
			for _, id := range []placement.NodeID{t.StartNode, t.EndNode} {
				if n, ok := ws.Node(id); ok {
					h.world.storeNode(*n)
				}
			}
		}

		t.Flags &^= placement.FlagTemp | placement.FlagCreated | placement.FlagUpdated | placement.FlagHidden
		t.Errors = nil
		t.Intended = nil
		t.Snapshot = nil
		t.Overrides = 0
		t.Session = uuid.Nil
		h.world.commit(t)
		out.Committed = append(out.Committed, t.ID)
	}

	for _, e := range h.world.Entities() {
		switch {
		case h.doomed[e.ID] && e.Flags.Has(placement.FlagOverridden|placement.FlagDeleted):
			h.world.remove(e.ID)
			out.Purged = append(out.Purged, e.ID)
		case e.Flags.Has(placement.FlagOverridden) && !e.Flags.Has(placement.FlagDeleted):
			// Pending replacement by a temp that was not committed.
			e.Flags &^= placement.FlagOverridden
		}
	}

	if len(out.Destroyed) > 0 || len(out.Purged) > 0 {
		h.logger.Debug("frame applied",
			"committed", len(out.Committed),
			"destroyed", out.Destroyed,
			"purged", out.Purged,
		)
	}
	return out
}

// blocking reports whether an entity carries an error-severity result.
func blocking(e *placement.Entity) bool {
	for _, r := range e.Errors {
		if r.Severity == errorcheck.SeverityError {
			return true
		}
	}
	return false
}
