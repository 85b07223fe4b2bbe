package hostsim

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"skyline-hq/anarchy/pkg/anarchy"
	"skyline-hq/anarchy/pkg/bridge"
	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/pipeline"
	"skyline-hq/anarchy/pkg/placement"
	"skyline-hq/anarchy/pkg/session"
	"skyline-hq/anarchy/pkg/telemetry/logging"
)

func newSim(t *testing.T, world *World, anarchyOn bool) (*Simulator, *errorcheck.Registry) {
	t.Helper()
	registry := errorcheck.NewDefaultRegistry(nil, logging.Discard())
	sim, err := NewSimulator(world, Limits{}, Deps{
		Registry: registry,
		Mode:     anarchy.NewState(anarchyOn, anarchy.ToolObject, anarchy.ToolNet),
		Sessions: session.NewArena(session.Config{}),
		Pipeline: pipeline.Config{MaxNodeElevationDelta: 2, MaxTrackElevation: 25},
		Logger:   logging.Discard(),
	})
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}
	return sim, registry
}

func step(t *testing.T, sim *Simulator, f Frame) *FrameResult {
	t.Helper()
	res, err := sim.Step(context.Background(), f)
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	return res
}

func ids(v ...placement.EntityID) []placement.EntityID { return v }

func TestSimulator_Overlap(t *testing.T) {
	t.Run("anarchy keeps both objects", func(t *testing.T) {
		world := NewWorld(Terrain{})
		existing := world.AddObject(0, 0, 2, 0)
		sim, _ := newSim(t, world, true)

		res := step(t, sim, Frame{
			Place:  []Placement{{Kind: KindObject, X: 1, Radius: 2}},
			Commit: true,
		})

		if !reflect.DeepEqual(res.Report.Corrected, ids(2)) {
			t.Errorf("Corrected = %v, want [2]", res.Report.Corrected)
		}
		if !reflect.DeepEqual(res.Report.Preserved, ids(existing.ID)) {
			t.Errorf("Preserved = %v, want [%d]", res.Report.Preserved, existing.ID)
		}
		if !reflect.DeepEqual(res.Report.Unculled, ids(existing.ID)) {
			t.Errorf("Unculled = %v, want [%d]", res.Report.Unculled, existing.ID)
		}
		if !reflect.DeepEqual(res.Outcome.Committed, ids(2)) {
			t.Fatalf("Committed = %v, want [2]", res.Outcome.Committed)
		}
		if world.Len() != 2 {
			t.Errorf("world has %d entities, want 2", world.Len())
		}
		placed, _ := world.Entity(2)
		if placed.Transform.Position.X != 1 {
			t.Errorf("placed X = %v, want 1 (not nudged)", placed.Transform.Position.X)
		}
		if !existing.Active() || !existing.Visible() {
			t.Errorf("existing flags = %v, want active and visible", existing.Flags)
		}
		if len(res.StillDisabled) != 0 {
			t.Errorf("StillDisabled = %v, want none", res.StillDisabled)
		}
		if sim.Host().Validator().Disables() == 0 {
			t.Error("validator was never asked to disable a check")
		}
	})

	t.Run("vanilla nudges the new object", func(t *testing.T) {
		world := NewWorld(Terrain{})
		world.AddObject(0, 0, 2, 0)
		sim, _ := newSim(t, world, false)

		res := step(t, sim, Frame{
			Place:  []Placement{{Kind: KindObject, X: 1, Radius: 2}},
			Commit: true,
		})

		if len(res.Report.Preserved) != 0 || len(res.Report.Corrected) != 0 {
			t.Errorf("anarchy passes ran with anarchy off: %+v", res.Report)
		}
		if len(res.Outcome.Committed) != 1 {
			t.Fatalf("Committed = %v, want one entity", res.Outcome.Committed)
		}
		placed, _ := world.Entity(res.Outcome.Committed[0])
		if got := placed.Transform.Position.X; math.Abs(got-(4+nudgeGap)) > 1e-9 {
			t.Errorf("placed X = %v, want %v", got, 4+nudgeGap)
		}
		if sim.Host().Validator().Disables() != 0 {
			t.Errorf("validator disabled %d checks with anarchy off", sim.Host().Validator().Disables())
		}
	})
}

func TestSimulator_RemoveOverridden(t *testing.T) {
	// A check disabled outside the pipeline lets the host destroy what the
	// new object overlaps.
	destroy := func(t *testing.T) (*Simulator, *World) {
		t.Helper()
		world := NewWorld(Terrain{})
		world.AddObject(0, 0, 2, 0)
		sim, registry := newSim(t, world, true)
		if err := registry.SetPolicy(context.Background(), errorcheck.OverlapExisting, errorcheck.Never); err != nil {
			t.Fatalf("SetPolicy() error = %v", err)
		}
		sim.Host().Validator().DisableCheck(errorcheck.OverlapExisting)

		res := step(t, sim, Frame{
			Place:  []Placement{{Kind: KindObject, X: 1, Radius: 2}},
			Commit: true,
		})
		if !reflect.DeepEqual(res.Outcome.Destroyed, ids(1)) {
			t.Fatalf("Destroyed = %v, want [1]", res.Outcome.Destroyed)
		}
		if !reflect.DeepEqual(res.Outcome.Hidden, ids(1)) {
			t.Errorf("Hidden = %v, want [1]", res.Outcome.Hidden)
		}
		want := []errorcheck.Category{errorcheck.OverlapExisting}
		if !reflect.DeepEqual(res.StillDisabled, want) {
			t.Errorf("StillDisabled = %v, want %v", res.StillDisabled, want)
		}
		return sim, world
	}

	t.Run("restored when policy allows overlap", func(t *testing.T) {
		sim, world := destroy(t)
		res := step(t, sim, Frame{
			Triggers: []Trigger{{Name: bridge.TriggerChangeDisabledState, Args: []string{"0", "WithAnarchy"}}},
		})

		if len(res.TriggerErrors) != 0 {
			t.Fatalf("TriggerErrors = %v", res.TriggerErrors)
		}
		if !reflect.DeepEqual(res.Report.Restored, ids(1)) {
			t.Errorf("Restored = %v, want [1]", res.Report.Restored)
		}
		if len(res.Outcome.Purged) != 0 {
			t.Errorf("Purged = %v, want none", res.Outcome.Purged)
		}
		e, ok := world.Entity(1)
		if !ok || !e.Active() {
			t.Errorf("entity 1 not active after restore")
		}
	})

	t.Run("purged otherwise", func(t *testing.T) {
		sim, world := destroy(t)
		res := step(t, sim, Frame{})

		if !reflect.DeepEqual(res.Outcome.Purged, ids(1)) {
			t.Errorf("Purged = %v, want [1]", res.Outcome.Purged)
		}
		if _, ok := world.Entity(1); ok {
			t.Error("entity 1 still in world")
		}
	})
}

func TestSimulator_ElevationLock(t *testing.T) {
	world := NewWorld(Terrain{Hills: []Disc{{X: 50, Z: 50, Radius: 10, Height: 5}}})
	sim, _ := newSim(t, world, true)
	onHill := []Placement{{Kind: KindObject, X: 50, Z: 50, Radius: 1}}

	res := step(t, sim, Frame{
		Triggers: []Trigger{{Name: bridge.TriggerAdjustElevation, Args: []string{"up"}}},
		Place:    onHill,
	})
	if !reflect.DeepEqual(res.Tooltips, []string{"object 1: elevation +10.00"}) {
		t.Errorf("Tooltips = %v", res.Tooltips)
	}

	res = step(t, sim, Frame{
		Triggers: []Trigger{{Name: bridge.TriggerToggleElevationLock}},
		Place:    onHill,
	})
	if len(res.Tooltips) != 1 || !strings.HasSuffix(res.Tooltips[0], "(locked)") {
		t.Errorf("Tooltips = %v, want locked", res.Tooltips)
	}

	// Off the hill the locked absolute height is held.
	res = step(t, sim, Frame{
		Triggers: []Trigger{{Name: bridge.TriggerAdjustElevation, Args: []string{"up"}}},
		Place:    []Placement{{Kind: KindObject, X: 0, Z: 0, Radius: 1}},
		Commit:   true,
	})
	if len(res.TriggerErrors) != 1 || !strings.Contains(res.TriggerErrors[0], session.ErrLocked.Error()) {
		t.Errorf("TriggerErrors = %v, want locked error", res.TriggerErrors)
	}
	if len(res.Outcome.Committed) != 1 {
		t.Fatalf("Committed = %v, want one entity", res.Outcome.Committed)
	}
	placed, _ := world.Entity(res.Outcome.Committed[0])
	if placed.Transform.Position.Y != 15 || placed.Elevation != 10 {
		t.Errorf("placed Y = %v elevation = %v, want 15 and 10", placed.Transform.Position.Y, placed.Elevation)
	}
}

func TestSimulator_EndSession(t *testing.T) {
	sim, _ := newSim(t, NewWorld(Terrain{}), true)
	onGround := []Placement{{Kind: KindObject, X: 0, Z: 0, Radius: 1}}

	res := step(t, sim, Frame{
		Triggers:   []Trigger{{Name: bridge.TriggerAdjustElevation, Args: []string{"up"}}},
		Place:      onGround,
		EndSession: true,
	})
	if len(res.Tooltips) != 1 || !strings.HasSuffix(res.Tooltips[0], "elevation +10.00") {
		t.Errorf("Tooltips = %v, want +10.00", res.Tooltips)
	}
	if !reflect.DeepEqual(res.SessionsEnded, []anarchy.ToolID{anarchy.ToolObject}) {
		t.Errorf("SessionsEnded = %v, want [object]", res.SessionsEnded)
	}
	if n := sim.deps.Sessions.Len(); n != 0 {
		t.Errorf("arena Len() = %d after end, want 0", n)
	}

	res = step(t, sim, Frame{Place: onGround})
	if len(res.Tooltips) != 1 || !strings.HasSuffix(res.Tooltips[0], "elevation +0.00") {
		t.Errorf("Tooltips = %v, want elevation reset to +0.00", res.Tooltips)
	}

	t.Run("tool change", func(t *testing.T) {
		res := step(t, sim, Frame{Tool: string(anarchy.ToolNet)})
		if !reflect.DeepEqual(res.SessionsEnded, []anarchy.ToolID{anarchy.ToolObject}) {
			t.Errorf("SessionsEnded = %v, want [object]", res.SessionsEnded)
		}
		if n := sim.deps.Sessions.Len(); n != 1 {
			t.Errorf("arena Len() = %d, want only the net session", n)
		}
	})
}

func TestSimulator_GradeAndComposition(t *testing.T) {
	world := NewWorld(Terrain{})
	world.AddNode(1, 0, 0, 0)
	world.AddNode(2, 20, 0, 0)
	world.AddNode(3, 40, 0, 0)
	world.AddNode(4, 20, 20, 0)
	for _, s := range [][2]placement.NodeID{{1, 2}, {4, 2}} {
		if _, err := world.AddSegment(s[0], s[1], 0); err != nil {
			t.Fatalf("AddSegment() error = %v", err)
		}
	}
	sim, _ := newSim(t, world, true)

	res := step(t, sim, Frame{
		Tool: string(anarchy.ToolNet),
		Triggers: []Trigger{
			{Name: bridge.TriggerSetGrade, Args: []string{"0.2"}},
			{Name: bridge.TriggerToggleComposition, Args: []string{"lowered_curb"}},
			{Name: bridge.TriggerToggleComposition, Args: []string{"extra_track"}},
		},
		Place:  []Placement{{Kind: KindSegment, Start: 2, End: 3}},
		Commit: true,
	})

	if len(res.TriggerErrors) != 0 {
		t.Fatalf("TriggerErrors = %v", res.TriggerErrors)
	}
	if !reflect.DeepEqual(res.Tooltips, []string{"segment 1: grade 0.200"}) {
		t.Errorf("Tooltips = %v", res.Tooltips)
	}
	if len(res.Report.Conflicts) != 1 || res.Report.Conflicts[0].Flag != placement.CompositionLoweredCurb {
		t.Errorf("Conflicts = %v, want one lowered curb conflict", res.Report.Conflicts)
	}
	if len(res.Report.Reverted) != 1 || res.Report.Reverted[0].Flags != placement.CompositionExtraTrack {
		t.Errorf("Reverted = %v, want extra track snapshot", res.Report.Reverted)
	}
	if !reflect.DeepEqual(res.Outcome.Committed, ids(3)) {
		t.Fatalf("Committed = %v, want [3]", res.Outcome.Committed)
	}

	seg, _ := world.Entity(3)
	if seg.Composition != placement.CompositionExtraTrack {
		t.Errorf("composition = %v, want extra track", seg.Composition)
	}
	if math.Abs(seg.Grade-0.2) > 1e-9 {
		t.Errorf("grade = %v, want 0.2", seg.Grade)
	}
	if n, _ := world.Node(3); math.Abs(n.Position.Y-4) > 1e-9 {
		t.Errorf("node 3 Y = %v, want 4", n.Position.Y)
	}
	if v, _ := sim.Sink().(*bridge.RecordingSink).Value(bridge.BindCompositionConflicts); len(v.([]string)) != 1 {
		t.Errorf("published conflicts = %v", v)
	}
}

func TestSimulator_CancelledFrameRestores(t *testing.T) {
	world := NewWorld(Terrain{})
	world.AddObject(0, 0, 2, 0)
	sim, _ := newSim(t, world, true)

	res := step(t, sim, Frame{
		Place:  []Placement{{Kind: KindObject, X: 1, Radius: 2}},
		Cancel: true,
	})

	if !res.Report.Ran(pipeline.PassRestore) {
		t.Error("restore pass did not run on a cancelled frame")
	}
	if res.Report.Ran(pipeline.PassTransform) {
		t.Error("transform pass ran on a cancelled frame")
	}
	if len(res.StillDisabled) != 0 {
		t.Errorf("StillDisabled = %v, want none", res.StillDisabled)
	}
}

func TestSimulator_AlreadyExistsRejected(t *testing.T) {
	world := NewWorld(Terrain{})
	world.AddObject(5, 5, 2, 0)
	sim, _ := newSim(t, world, true)

	res := step(t, sim, Frame{
		Place:  []Placement{{Kind: KindObject, X: 5, Z: 5, Radius: 2}},
		Commit: true,
	})

	if len(res.Outcome.Rejected) != 1 || len(res.Outcome.Committed) != 0 {
		t.Errorf("Outcome = %+v, want the duplicate rejected", res.Outcome)
	}
	if world.Len() != 1 {
		t.Errorf("world has %d entities, want 1", world.Len())
	}
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "no frames", yaml: "name: empty\n"},
		{name: "bad yaml", yaml: "frames: [\n"},
		{name: "bad policy", yaml: "policies:\n  InWater: sometimes\nframes:\n  - commit: true\n"},
		{name: "unknown node", yaml: "frames:\n  - place:\n      - {kind: segment, start: 1, end: 2}\n"},
		{name: "bad kind", yaml: "frames:\n  - place:\n      - {kind: bridge}\n"},
		{name: "negative repeat", yaml: "frames:\n  - repeat: -1\n"},
		{name: "nameless trigger", yaml: "frames:\n  - triggers:\n      - args: [up]\n"},
		{
			name: "duplicate node",
			yaml: "world:\n  nodes:\n    - {id: 1}\n    - {id: 1}\nframes:\n  - commit: false\n",
		},
		{
			name: "bad composition",
			yaml: "world:\n  nodes:\n    - {id: 1}\n    - {id: 2, x: 10}\n  segments:\n    - {start: 1, end: 2, composition: [bike_lane]}\nframes:\n  - commit: false\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScenario([]byte(tt.yaml)); !errors.Is(err, ErrInvalidScenario) {
				t.Errorf("ParseScenario() error = %v, want ErrInvalidScenario", err)
			}
		})
	}
}

const waterScenario = `
name: overlap-and-water
anarchy: true
policies:
  InWater: Always
world:
  terrain:
    water:
      - {x: 100, z: 0, radius: 10}
  objects:
    - {x: 0, z: 0, radius: 2}
frames:
  - tool: object
    place:
      - {x: 1, z: 0, radius: 2}
    repeat: 3
  - place:
      - {x: 100, z: 0, radius: 1}
    commit: true
`

func TestSimulator_Run(t *testing.T) {
	sc, err := ParseScenario([]byte(waterScenario))
	if err != nil {
		t.Fatalf("ParseScenario() error = %v", err)
	}
	if got := Frames(sc); got != 4 {
		t.Errorf("Frames() = %d, want 4", got)
	}

	world, err := sc.BuildWorld()
	if err != nil {
		t.Fatalf("BuildWorld() error = %v", err)
	}
	sim, registry := newSim(t, world, false)

	var results []*FrameResult
	if err := sim.Run(context.Background(), sc, func(r *FrameResult) error {
		results = append(results, r)
		return nil
	}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("ran %d frames, want 4", len(results))
	}
	if p, _ := registry.Policy(errorcheck.InWater); p != errorcheck.Always {
		t.Errorf("InWater policy = %v, want Always", p)
	}
	for _, r := range results[:3] {
		if len(r.Report.Preserved) != 1 {
			t.Errorf("frame %d Preserved = %v, want one entity", r.Number, r.Report.Preserved)
		}
	}
	last := results[3]
	if len(last.Outcome.Committed) != 1 {
		t.Errorf("object in water not committed: %s", last.Summary())
	}
	if !strings.Contains(last.Summary(), "anarchy=on") {
		t.Errorf("Summary() = %q", last.Summary())
	}
}

func TestSimulator_Setup_UnknownCategory(t *testing.T) {
	sc, err := ParseScenario([]byte("policies:\n  Gravity: Always\nframes:\n  - commit: false\n"))
	if err != nil {
		t.Fatalf("ParseScenario() error = %v", err)
	}
	sim, _ := newSim(t, NewWorld(Terrain{}), true)
	if err := sim.Run(context.Background(), sc, nil); !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("Run() error = %v, want ErrInvalidScenario", err)
	}
}
