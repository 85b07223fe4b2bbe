package hostsim

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/placement"
)

// ErrInvalidScenario is returned for a scenario that cannot be run.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a scripted sequence of tool frames over a starting world.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Anarchy sets the toggle before the first frame. Nil keeps the
	// configured value.
	Anarchy *bool `yaml:"anarchy"`

	// Policies overrides the policy table by category name for this run.
	Policies map[errorcheck.Category]errorcheck.DisablePolicy `yaml:"policies"`

	// ExpandedRange switches to the expanded elevation bound.
	ExpandedRange bool `yaml:"expanded_range"`

	Limits Limits    `yaml:"limits"`
	World  WorldSpec `yaml:"world"`
	Frames []Frame   `yaml:"frames"`
}

// WorldSpec is the committed state before the first frame.
type WorldSpec struct {
	Terrain  Terrain       `yaml:"terrain"`
	Nodes    []NodeSpec    `yaml:"nodes"`
	Objects  []Placement   `yaml:"objects"`
	Segments []SegmentSpec `yaml:"segments"`
}

// NodeSpec places a network node.
type NodeSpec struct {
	ID        placement.NodeID `yaml:"id"`
	X         float64          `yaml:"x"`
	Z         float64          `yaml:"z"`
	Elevation float64          `yaml:"elevation"`
}

// SegmentSpec is a committed segment.
type SegmentSpec struct {
	Start       placement.NodeID `yaml:"start"`
	End         placement.NodeID `yaml:"end"`
	Composition []string         `yaml:"composition"`
}

// Frame is one scripted frame.
type Frame struct {
	// Tool is the active tool. Default: object.
	Tool string `yaml:"tool"`

	// Triggers run through the UI bridge before the frame starts.
	Triggers []Trigger `yaml:"triggers"`

	// Place lists the tool's definitions for the frame.
	Place []Placement `yaml:"place"`

	// Commit applies the frame's temp entities to the world.
	Commit bool `yaml:"commit"`

	// Cancel runs the frame with an already cancelled context.
	Cancel bool `yaml:"cancel"`

	// EndSession ends the tool session after the frame, discarding its
	// elevation, grade and composition state.
	EndSession bool `yaml:"end_session"`

	// Repeat runs the frame this many times. Default: 1.
	Repeat int `yaml:"repeat"`
}

// Trigger is a UI trigger with string arguments.
type Trigger struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %q: %w", path, err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks references and kinds.
func (sc *Scenario) Validate() error {
	if len(sc.Frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrInvalidScenario)
	}

	nodes := make(map[placement.NodeID]bool, len(sc.World.Nodes))
	for _, n := range sc.World.Nodes {
		if nodes[n.ID] {
			return fmt.Errorf("%w: duplicate node %d", ErrInvalidScenario, n.ID)
		}
		nodes[n.ID] = true
	}
	for i, s := range sc.World.Segments {
		if !nodes[s.Start] || !nodes[s.End] {
			return fmt.Errorf("%w: world segment %d references an unknown node", ErrInvalidScenario, i)
		}
		for _, name := range s.Composition {
			if _, ok := placement.ParseComposition(name); !ok {
				return fmt.Errorf("%w: world segment %d: unknown composition %q", ErrInvalidScenario, i, name)
			}
		}
	}
	for i, o := range sc.World.Objects {
		if o.Kind != "" && o.Kind != KindObject {
			return fmt.Errorf("%w: world object %d has kind %q", ErrInvalidScenario, i, o.Kind)
		}
	}

	for i, f := range sc.Frames {
		if f.Repeat < 0 {
			return fmt.Errorf("%w: frame %d: negative repeat", ErrInvalidScenario, i)
		}
		for j, p := range f.Place {
			switch p.Kind {
			case "", KindObject:
			case KindSegment:
				if !nodes[p.Start] || !nodes[p.End] {
					return fmt.Errorf("%w: frame %d placement %d references an unknown node", ErrInvalidScenario, i, j)
				}
			default:
				return fmt.Errorf("%w: frame %d placement %d has kind %q", ErrInvalidScenario, i, j, p.Kind)
			}
		}
		for j, t := range f.Triggers {
			if t.Name == "" {
				return fmt.Errorf("%w: frame %d trigger %d has no name", ErrInvalidScenario, i, j)
			}
		}
	}
	return nil
}

// BuildWorld creates the starting world.
func (sc *Scenario) BuildWorld() (*World, error) {
	w := NewWorld(sc.World.Terrain)
	for _, n := range sc.World.Nodes {
		w.AddNode(n.ID, n.X, n.Z, n.Elevation)
	}
	for _, o := range sc.World.Objects {
		w.AddObject(o.X, o.Z, o.Radius, o.Yaw)
	}
	for i, s := range sc.World.Segments {
		var comp placement.Composition
		for _, name := range s.Composition {
			flag, _ := placement.ParseComposition(name)
			comp |= flag
		}
		if _, err := w.AddSegment(s.Start, s.End, comp); err != nil {
			return nil, fmt.Errorf("%w: world segment %d: %v", ErrInvalidScenario, i, err)
		}
	}
	return w, nil
}
