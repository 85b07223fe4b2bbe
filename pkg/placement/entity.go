// Package placement models the frame-scoped working set of in-progress tool
// output: temp entities the tool is placing, the existing entities they
// touch, the definitions they were built from, and network nodes.
package placement

import (
	"math"

	"github.com/google/uuid"

	"skyline-hq/anarchy/pkg/errorcheck"
)

// EntityID identifies an entity in the host world.
type EntityID uint64

// NodeID identifies a network node.
type NodeID uint64

// Kind is the entity category.
type Kind uint8

const (
	// KindObject is a placeable object (building, prop, tree).
	KindObject Kind = iota

	// KindSegment is a network segment between two nodes.
	KindSegment
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindSegment {
		return "segment"
	}
	return "object"
}

// Flags are the status markers the host and the pipeline set on entities.
type Flags uint32

const (
	FlagCreated Flags = 1 << iota
	FlagUpdated
	FlagDeleted
	FlagOverridden
	// FlagTemp marks tool output that is not yet committed.
	FlagTemp
	// FlagHidden is set by the host culling system.
	FlagHidden
	// FlagCullExempt excludes the entity from culling.
	FlagCullExempt
	// FlagPreserved marks an existing entity kept alive by an override.
	FlagPreserved
)

// Has reports whether all bits of f are set.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

// Any reports whether any bit of f is set.
func (fl Flags) Any(f Flags) bool {
	return fl&f != 0
}

// Vec3 is a world-space position.
type Vec3 struct {
	X, Y, Z float64
}

// Transform is a position plus a rotation around the vertical axis.
type Transform struct {
	Position Vec3
	Yaw      float64
}

// transformEpsilon is the tolerance used when comparing transforms.
const transformEpsilon = 1e-4

// ApproxEqual reports whether two transforms match within tolerance.
func (t Transform) ApproxEqual(o Transform) bool {
	return math.Abs(t.Position.X-o.Position.X) <= transformEpsilon &&
		math.Abs(t.Position.Y-o.Position.Y) <= transformEpsilon &&
		math.Abs(t.Position.Z-o.Position.Z) <= transformEpsilon &&
		math.Abs(t.Yaw-o.Yaw) <= transformEpsilon
}

// ErrorResult associates a raised validation category with an entity.
type ErrorResult struct {
	Category errorcheck.Category
	Severity errorcheck.Severity
	Source   EntityID
}

// Entity is a placement entity or an existing entity referenced this frame.
type Entity struct {
	ID    EntityID
	Kind  Kind
	Flags Flags

	// Session is the tool session that produced a temp entity; uuid.Nil for
	// existing entities.
	Session uuid.UUID

	// Definition is the definition a temp entity was created from.
	Definition DefinitionID

	Transform Transform

	// Intended is the placement the tool asked for, when the host knows it.
	Intended *Transform

	// TerrainHeight is the ground height under the entity.
	TerrainHeight float64

	// Elevation is the offset above terrain.
	Elevation float64

	// Radius is the footprint radius used for overlap checks.
	Radius float64

	// Segment data.
	StartNode   NodeID
	EndNode     NodeID
	Length      float64
	Grade       float64
	Composition Composition
	Snapshot    *CompositionSnapshot

	// Errors are the results raised by this frame's validation.
	Errors []ErrorResult

	// Overrides is the existing entity a temp entity replaces, if any.
	Overrides EntityID

	// Revision increments each time the host re-syncs the transform.
	Revision int
}

// IsTemp reports whether the entity is uncommitted tool output.
func (e *Entity) IsTemp() bool {
	return e.Flags.Has(FlagTemp)
}

// Active reports whether the entity is neither deleted nor overridden.
func (e *Entity) Active() bool {
	return !e.Flags.Any(FlagDeleted | FlagOverridden)
}

// Visible reports whether the entity renders.
func (e *Entity) Visible() bool {
	return !e.Flags.Has(FlagHidden)
}

// HasError reports whether a category was raised on the entity.
func (e *Entity) HasError(c errorcheck.Category) bool {
	for _, r := range e.Errors {
		if r.Category == c {
			return true
		}
	}
	return false
}

// DefinitionID identifies a tool definition.
type DefinitionID uint64

// Definition is what the tool asked for this frame; the host creates temp
// entities from definitions.
type Definition struct {
	ID      DefinitionID
	Kind    Kind
	Session uuid.UUID

	// Created is true for definitions created this frame.
	Created bool

	Position Vec3
	Yaw      float64

	// Segment endpoints and length for net definitions.
	StartNode NodeID
	EndNode   NodeID
	Length    float64

	// Stamped values written by the capture passes.
	Stamped         bool
	Elevation       float64
	ElevationLocked bool
	Grade           float64
	GradeStamped    bool
}

// Node is a network node. Height is the absolute Y coordinate.
type Node struct {
	ID            NodeID
	Position      Vec3
	TerrainHeight float64
}
