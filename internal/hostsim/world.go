package hostsim

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"skyline-hq/anarchy/pkg/placement"
)

// World is the committed host state that outlives frames.
type World struct {
	Terrain Terrain

	mu       sync.Mutex
	entities map[placement.EntityID]*placement.Entity
	nodes    map[placement.NodeID]*placement.Node
	nextID   placement.EntityID
}

// NewWorld creates an empty world.
func NewWorld(terrain Terrain) *World {
	return &World{
		Terrain:  terrain,
		entities: make(map[placement.EntityID]*placement.Entity),
		nodes:    make(map[placement.NodeID]*placement.Node),
		nextID:   1,
	}
}

// AddNode places a network node on the terrain, raised by elevation.
func (w *World) AddNode(id placement.NodeID, x, z, elevation float64) *placement.Node {
	w.mu.Lock()
	defer w.mu.Unlock()

	ground := w.Terrain.HeightAt(x, z)
	n := &placement.Node{
		ID:            id,
		Position:      placement.Vec3{X: x, Y: ground + elevation, Z: z},
		TerrainHeight: ground,
	}
	w.nodes[id] = n
	return n
}

// Node returns a copy of a node.
func (w *World) Node(id placement.NodeID) (placement.Node, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes[id]
	if !ok {
		return placement.Node{}, false
	}
	return *n, true
}

// AddObject commits an object at ground level and returns it.
func (w *World) AddObject(x, z, radius, yaw float64) *placement.Entity {
	ground := w.Terrain.HeightAt(x, z)

	w.mu.Lock()
	defer w.mu.Unlock()
	e := &placement.Entity{
		ID:   w.allocLocked(),
		Kind: placement.KindObject,
		Transform: placement.Transform{
			Position: placement.Vec3{X: x, Y: ground, Z: z},
			Yaw:      yaw,
		},
		TerrainHeight: ground,
		Radius:        radius,
	}
	w.entities[e.ID] = e
	return e
}

// AddSegment commits a segment between two existing nodes.
func (w *World) AddSegment(start, end placement.NodeID, composition placement.Composition) (*placement.Entity, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	a, ok := w.nodes[start]
	if !ok {
		return nil, fmt.Errorf("unknown node %d", start)
	}
	b, ok := w.nodes[end]
	if !ok {
		return nil, fmt.Errorf("unknown node %d", end)
	}
	e := &placement.Entity{
		ID:          w.allocLocked(),
		Kind:        placement.KindSegment,
		StartNode:   start,
		EndNode:     end,
		Composition: composition,
	}
	shapeSegment(e, a, b)
	w.entities[e.ID] = e
	return e, nil
}

// Entity returns a committed entity.
func (w *World) Entity(id placement.EntityID) (*placement.Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	return e, ok
}

// Entities returns the committed entities ordered by ID.
func (w *World) Entities() []*placement.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*placement.Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of committed entities.
func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entities)
}

// nodeCopies returns copies of every node, ordered by ID.
func (w *World) nodeCopies() []*placement.Node {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*placement.Node, 0, len(w.nodes))
	for _, n := range w.nodes {
		c := *n
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) alloc() placement.EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.allocLocked()
}

func (w *World) allocLocked() placement.EntityID {
	id := w.nextID
	w.nextID++
	return id
}

func (w *World) commit(e *placement.Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entities[e.ID] = e
}

func (w *World) remove(id placement.EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entities, id)
}

func (w *World) storeNode(n placement.Node) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nodes[n.ID] = &n
}

// shapeSegment derives position, length and grade from the end nodes.
func shapeSegment(e *placement.Entity, a, b *placement.Node) {
	dx := b.Position.X - a.Position.X
	dz := b.Position.Z - a.Position.Z
	e.Length = math.Hypot(dx, dz)
	e.Transform = placement.Transform{
		Position: placement.Vec3{
			X: (a.Position.X + b.Position.X) / 2,
			Y: (a.Position.Y + b.Position.Y) / 2,
			Z: (a.Position.Z + b.Position.Z) / 2,
		},
		Yaw: math.Atan2(dz, dx),
	}
	e.TerrainHeight = (a.TerrainHeight + b.TerrainHeight) / 2
	e.Elevation = e.Transform.Position.Y - e.TerrainHeight
	if e.Length > 0 {
		e.Grade = (b.Position.Y - a.Position.Y) / e.Length
	}
}

// overlaps reports whether two objects' footprints intersect on the ground
// plane.
func overlaps(a, b *placement.Entity) bool {
	if a.Kind != placement.KindObject || b.Kind != placement.KindObject {
		return false
	}
	d := math.Hypot(a.Transform.Position.X-b.Transform.Position.X, a.Transform.Position.Z-b.Transform.Position.Z)
	return d < a.Radius+b.Radius
}
