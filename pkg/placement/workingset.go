package placement

import "fmt"

// WorkingSet is the frame-scoped collection every pass reads and writes.
// It is not safe for concurrent use; passes run sequentially.
type WorkingSet struct {
	entities    map[EntityID]*Entity
	order       []EntityID
	definitions []*Definition
	nodes       map[NodeID]*Node
}

// NewWorkingSet creates an empty working set.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{
		entities: make(map[EntityID]*Entity),
		nodes:    make(map[NodeID]*Node),
	}
}

// Add inserts an entity. Adding an ID twice is an error.
func (ws *WorkingSet) Add(e *Entity) error {
	if e == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	if _, ok := ws.entities[e.ID]; ok {
		return fmt.Errorf("entity %d already in working set", e.ID)
	}
	ws.entities[e.ID] = e
	ws.order = append(ws.order, e.ID)
	return nil
}

// Remove drops an entity from the set.
func (ws *WorkingSet) Remove(id EntityID) {
	if _, ok := ws.entities[id]; !ok {
		return
	}
	delete(ws.entities, id)
	for i, oid := range ws.order {
		if oid == id {
			ws.order = append(ws.order[:i], ws.order[i+1:]...)
			break
		}
	}
}

// Get returns an entity by ID.
func (ws *WorkingSet) Get(id EntityID) (*Entity, bool) {
	e, ok := ws.entities[id]
	return e, ok
}

// Len returns the number of entities.
func (ws *WorkingSet) Len() int {
	return len(ws.order)
}

// Entities returns the entities in insertion order.
func (ws *WorkingSet) Entities() []*Entity {
	out := make([]*Entity, 0, len(ws.order))
	for _, id := range ws.order {
		out = append(out, ws.entities[id])
	}
	return out
}

// Select returns the entities matching pred, in insertion order.
func (ws *WorkingSet) Select(pred func(*Entity) bool) []*Entity {
	var out []*Entity
	for _, id := range ws.order {
		if e := ws.entities[id]; pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// Temps returns temp entities of a kind, in insertion order.
func (ws *WorkingSet) Temps(kind Kind) []*Entity {
	return ws.Select(func(e *Entity) bool {
		return e.IsTemp() && e.Kind == kind
	})
}

// AddDefinition appends a definition.
func (ws *WorkingSet) AddDefinition(d *Definition) {
	ws.definitions = append(ws.definitions, d)
}

// Definitions returns definitions in insertion order.
func (ws *WorkingSet) Definitions() []*Definition {
	return ws.definitions
}

// Definition returns a definition by ID.
func (ws *WorkingSet) Definition(id DefinitionID) (*Definition, bool) {
	for _, d := range ws.definitions {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// SetNode inserts or replaces a node.
func (ws *WorkingSet) SetNode(n *Node) {
	ws.nodes[n.ID] = n
}

// Node returns a node by ID.
func (ws *WorkingSet) Node(id NodeID) (*Node, bool) {
	n, ok := ws.nodes[id]
	return n, ok
}

// NodeDegree counts the segments in the set that touch a node.
func (ws *WorkingSet) NodeDegree(id NodeID) int {
	degree := 0
	for _, oid := range ws.order {
		e := ws.entities[oid]
		if e.Kind != KindSegment || !e.Active() {
			continue
		}
		if e.StartNode == id || e.EndNode == id {
			degree++
		}
	}
	return degree
}
