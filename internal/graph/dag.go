// Package graph provides the dependency graph the reconciler walks: a
// generic directed acyclic graph with deterministic topological ordering,
// plus the builder that wires expanded topology specs into one.
package graph

import (
	"cmp"
	"fmt"
	"slices"
)

// Vertex is one node of the graph. Order records insertion order and is
// the tie-break between vertices with no dependency relation, keeping
// traversal deterministic.
type Vertex[T comparable] struct {
	ID        T
	Order     int
	DependsOn map[T]struct{}
}

// DirectedAcyclicGraph tracks vertices and their dependency edges. Edges
// that would close a cycle are rejected at insertion time.
type DirectedAcyclicGraph[T comparable] struct {
	Vertices map[T]*Vertex[T]
}

// NewDirectedAcyclicGraph creates an empty graph.
func NewDirectedAcyclicGraph[T comparable]() *DirectedAcyclicGraph[T] {
	return &DirectedAcyclicGraph[T]{
		Vertices: make(map[T]*Vertex[T]),
	}
}

// AddVertex inserts a vertex with the given insertion order. Adding an
// existing vertex is an error.
func (d *DirectedAcyclicGraph[T]) AddVertex(id T, order int) error {
	if _, exists := d.Vertices[id]; exists {
		return fmt.Errorf("vertex %v already exists", id)
	}
	d.Vertices[id] = &Vertex[T]{
		ID:        id,
		Order:     order,
		DependsOn: make(map[T]struct{}),
	}
	return nil
}

// AddDependencies records that vertex id depends on each of dependencies.
// Both sides must already exist, a vertex cannot depend on itself, and an
// edge that would close a cycle is rejected and rolled back.
func (d *DirectedAcyclicGraph[T]) AddDependencies(id T, dependencies []T) error {
	vertex, exists := d.Vertices[id]
	if !exists {
		return fmt.Errorf("vertex %v does not exist", id)
	}

	for _, dep := range dependencies {
		if dep == id {
			return fmt.Errorf("vertex %v cannot depend on itself", id)
		}
		if _, exists := d.Vertices[dep]; !exists {
			return fmt.Errorf("dependency %v of vertex %v does not exist", dep, id)
		}

		_, present := vertex.DependsOn[dep]
		vertex.DependsOn[dep] = struct{}{}
		if cyclic, cycle := d.hasCycle(); cyclic {
			if !present {
				delete(vertex.DependsOn, dep)
			}
			return &CycleError[T]{Cycle: cycle}
		}
	}
	return nil
}

// Dependents returns the vertices that depend on id, in insertion order.
func (d *DirectedAcyclicGraph[T]) Dependents(id T) []T {
	var dependents []*Vertex[T]
	for _, vertex := range d.Vertices {
		if _, ok := vertex.DependsOn[id]; ok {
			dependents = append(dependents, vertex)
		}
	}
	slices.SortFunc(dependents, func(a, b *Vertex[T]) int {
		return cmp.Compare(a.Order, b.Order)
	})

	ids := make([]T, 0, len(dependents))
	for _, vertex := range dependents {
		ids = append(ids, vertex.ID)
	}
	return ids
}

// TopologicalSort returns every vertex in an order where dependencies
// precede their dependents. Vertices with no ordering constraint between
// them follow insertion order: the sort sweeps the vertices in insertion
// order repeatedly, emitting each as soon as its dependencies are out.
func (d *DirectedAcyclicGraph[T]) TopologicalSort() ([]T, error) {
	if cyclic, cycle := d.hasCycle(); cyclic {
		return nil, &CycleError[T]{Cycle: cycle}
	}

	vertices := d.orderedVertices()
	emitted := make(map[T]bool, len(vertices))
	order := make([]T, 0, len(vertices))

	for len(order) < len(vertices) {
		progressed := false
		for _, vertex := range vertices {
			if emitted[vertex.ID] {
				continue
			}
			ready := true
			for dep := range vertex.DependsOn {
				if !emitted[dep] {
					ready = false
					break
				}
			}
			if ready {
				emitted[vertex.ID] = true
				order = append(order, vertex.ID)
				progressed = true
			}
		}
		if !progressed {
			// Unreachable given the cycle check above
			return nil, &CycleError[T]{}
		}
	}

	return order, nil
}

// TopologicalSortLevels groups the vertices into levels where every
// vertex's dependencies live in strictly earlier levels. Vertices within
// a level are independent of each other and follow insertion order.
func (d *DirectedAcyclicGraph[T]) TopologicalSortLevels() ([][]T, error) {
	if cyclic, cycle := d.hasCycle(); cyclic {
		return nil, &CycleError[T]{Cycle: cycle}
	}

	vertices := d.orderedVertices()
	done := make(map[T]bool, len(vertices))
	var levels [][]T

	for len(done) < len(vertices) {
		var level []T
		for _, vertex := range vertices {
			if done[vertex.ID] {
				continue
			}
			ready := true
			for dep := range vertex.DependsOn {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, vertex.ID)
			}
		}
		if len(level) == 0 {
			// Unreachable given the cycle check above
			return nil, &CycleError[T]{}
		}
		// Mark after collecting so level membership only considers
		// earlier levels
		for _, id := range level {
			done[id] = true
		}
		levels = append(levels, level)
	}

	return levels, nil
}

// orderedVertices returns the vertices sorted by insertion order.
func (d *DirectedAcyclicGraph[T]) orderedVertices() []*Vertex[T] {
	vertices := make([]*Vertex[T], 0, len(d.Vertices))
	for _, vertex := range d.Vertices {
		vertices = append(vertices, vertex)
	}
	slices.SortFunc(vertices, func(a, b *Vertex[T]) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return vertices
}

// hasCycle runs a depth-first search over the dependency edges and
// returns the first cycle found.
func (d *DirectedAcyclicGraph[T]) hasCycle() (bool, []T) {
	visited := make(map[T]bool, len(d.Vertices))
	inStack := make(map[T]bool, len(d.Vertices))
	var stack []T
	var cycle []T

	var visit func(id T) bool
	visit = func(id T) bool {
		visited[id] = true
		inStack[id] = true
		stack = append(stack, id)

		for dep := range d.Vertices[id].DependsOn {
			if !visited[dep] {
				if visit(dep) {
					return true
				}
			} else if inStack[dep] {
				start := slices.Index(stack, dep)
				cycle = append(cycle, stack[start:]...)
				cycle = append(cycle, dep)
				return true
			}
		}

		inStack[id] = false
		stack = stack[:len(stack)-1]
		return false
	}

	for _, vertex := range d.orderedVertices() {
		if !visited[vertex.ID] && visit(vertex.ID) {
			return true, cycle
		}
	}
	return false, nil
}
