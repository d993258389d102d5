package graph

import "sync"

type Node[K comparable] struct {
	ID           K
	Dependencies []K
}

// Edge is a dependency from one node to another.
type Edge[K comparable] struct {
	From K
	To   K
}

type Graph[K comparable] struct {
	mu         sync.RWMutex
	nodes      map[K]*Node[K]
	order      []K
	cycleValid bool
	hasCycle   bool
}

func New[K comparable]() *Graph[K] {
	return &Graph[K]{
		nodes: make(map[K]*Node[K]),
	}
}

// AddNode adds id, or appends to its dependencies when it already exists.
func (g *Graph[K]) AddNode(id K, dependencies ...K) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if node, exists := g.nodes[id]; exists {
		node.Dependencies = append(node.Dependencies, dependencies...)
	} else {
		g.nodes[id] = &Node[K]{
			ID:           id,
			Dependencies: append([]K(nil), dependencies...),
		}
		g.order = append(g.order, id)
	}
	g.cycleValid = false
}

func (g *Graph[K]) RemoveNode(id K) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; !exists {
		return
	}
	delete(g.nodes, id)
	for i, n := range g.order {
		if n == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.cycleValid = false
}

func (g *Graph[K]) HasNode(id K) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.nodes[id]
	return exists
}

func (g *Graph[K]) Dependencies(id K) []K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, exists := g.nodes[id]
	if !exists {
		return nil
	}

	result := make([]K, len(node.Dependencies))
	copy(result, node.Dependencies)
	return result
}

func (g *Graph[K]) Dependents(id K) []K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []K
	for _, nodeID := range g.order {
		for _, dep := range g.nodes[nodeID].Dependencies {
			if dep == id {
				dependents = append(dependents, nodeID)
				break
			}
		}
	}
	return dependents
}

// Nodes returns the node ids in insertion order.
func (g *Graph[K]) Nodes() []K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]K, len(g.order))
	copy(nodes, g.order)
	return nodes
}

func (g *Graph[K]) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}

// Missing returns every edge whose target is not a node.
func (g *Graph[K]) Missing() []Edge[K] {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var missing []Edge[K]
	for _, id := range g.order {
		for _, dep := range g.nodes[id].Dependencies {
			if _, exists := g.nodes[dep]; !exists {
				missing = append(missing, Edge[K]{From: id, To: dep})
			}
		}
	}
	return missing
}
