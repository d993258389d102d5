package graph

type cycleDetector[K comparable] struct {
	graph   *Graph[K]
	index   int
	stack   []K
	onStack map[K]bool
	indices map[K]int
	lowlink map[K]int
	sccs    [][]K
}

// DetectCycles returns the strongly connected components that form a
// cycle, including single nodes that depend on themselves.
func (g *Graph[K]) DetectCycles() [][]K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.detectCyclesLocked()
}

func (g *Graph[K]) detectCyclesLocked() [][]K {
	detector := &cycleDetector[K]{
		graph:   g,
		onStack: make(map[K]bool),
		indices: make(map[K]int),
		lowlink: make(map[K]int),
	}

	for _, id := range g.order {
		if _, visited := detector.indices[id]; !visited {
			detector.strongConnect(id)
		}
	}

	var cycles [][]K
	for _, scc := range detector.sccs {
		if len(scc) > 1 {
			cycles = append(cycles, scc)
		} else if len(scc) == 1 {
			id := scc[0]
			for _, dep := range g.nodes[id].Dependencies {
				if dep == id {
					cycles = append(cycles, scc)
					break
				}
			}
		}
	}

	return cycles
}

func (d *cycleDetector[K]) strongConnect(id K) {
	d.indices[id] = d.index
	d.lowlink[id] = d.index
	d.index++
	d.stack = append(d.stack, id)
	d.onStack[id] = true

	for _, dep := range d.graph.nodes[id].Dependencies {
		if _, exists := d.graph.nodes[dep]; !exists {
			continue
		}

		if _, visited := d.indices[dep]; !visited {
			d.strongConnect(dep)
			d.lowlink[id] = min(d.lowlink[id], d.lowlink[dep])
		} else if d.onStack[dep] {
			d.lowlink[id] = min(d.lowlink[id], d.indices[dep])
		}
	}

	if d.lowlink[id] == d.indices[id] {
		var scc []K
		for {
			n := len(d.stack) - 1
			w := d.stack[n]
			d.stack = d.stack[:n]
			d.onStack[w] = false
			scc = append(scc, w)
			if w == id {
				break
			}
		}
		d.sccs = append(d.sccs, scc)
	}
}

func (g *Graph[K]) HasCycle() bool {
	g.mu.RLock()
	if g.cycleValid {
		result := g.hasCycle
		g.mu.RUnlock()
		return result
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cycleValid {
		return g.hasCycle
	}

	g.hasCycle = len(g.detectCyclesLocked()) > 0
	g.cycleValid = true
	return g.hasCycle
}

// FindCyclePath returns a path that starts and ends at the same node,
// reachable from start, or nil.
func (g *Graph[K]) FindCyclePath(start K) []K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.findCyclePathLocked(start)
}

func (g *Graph[K]) findCyclePathLocked(start K) []K {
	visited := make(map[K]bool)
	inPath := make(map[K]bool)
	var path []K

	var dfs func(id K) []K
	dfs = func(id K) []K {
		if inPath[id] {
			var cyclePath []K
			found := false
			for _, p := range path {
				if p == id {
					found = true
				}
				if found {
					cyclePath = append(cyclePath, p)
				}
			}
			return append(cyclePath, id)
		}

		if visited[id] {
			return nil
		}

		visited[id] = true
		path = append(path, id)
		inPath[id] = true

		node, exists := g.nodes[id]
		if exists {
			for _, dep := range node.Dependencies {
				if _, exists := g.nodes[dep]; !exists {
					continue
				}
				if cycle := dfs(dep); cycle != nil {
					return cycle
				}
			}
		}

		path = path[:len(path)-1]
		inPath[id] = false
		return nil
	}

	return dfs(start)
}

// CyclePaths returns one closed path per cycle.
func (g *Graph[K]) CyclePaths() [][]K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var paths [][]K
	for _, scc := range g.detectCyclesLocked() {
		if path := g.findCyclePathLocked(scc[len(scc)-1]); path != nil {
			paths = append(paths, path)
		}
	}
	return paths
}
