package graph

import (
	"slices"
	"testing"
)

func TestGraph_AddNode(t *testing.T) {
	t.Parallel()

	g := New[string]()
	g.AddNode("A", "B", "C")

	if !g.HasNode("A") {
		t.Error("node A should exist")
	}

	deps := g.Dependencies("A")
	if len(deps) != 2 {
		t.Errorf("expected 2 dependencies, got %d", len(deps))
	}

	g.AddNode("A", "D")
	if deps := g.Dependencies("A"); len(deps) != 3 {
		t.Errorf("expected dependencies to accumulate, got %v", deps)
	}
	if g.Size() != 1 {
		t.Errorf("expected 1 node, got %d", g.Size())
	}
}

func TestGraph_RemoveNode(t *testing.T) {
	t.Parallel()

	g := New[string]()
	g.AddNode("A")
	g.AddNode("B")

	g.RemoveNode("A")
	g.RemoveNode("missing")

	if g.HasNode("A") {
		t.Error("node A should not exist after removal")
	}
	if !g.HasNode("B") {
		t.Error("node B should still exist")
	}
	if nodes := g.Nodes(); !slices.Equal(nodes, []string{"B"}) {
		t.Errorf("expected [B], got %v", nodes)
	}
}

func TestGraph_Dependents(t *testing.T) {
	t.Parallel()

	g := New[string]()
	g.AddNode("A", "C")
	g.AddNode("B", "C")
	g.AddNode("C")

	dependents := g.Dependents("C")
	if !slices.Equal(dependents, []string{"A", "B"}) {
		t.Errorf("expected [A B], got %v", dependents)
	}
}

func TestGraph_Missing(t *testing.T) {
	t.Parallel()

	g := New[string]()
	g.AddNode("A", "B", "C")
	g.AddNode("B")

	missing := g.Missing()
	if len(missing) != 1 || missing[0] != (Edge[string]{From: "A", To: "C"}) {
		t.Errorf("expected missing edge A -> C, got %v", missing)
	}
}

func TestGraph_DetectCycles_NoCycle(t *testing.T) {
	t.Parallel()

	g := New[string]()
	g.AddNode("A", "B")
	g.AddNode("B", "C")
	g.AddNode("C")

	if cycles := g.DetectCycles(); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
	if g.HasCycle() {
		t.Error("expected HasCycle to be false")
	}
}

func TestGraph_DetectCycles_SimpleCycle(t *testing.T) {
	t.Parallel()

	g := New[string]()
	g.AddNode("A", "B")
	g.AddNode("B", "A")

	if cycles := g.DetectCycles(); len(cycles) != 1 {
		t.Errorf("expected 1 cycle, got %d", len(cycles))
	}
	if !g.HasCycle() {
		t.Error("expected HasCycle to be true")
	}
}

func TestGraph_DetectCycles_SelfCycle(t *testing.T) {
	t.Parallel()

	g := New[string]()
	g.AddNode("A", "A")

	if cycles := g.DetectCycles(); len(cycles) != 1 {
		t.Errorf("expected 1 self cycle, got %d", len(cycles))
	}
}

func TestGraph_HasCycleInvalidatedByAdd(t *testing.T) {
	t.Parallel()

	g := New[string]()
	g.AddNode("A", "B")
	g.AddNode("B")
	if g.HasCycle() {
		t.Fatal("expected no cycle")
	}

	g.AddNode("B", "A")
	if !g.HasCycle() {
		t.Error("expected cycle after adding B -> A")
	}
}

func TestGraph_FindCyclePath(t *testing.T) {
	t.Parallel()

	g := New[string]()
	g.AddNode("A", "B")
	g.AddNode("B", "C")
	g.AddNode("C", "D")
	g.AddNode("D", "E")
	g.AddNode("E", "B")

	path := g.FindCyclePath("A")
	want := []string{"B", "C", "D", "E", "B"}
	if !slices.Equal(path, want) {
		t.Errorf("expected %v, got %v", want, path)
	}

	g2 := New[string]()
	g2.AddNode("A", "B")
	g2.AddNode("B")
	if path := g2.FindCyclePath("A"); path != nil {
		t.Errorf("expected no path, got %v", path)
	}
}

func TestGraph_CyclePaths(t *testing.T) {
	t.Parallel()

	g := New[int]()
	g.AddNode(1, 2)
	g.AddNode(2, 1)
	g.AddNode(3, 4)
	g.AddNode(4, 3)
	g.AddNode(5)

	paths := g.CyclePaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 cycle paths, got %v", paths)
	}
	for _, p := range paths {
		if len(p) != 3 || p[0] != p[len(p)-1] {
			t.Errorf("expected closed path of length 3, got %v", p)
		}
	}
}
