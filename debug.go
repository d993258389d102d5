package thimble

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

type GraphInfo struct {
	Registrations []GraphNode
}

// GraphNode is one visible registration and the contracts its build
// depends on.
type GraphNode struct {
	Contract     string
	Category     string
	Lifetime     string
	MappedTo     string
	Scope        string
	Dependencies []string
	Dependents   []string
	Cached       bool
}

// Graph describes the registrations visible from c, leaving out the
// container itself. Dependencies are computed without building anything.
// Open generic registrations have none.
func (c *Container) Graph() GraphInfo {
	infos := c.Registrations()
	nodes := make([]GraphNode, 0, len(infos))
	index := make(map[string]int, len(infos))

	for _, info := range infos {
		if info.Contract.Type == containerType {
			continue
		}
		node := GraphNode{
			Contract: info.Contract.String(),
			Category: info.Category.String(),
			Lifetime: info.Lifetime.String(),
			MappedTo: info.MappedTo,
			Scope:    info.Scope,
			Cached:   info.Cached,
		}
		if !info.Contract.IsOpen() {
			deps, err := c.internal.DependencyTypes(info.Contract.Type, info.Contract.Name)
			if err == nil {
				node.Dependencies = deps
			}
		}
		index[node.Contract] = len(nodes)
		nodes = append(nodes, node)
	}

	for _, node := range nodes {
		for _, dep := range node.Dependencies {
			if i, ok := index[dep]; ok {
				nodes[i].Dependents = append(nodes[i].Dependents, node.Contract)
			}
		}
	}

	slices.SortFunc(nodes, func(a, b GraphNode) int {
		return strings.Compare(a.Contract, b.Contract)
	})
	return GraphInfo{Registrations: nodes}
}

func (c *Container) PrintGraph() {
	c.FprintGraph(os.Stdout)
}

func (c *Container) FprintGraph(w io.Writer) {
	info := c.Graph()

	if len(info.Registrations) == 0 {
		_, _ = fmt.Fprintln(w, "(empty container)")
		return
	}

	for _, node := range info.Registrations {
		status := "○"
		if node.Cached {
			status = "●"
		}

		label := node.Contract + " [" + node.Lifetime + "]"
		if len(node.Dependencies) == 0 {
			_, _ = fmt.Fprintf(w, "%s %s\n", status, label)
		} else {
			_, _ = fmt.Fprintf(w, "%s %s ← %s\n", status, label, strings.Join(node.Dependencies, ", "))
		}
	}
}

func (c *Container) SprintGraph() string {
	var sb strings.Builder
	c.FprintGraph(&sb)
	return sb.String()
}

func (c *Container) PrintGraphDOT() {
	c.FprintGraphDOT(os.Stdout)
}

func (c *Container) FprintGraphDOT(w io.Writer) {
	info := c.Graph()

	_, _ = fmt.Fprintln(w, "digraph dependencies {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for _, node := range info.Registrations {
		style := ""
		if node.Cached {
			style = ", style=filled, fillcolor=lightblue"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", node.Contract, escapeLabel(node.Contract), style)
	}

	_, _ = fmt.Fprintln(w)

	for _, node := range info.Registrations {
		for _, dep := range node.Dependencies {
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", node.Contract, dep)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (c *Container) SprintGraphDOT() string {
	var sb strings.Builder
	c.FprintGraphDOT(&sb)
	return sb.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	if idx := strings.LastIndex(s, "/"); idx != -1 {
		s = s[idx+1:]
	}
	return s
}
