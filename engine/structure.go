package engine

import (
	"slices"

	"github.com/meikuraledutech/topology"
)

// TopologicalSort orders nodes so every active edge points forward, using
// Kahn's algorithm. It returns false when the active edges contain a cycle;
// that is a normal topology state, not an error.
func TopologicalSort(g *topology.Graph) ([]string, bool) {
	indeg := make(map[string]int, g.NodeCount())
	for _, e := range g.Edges() {
		if e.Status.IsActive() {
			indeg[e.ToNodeID]++
		}
	}

	queue := []string{}
	for _, id := range g.NodeIDs() {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, g.NodeCount())
	for head := 0; head < len(queue); head++ {
		id := queue[head]
		order = append(order, id)
		for _, e := range g.EdgesFrom(id) {
			if !e.Status.IsActive() {
				continue
			}
			indeg[e.ToNodeID]--
			if indeg[e.ToNodeID] == 0 {
				queue = append(queue, e.ToNodeID)
			}
		}
	}

	if len(order) != g.NodeCount() {
		return nil, false
	}
	return order, true
}

// FindCycles reports cycles found by a DFS over active edges. Each cycle runs
// from the node a back-edge returns to, up to the node that closed it.
func FindCycles(g *topology.Graph) [][]string {
	var (
		cycles  [][]string
		visited = map[string]bool{}
		onStack = map[string]bool{}
		stack   []string
	)

	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		for _, e := range g.EdgesFrom(id) {
			if !e.Status.IsActive() {
				continue
			}
			next := e.ToNodeID
			switch {
			case !visited[next]:
				visit(next)
			case onStack[next]:
				start := slices.Index(stack, next)
				cycles = append(cycles, slices.Clone(stack[start:]))
			}
		}

		stack = stack[:len(stack)-1]
		onStack[id] = false
	}

	for _, id := range g.NodeIDs() {
		if !visited[id] {
			visit(id)
		}
	}
	return cycles
}

// ConnectedComponents partitions the nodes treating every edge as undirected.
// Components are ordered by their first node's insertion order.
func ConnectedComponents(g *topology.Graph) [][]string {
	seen := make(map[string]bool, g.NodeCount())
	var components [][]string

	for _, start := range g.NodeIDs() {
		if seen[start] {
			continue
		}
		seen[start] = true
		component := []string{start}
		for head := 0; head < len(component); head++ {
			cur := component[head]
			for _, e := range g.EdgesFrom(cur) {
				if !seen[e.ToNodeID] {
					seen[e.ToNodeID] = true
					component = append(component, e.ToNodeID)
				}
			}
			for _, e := range g.EdgesTo(cur) {
				if !seen[e.FromNodeID] {
					seen[e.FromNodeID] = true
					component = append(component, e.FromNodeID)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

// Orphans returns nodes with no edges at all.
func Orphans(g *topology.Graph) []string {
	out := []string{}
	for _, id := range g.NodeIDs() {
		if g.InDegree(id) == 0 && g.OutDegree(id) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// DeadEnds returns nodes that are reached but lead nowhere.
func DeadEnds(g *topology.Graph) []string {
	out := []string{}
	for _, id := range g.NodeIDs() {
		if g.InDegree(id) > 0 && g.OutDegree(id) == 0 {
			out = append(out, id)
		}
	}
	return out
}
