package engine

import (
	"fmt"
	"math"
	"testing"

	"github.com/meikuraledutech/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type edgeSpec struct {
	id, from, to string
	weight       float64
}

// newGraph builds a graph of active task nodes and weighted active edges.
func newGraph(t *testing.T, nodes []string, edges []edgeSpec) *topology.Graph {
	t.Helper()
	g := topology.NewGraph()
	for _, id := range nodes {
		_, err := g.AddNode(topology.NewNode(id, topology.TypeTask, id))
		require.NoError(t, err)
	}
	for _, e := range edges {
		edge := topology.NewEdge(e.id, e.from, e.to, topology.EdgeDependsOn)
		edge.Weight = e.weight
		_, err := g.AddEdge(edge)
		require.NoError(t, err)
	}
	return g
}

func diamond(t *testing.T) *topology.Graph {
	return newGraph(t, []string{"a", "b", "c", "d"}, []edgeSpec{
		{"ab", "a", "b", 1},
		{"bd", "b", "d", 5},
		{"ac", "a", "c", 2},
		{"cd", "c", "d", 1},
	})
}

func TestShortestPath_PicksCheapest(t *testing.T) {
	g := diamond(t)
	p, ok := ShortestPath(g, "a", "d")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "c", "d"}, p.Nodes)
	assert.Equal(t, []string{"ac", "cd"}, p.Edges)
	assert.Equal(t, 3.0, p.TotalWeight)
	assert.Len(t, p.Edges, len(p.Nodes)-1)
}

func TestShortestPath_Reflexive(t *testing.T) {
	g := diamond(t)
	for _, id := range g.NodeIDs() {
		p, ok := ShortestPath(g, id, id)
		require.True(t, ok)
		assert.Equal(t, []string{id}, p.Nodes)
		assert.Empty(t, p.Edges)
		assert.Zero(t, p.TotalWeight)
	}
}

func TestShortestPath_UnknownOrUnreachable(t *testing.T) {
	g := diamond(t)
	_, ok := ShortestPath(g, "a", "zz")
	assert.False(t, ok)
	_, ok = ShortestPath(g, "d", "a")
	assert.False(t, ok)
	assert.False(t, PathExists(g, "d", "a"))
}

func TestShortestPath_SkipsInactiveEdgesAndNodes(t *testing.T) {
	g := diamond(t)
	require.NoError(t, g.SetNodeStatus("c", topology.NodeFailed))
	p, ok := ShortestPath(g, "a", "d")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "d"}, p.Nodes)

	require.NoError(t, g.SetEdgeStatus("bd", topology.EdgeInactive))
	_, ok = ShortestPath(g, "a", "d")
	assert.False(t, ok)
	assert.False(t, PathExists(g, "a", "d"))
}

func TestShortestPath_FollowsDegradedEdges(t *testing.T) {
	g := diamond(t)
	require.NoError(t, g.SetEdgeStatus("ac", topology.EdgeDegraded))
	p, ok := ShortestPath(g, "a", "d")
	require.True(t, ok)
	assert.Equal(t, []string{"ac", "cd"}, p.Edges)
}

func TestShortestPath_MatchesMinimumOfAllPaths(t *testing.T) {
	g := newGraph(t, []string{"s", "a", "b", "c", "t"}, []edgeSpec{
		{"sa", "s", "a", 2}, {"sb", "s", "b", 1}, {"ab", "a", "b", 0.5},
		{"ba", "b", "a", 0.5}, {"at", "a", "t", 1}, {"bc", "b", "c", 3},
		{"ct", "c", "t", 0.2}, {"bt", "b", "t", 4},
	})
	sp, ok := ShortestPath(g, "s", "t")
	require.True(t, ok)

	all := AllPaths(g, "s", "t", 100, 10)
	require.NotEmpty(t, all)
	best := math.Inf(1)
	for _, p := range all {
		best = math.Min(best, p.TotalWeight)
	}
	assert.InDelta(t, best, sp.TotalWeight, 1e-9)
	assert.InDelta(t, 2.5, sp.TotalWeight, 1e-9)
}

func TestAllPaths_Bounds(t *testing.T) {
	g := diamond(t)
	all := AllPaths(g, "a", "d", 10, 10)
	assert.Len(t, all, 2)

	assert.Len(t, AllPaths(g, "a", "d", 1, 10), 1)
	assert.Empty(t, AllPaths(g, "a", "d", 10, 1))
	assert.Nil(t, AllPaths(g, "a", "d", 0, 10))

	for _, p := range all {
		seen := map[string]bool{}
		for _, n := range p.Nodes {
			assert.False(t, seen[n], "path repeats node %s", n)
			seen[n] = true
		}
	}
}

func TestWouldCreateCycle(t *testing.T) {
	g := diamond(t)
	assert.True(t, WouldCreateCycle(g, "d", "a"))
	assert.False(t, WouldCreateCycle(g, "a", "d"))
	assert.True(t, WouldCreateCycle(g, "b", "b"))
}

func TestWouldCreateCycle_IgnoresNodeStatus(t *testing.T) {
	g := newGraph(t, []string{"a", "b"}, []edgeSpec{{"ab", "a", "b", 1}})
	require.NoError(t, g.SetNodeStatus("a", topology.NodeIdle))
	require.NoError(t, g.SetNodeStatus("b", topology.NodeBusy))

	assert.False(t, PathExists(g, "a", "b"))
	assert.True(t, WouldCreateCycle(g, "b", "a"))

	require.NoError(t, g.SetEdgeStatus("ab", topology.EdgeInactive))
	assert.False(t, WouldCreateCycle(g, "b", "a"))
}

func TestTopologicalSort_Acyclic(t *testing.T) {
	g := diamond(t)
	order, ok := TopologicalSort(g)
	require.True(t, ok)
	require.Len(t, order, 4)

	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range g.Edges() {
		assert.Less(t, pos[e.FromNodeID], pos[e.ToNodeID], e.ID)
	}
	assert.Empty(t, FindCycles(g))
}

func TestTopologicalSort_Cycle(t *testing.T) {
	g := newGraph(t, []string{"a", "b", "c"}, []edgeSpec{
		{"ab", "a", "b", 1}, {"bc", "b", "c", 1}, {"ca", "c", "a", 1},
	})
	_, ok := TopologicalSort(g)
	assert.False(t, ok)

	cycles := FindCycles(g)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c"}, cycles[0])
}

func TestTopologicalSort_InactiveEdgeBreaksCycle(t *testing.T) {
	g := newGraph(t, []string{"a", "b"}, []edgeSpec{
		{"ab", "a", "b", 1}, {"ba", "b", "a", 1},
	})
	require.NoError(t, g.SetEdgeStatus("ba", topology.EdgeInactive))
	_, ok := TopologicalSort(g)
	assert.True(t, ok)
	assert.Empty(t, FindCycles(g))
}

func TestCycleTopoSortDuality(t *testing.T) {
	cases := map[string][]edgeSpec{
		"empty":     nil,
		"chain":     {{"ab", "a", "b", 1}, {"bc", "b", "c", 1}},
		"self loop": {{"aa", "a", "a", 1}},
		"two cycle": {{"ab", "a", "b", 1}, {"ba", "b", "a", 1}},
		"diamond":   {{"ab", "a", "b", 1}, {"ac", "a", "c", 1}, {"bd", "b", "d", 1}, {"cd", "c", "d", 1}},
		"tail loop": {{"ab", "a", "b", 1}, {"bc", "b", "c", 1}, {"cd", "c", "d", 1}, {"db", "d", "b", 1}},
	}
	for name, edges := range cases {
		t.Run(name, func(t *testing.T) {
			g := newGraph(t, []string{"a", "b", "c", "d"}, edges)
			_, ok := TopologicalSort(g)
			assert.Equal(t, ok, len(FindCycles(g)) == 0)
		})
	}
}

func TestConnectedComponents_Partition(t *testing.T) {
	g := newGraph(t, []string{"a", "b", "c", "d", "e"}, []edgeSpec{
		{"ba", "b", "a", 1}, {"cd", "c", "d", 1},
	})
	comps := ConnectedComponents(g)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, comps)

	count := map[string]int{}
	for _, c := range comps {
		for _, id := range c {
			count[id]++
		}
	}
	for _, id := range g.NodeIDs() {
		assert.Equal(t, 1, count[id], id)
	}
}

func TestOrphansAndDeadEnds(t *testing.T) {
	g := newGraph(t, []string{"a", "b", "c", "lonely"}, []edgeSpec{
		{"ab", "a", "b", 1}, {"ac", "a", "c", 1},
	})
	require.NoError(t, g.SetNodeStatus("lonely", topology.NodeFailed))
	assert.Equal(t, []string{"lonely"}, Orphans(g))
	assert.Equal(t, []string{"b", "c"}, DeadEnds(g))
}

func TestAllPairsStats(t *testing.T) {
	g := newGraph(t, []string{"a", "b", "c"}, []edgeSpec{
		{"ab", "a", "b", 1}, {"bc", "b", "c", 2},
	})
	stats := AllPairsStats(g)
	// a->b 1, a->c 3, b->c 2
	assert.Equal(t, 3, stats.ConnectedPairs)
	assert.Equal(t, 3.0, Diameter(g))
	assert.InDelta(t, 2.0, AveragePathLength(g), 1e-9)

	assert.Zero(t, Diameter(topology.NewGraph()))
}

func TestDeterminism(t *testing.T) {
	nodes := []string{}
	edges := []edgeSpec{}
	for i := 0; i < 12; i++ {
		nodes = append(nodes, fmt.Sprintf("n%d", i))
	}
	for i := 0; i < 12; i++ {
		for _, step := range []int{1, 3, 5} {
			j := (i + step) % 12
			edges = append(edges, edgeSpec{fmt.Sprintf("e%d-%d", i, j), nodes[i], nodes[j], 1})
		}
	}
	g := newGraph(t, nodes, edges)

	p1, _ := ShortestPath(g, "n0", "n7")
	p2, _ := ShortestPath(g, "n0", "n7")
	assert.Equal(t, p1, p2)
	assert.Equal(t, FindCycles(g), FindCycles(g))
	assert.Equal(t, ConnectedComponents(g), ConnectedComponents(g))
	assert.Equal(t, AllPairsStats(g), AllPairsStats(g))
}
