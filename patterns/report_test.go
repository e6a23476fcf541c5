package patterns

import (
	"testing"

	"github.com/meikuraledutech/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_HealthyChain(t *testing.T) {
	g := topology.NewGraph()
	addNode(t, g, "agent", topology.TypeAgent, "compute")
	addNode(t, g, "agent2", topology.TypeAgent, "compute")
	addNode(t, g, "task", topology.TypeTask)
	addEdge(t, g, "agent", "task")
	addEdge(t, g, "agent2", "task")

	r := New(DefaultConfig()).Analyze(g, []string{"compute"})

	assert.Empty(t, r.Bottlenecks)
	assert.Empty(t, r.Holes)
	assert.Empty(t, r.Cycles)
	assert.Empty(t, r.Orphans)
	assert.Equal(t, []string{"task"}, r.DeadEnds)
	assert.Equal(t, 1, r.ComponentCount)
	assert.Equal(t, 1.0, r.Diameter)
	assert.InDelta(t, 0.97, r.HealthScore, 1e-9)
	assert.True(t, r.IsHealthy())
}

func TestAnalyze_Penalties(t *testing.T) {
	g := topology.NewGraph()
	addNode(t, g, "a", topology.TypeTask)
	addNode(t, g, "b", topology.TypeTask)
	addNode(t, g, "lonely", topology.TypeAgent)
	addEdge(t, g, "a", "b")
	addEdge(t, g, "b", "a")

	r := New(DefaultConfig()).Analyze(g, []string{"gpu"})

	// critical hole .20, one cycle .15, one orphan .05, one extra component .10
	require.Len(t, r.Cycles, 1)
	assert.Equal(t, []string{"lonely"}, r.Orphans)
	assert.Equal(t, 2, r.ComponentCount)
	assert.InDelta(t, 0.50, r.HealthScore, 1e-9)
	assert.False(t, r.IsHealthy())
}

func TestAnalyze_ScoreFloorsAtZero(t *testing.T) {
	g := topology.NewGraph()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		addNode(t, g, id, topology.TypeTask)
	}
	r := New(DefaultConfig()).Analyze(g, []string{"x", "y", "z"})
	// 3 critical holes, 6 orphans, 5 extra components
	assert.Equal(t, 0.0, r.HealthScore)
}

func TestAnalyze_Idempotent(t *testing.T) {
	g := topology.NewGraph()
	addNode(t, g, "agent", topology.TypeAgent, "compute")
	addNode(t, g, "hub", topology.TypeResource)
	for _, id := range []string{"t1", "t2", "t3"} {
		addNode(t, g, id, topology.TypeTask)
		addEdge(t, g, "hub", id)
	}
	addEdge(t, g, "agent", "hub")
	d := New(DefaultConfig())
	assert.Equal(t, d.Analyze(g, []string{"compute"}), d.Analyze(g, []string{"compute"}))
}
