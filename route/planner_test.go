package route

import (
	"errors"
	"testing"

	"github.com/meikuraledutech/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t *testing.T
	g *topology.Graph
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, g: topology.NewGraph()}
}

func (f *fixture) node(id, typ string, weight float64, caps ...string) *fixture {
	f.t.Helper()
	n := topology.NewNode(id, typ, "ref-"+id, caps...)
	n.Weight = weight
	_, err := f.g.AddNode(n)
	require.NoError(f.t, err)
	return f
}

func (f *fixture) edge(from, to string, weight float64) *fixture {
	f.t.Helper()
	e := topology.NewEdge(from+"->"+to, from, to, topology.EdgeCanExecute)
	e.Weight = weight
	_, err := f.g.AddEdge(e)
	require.NoError(f.t, err)
	return f
}

// two agents reach task T: a1 via r1 (cost 2) or r2 (cost 5); a2 directly (cost 4)
func routingGraph(t *testing.T) *topology.Graph {
	f := newFixture(t).
		node("a1", topology.TypeAgent, 1, "compute").
		node("a2", topology.TypeAgent, 1).
		node("r1", topology.TypeResource, 1, "gpu").
		node("r2", topology.TypeResource, 1).
		node("T", topology.TypeTask, 1).
		edge("a1", "r1", 1).
		edge("r1", "T", 1).
		edge("a1", "r2", 2).
		edge("r2", "T", 3).
		edge("a2", "T", 4)
	return f.g
}

func TestPlan_ExecuteTask(t *testing.T) {
	g := routingGraph(t)
	plan, err := New(nil).Plan(g, ExecuteTask{TaskID: "T"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a1", "r1", "T"}, plan.Path.Nodes)
	assert.Equal(t, 2.0, plan.TotalWeight)
	require.Len(t, plan.Steps, 3)
	assert.Equal(t, ActionStart, plan.Steps[0].Action)
	assert.Empty(t, plan.Steps[0].EdgeID)
	assert.Equal(t, ActionTraverse, plan.Steps[1].Action)
	assert.Equal(t, "a1->r1", plan.Steps[1].EdgeID)
	assert.Equal(t, ActionExecute, plan.Steps[2].Action)
	assert.Equal(t, "ref-T", plan.Steps[2].ReferenceID)
	assert.Equal(t, GoalExecuteTask, plan.Goal.Type)

	require.Len(t, plan.Alternatives, 1)
	assert.Equal(t, []string{"a1", "r2", "T"}, plan.Alternatives[0].Nodes)
}

func TestPlan_ExecuteTaskErrors(t *testing.T) {
	g := routingGraph(t)
	p := New(nil)

	_, err := p.Plan(g, ExecuteTask{TaskID: "ghost"})
	var nf *topology.NodeNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "ghost", nf.ID)

	require.NoError(t, g.SetNodeStatus("r1", topology.NodeFailed))
	require.NoError(t, g.SetNodeStatus("r2", topology.NodeFailed))
	require.NoError(t, g.SetNodeStatus("a2", topology.NodeIdle))
	_, err = p.Plan(g, ExecuteTask{TaskID: "T"})
	var np *topology.NoPathError
	require.True(t, errors.As(err, &np))
	assert.Equal(t, "T", np.To)

	require.NoError(t, g.SetNodeStatus("a1", topology.NodeBusy))
	_, err = p.Plan(g, ExecuteTask{TaskID: "T"})
	assert.ErrorIs(t, err, topology.ErrRouting)
}

func TestPlan_ReachCapability(t *testing.T) {
	g := routingGraph(t)
	p := New(nil)

	plan, err := p.Plan(g, ReachCapability{Capability: "gpu"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "r1"}, plan.Path.Nodes)
	assert.Equal(t, ActionUseCapability, plan.Steps[1].Action)

	// a1 exposes compute itself: zero-cost plan
	plan, err = p.Plan(g, ReachCapability{Capability: "compute"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, plan.Path.Nodes)
	assert.Equal(t, 0.0, plan.TotalWeight)
	assert.Empty(t, plan.Alternatives)

	_, err = p.Plan(g, ReachCapability{Capability: "quantum"})
	assert.ErrorIs(t, err, topology.ErrRouting)
}

func TestPlan_ConnectNodes(t *testing.T) {
	g := routingGraph(t)
	p := New(nil)

	plan, err := p.Plan(g, ConnectNodes{From: "a2", To: "T"})
	require.NoError(t, err)
	assert.Equal(t, 4.0, plan.TotalWeight)
	assert.Equal(t, ActionArrive, plan.Steps[len(plan.Steps)-1].Action)

	_, err = p.Plan(g, ConnectNodes{From: "T", To: "a1"})
	assert.ErrorIs(t, err, topology.ErrNoPath)

	_, err = p.Plan(g, ConnectNodes{From: "a1", To: "nope"})
	assert.ErrorIs(t, err, topology.ErrNodeNotFound)
}

func TestPlan_AlternativesCapped(t *testing.T) {
	f := newFixture(t).node("s", topology.TypeAgent, 1).node("d", topology.TypeTask, 1)
	for i, mid := range []string{"m1", "m2", "m3", "m4", "m5"} {
		f.node(mid, topology.TypeResource, 1).edge("s", mid, float64(5-i)).edge(mid, "d", 1)
	}
	plan, err := New(nil).Plan(f.g, ConnectNodes{From: "s", To: "d"})
	require.NoError(t, err)

	assert.Equal(t, []string{"s", "m5", "d"}, plan.Path.Nodes)
	require.Len(t, plan.Alternatives, 3)
	for i := 1; i < len(plan.Alternatives); i++ {
		assert.LessOrEqual(t, plan.Alternatives[i-1].TotalWeight, plan.Alternatives[i].TotalWeight)
	}
	for _, alt := range plan.Alternatives {
		assert.False(t, alt.Equal(plan.Path))
	}
}

func TestPlan_FindAgent(t *testing.T) {
	f := newFixture(t).
		node("light", topology.TypeAgent, 0.5, "compute", "storage").
		node("heavy", topology.TypeAgent, 2, "compute", "storage").
		node("gpu", topology.TypeAgent, 5, "gpu").
		node("task", topology.TypeTask, 9, "compute", "storage")
	p := New(nil)

	plan, err := p.Plan(f.g, FindAgent{Capabilities: []string{"compute", "storage"}})
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "heavy", plan.Steps[0].NodeID)
	assert.Equal(t, ActionAssign, plan.Steps[0].Action)

	plan, err = p.Plan(f.g, FindAgent{Capabilities: []string{"gpu", "compute", "storage"}})
	require.NoError(t, err)
	assert.Equal(t, "heavy", plan.Steps[0].NodeID, "two hits beat one")
	assert.Equal(t, ActionPartialMatch, plan.Steps[0].Action)
	assert.Empty(t, plan.Alternatives)

	_, err = p.Plan(f.g, FindAgent{Capabilities: []string{"quantum"}})
	assert.ErrorIs(t, err, topology.ErrRouting)
}

func TestPlan_ExecuteWorkflow(t *testing.T) {
	f := newFixture(t).
		node("wf", topology.TypeWorkflow, 1).
		node("t1", topology.TypeTask, 1).
		node("t2", topology.TypeTask, 1).
		node("t3", topology.TypeTask, 1).
		node("up", topology.TypeTask, 1).
		edge("wf", "t1", 1).
		edge("wf", "t2", 1).
		edge("t1", "t3", 2).
		edge("t2", "t3", 1).
		edge("up", "wf", 1)
	p := New(nil)

	plan, err := p.Plan(f.g, ExecuteWorkflow{WorkflowID: "wf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"wf", "t1", "t2", "t3"}, plan.Path.Nodes)
	assert.Equal(t, "t1->t3", plan.Steps[3].EdgeID)
	assert.Equal(t, ActionVisit, plan.Steps[3].Action)
	assert.Equal(t, 4.0, plan.TotalWeight)

	_, err = p.Plan(f.g, ExecuteWorkflow{WorkflowID: "missing"})
	assert.ErrorIs(t, err, topology.ErrRouting)
}

func TestReroute(t *testing.T) {
	g := routingGraph(t)
	p := New(nil)
	plan, err := p.Plan(g, ExecuteTask{TaskID: "T"})
	require.NoError(t, err)

	rerouted, err := p.Reroute(g, plan, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "r2", "T"}, rerouted.Path.Nodes)
	assert.Equal(t, 5.0, rerouted.TotalWeight)
	assert.Equal(t, ActionExecute, rerouted.Steps[2].Action)

	n, _ := g.Node("r1")
	assert.Equal(t, topology.NodeActive, n.Status, "original graph untouched")

	_, err = p.Reroute(g, plan, "T")
	assert.ErrorIs(t, err, topology.ErrRouting)

	_, err = p.Reroute(g, plan, "ghost")
	assert.ErrorIs(t, err, topology.ErrNodeNotFound)

	require.NoError(t, g.SetNodeStatus("r2", topology.NodeFailed))
	_, err = p.Reroute(g, plan, "r1")
	assert.ErrorIs(t, err, topology.ErrNoPath)
}

func TestParseGoal(t *testing.T) {
	g, err := ParseGoal([]byte(`{"type":"connect_nodes","from":"a","to":"b"}`))
	require.NoError(t, err)
	assert.Equal(t, ConnectNodes{From: "a", To: "b"}, g)
	assert.Equal(t, GoalConnectNodes, g.Spec().Type)

	g, err = ParseGoal([]byte(`{"type":"find_agent","capabilities":["x"]}`))
	require.NoError(t, err)
	assert.Equal(t, FindAgent{Capabilities: []string{"x"}}, g)

	_, err = ParseGoal([]byte(`{"type":"execute_task"}`))
	assert.ErrorIs(t, err, ErrInvalidGoal)

	_, err = ParseGoal([]byte(`{"type":"teleport"}`))
	assert.ErrorIs(t, err, ErrInvalidGoal)

	_, err = ParseGoal([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidGoal)
}
