package topology

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildChain(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		_, err := g.AddNode(NewNode(id, TypeTask, "ref-"+id))
		require.NoError(t, err)
	}
	_, err := g.AddEdge(NewEdge("ab", "a", "b", EdgeDependsOn))
	require.NoError(t, err)
	_, err = g.AddEdge(NewEdge("bc", "b", "c", EdgeDependsOn))
	require.NoError(t, err)
	return g
}

func TestAddNode_GeneratesIDAndDefaults(t *testing.T) {
	g := NewGraph()
	id, err := g.AddNode(GraphNode{NodeType: TypeAgent})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	n, ok := g.Node(id)
	require.True(t, ok)
	assert.Equal(t, NodeActive, n.Status)
}

func TestAddNode_Duplicate(t *testing.T) {
	g := NewGraph()
	_, err := g.AddNode(NewNode("a", TypeAgent, ""))
	require.NoError(t, err)
	_, err = g.AddNode(NewNode("a", TypeAgent, ""))
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestAddEdge_RejectsDangling(t *testing.T) {
	g := NewGraph()
	_, err := g.AddNode(NewNode("a", TypeAgent, ""))
	require.NoError(t, err)

	_, err = g.AddEdge(NewEdge("", "a", "missing", EdgeCanExecute))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	var nf *NodeNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing", nf.ID)
	assert.Equal(t, 0, g.EdgeCount())
}

func TestAddEdge_RejectsNegativeWeight(t *testing.T) {
	g := NewGraph()
	_, _ = g.AddNode(NewNode("a", TypeAgent, ""))
	_, _ = g.AddNode(NewNode("b", TypeTask, ""))
	for _, w := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		e := NewEdge("", "a", "b", EdgeCanExecute)
		e.Weight = w
		_, err := g.AddEdge(e)
		assert.ErrorIs(t, err, ErrInvalidWeight, "weight %v", w)
	}
	assert.Equal(t, 0, g.EdgeCount())

	n := NewNode("c", TypeTask, "")
	n.Weight = math.NaN()
	_, err := g.AddNode(n)
	assert.ErrorIs(t, err, ErrInvalidWeight)
}

func TestRemoveNode_DropsTouchingEdges(t *testing.T) {
	g := buildChain(t)
	_, err := g.AddEdge(NewEdge("bb", "b", "b", "self"))
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode("b"))

	assert.False(t, g.HasNode("b"))
	assert.Equal(t, 0, g.EdgeCount())
	assert.Equal(t, 0, g.OutDegree("a"))
	assert.Equal(t, 0, g.InDegree("c"))
	assert.Equal(t, []string{"a", "c"}, g.NodeIDs())
}

func TestRemoveNode_Unknown(t *testing.T) {
	g := NewGraph()
	assert.ErrorIs(t, g.RemoveNode("nope"), ErrNodeNotFound)
}

func TestDegreesAndAdjacency(t *testing.T) {
	g := buildChain(t)
	assert.Equal(t, 1, g.OutDegree("a"))
	assert.Equal(t, 0, g.InDegree("a"))
	assert.Equal(t, 1, g.InDegree("b"))
	require.Len(t, g.EdgesFrom("b"), 1)
	assert.Equal(t, "bc", g.EdgesFrom("b")[0].ID)
	require.Len(t, g.EdgesTo("b"), 1)
	assert.Equal(t, "ab", g.EdgesTo("b")[0].ID)
}

func TestClone_IsIndependent(t *testing.T) {
	g := buildChain(t)
	c := g.Clone()

	require.NoError(t, c.SetNodeStatus("b", NodeFailed))
	require.NoError(t, c.RemoveNode("c"))

	n, _ := g.Node("b")
	assert.Equal(t, NodeActive, n.Status)
	assert.True(t, g.HasNode("c"))
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, 1, c.EdgeCount())
}

func TestSetStatus_Validates(t *testing.T) {
	g := buildChain(t)
	assert.ErrorIs(t, g.SetNodeStatus("a", "sleeping"), ErrInvalidStatus)
	assert.ErrorIs(t, g.SetEdgeStatus("ab", "broken"), ErrInvalidStatus)
	assert.ErrorIs(t, g.SetEdgeStatus("zz", EdgeDegraded), ErrEdgeNotFound)
	require.NoError(t, g.SetEdgeStatus("ab", EdgeDegraded))
	e, _ := g.Edge("ab")
	assert.True(t, e.Status.IsActive())
}

func TestGraphJSON(t *testing.T) {
	g := buildChain(t)
	data, err := json.Marshal(g)
	require.NoError(t, err)

	var back Graph
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, g.NodeIDs(), back.NodeIDs())
	assert.Equal(t, 2, back.EdgeCount())

	require.NoError(t, json.Unmarshal([]byte(`{"nodes":[{"id":"a"},{"id":"b","weight":2}],"edges":[{"id":"x","from_node_id":"a","to_node_id":"b"},{"id":"y","from_node_id":"b","to_node_id":"a","weight":0}]}`), &back))
	a, _ := back.Node("a")
	b, _ := back.Node("b")
	assert.Equal(t, 1.0, a.Weight)
	assert.Equal(t, 2.0, b.Weight)
	x, _ := back.Edge("x")
	y, _ := back.Edge("y")
	assert.Equal(t, 1.0, x.Weight)
	assert.Equal(t, 0.0, y.Weight)

	err = json.Unmarshal([]byte(`{"nodes":[{"id":"a"}],"edges":[{"id":"x","from_node_id":"a","to_node_id":"b"}]}`), &back)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, NodeActive.IsActive())
	for _, s := range []NodeStatus{NodeIdle, NodeBusy, NodeDegraded, NodeFailed} {
		assert.False(t, s.IsActive(), s)
	}
	assert.True(t, EdgeActive.IsActive())
	assert.True(t, EdgeDegraded.IsActive())
	assert.False(t, EdgeInactive.IsActive())
}

func TestHasCapability_CaseSensitive(t *testing.T) {
	n := NewNode("a", TypeAgent, "", "GPU")
	assert.True(t, n.HasCapability("GPU"))
	assert.False(t, n.HasCapability("gpu"))
}
