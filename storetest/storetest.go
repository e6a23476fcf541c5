// Package storetest is a conformance suite run against every topology.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/topology"
)

// Sample returns a small topology with two agents, a task, a degraded edge
// and one cluster.
func Sample(t *testing.T, id string) *topology.ProjectTopology {
	t.Helper()
	pt := topology.NewProjectTopology(id)
	pt.LastModified = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	a1 := topology.NewNode("a1", topology.TypeAgent, "agent-1", "compute", "storage")
	a1.Weight = 2
	a2 := topology.NewNode("a2", topology.TypeAgent, "agent-2")
	a2.Status = topology.NodeIdle
	for _, n := range []topology.GraphNode{a1, a2, topology.NewNode("t1", topology.TypeTask, "task-1")} {
		_, err := pt.Graph.AddNode(n)
		require.NoError(t, err)
	}
	e := topology.NewEdge("e1", "a1", "t1", topology.EdgeCanExecute)
	e.Weight = 0.5
	_, err := pt.Graph.AddEdge(e)
	require.NoError(t, err)
	e2 := topology.NewEdge("e2", "a2", "t1", topology.EdgeCanExecute)
	e2.Status = topology.EdgeDegraded
	_, err = pt.Graph.AddEdge(e2)
	require.NoError(t, err)

	pt.Clusters = []topology.ClusterInfo{{
		ID:       "c1",
		Name:     "team",
		Members:  []string{"a1", "a2"},
		Leader:   "a1",
		Purpose:  "agent_pool",
		IsActive: true,
	}}
	return pt
}

// Run exercises s. The store must have its schema created and be empty.
func Run(t *testing.T, s topology.Store) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		want := Sample(t, "rt")
		require.NoError(t, s.SaveTopology(ctx, want))

		got, err := s.LoadTopology(ctx, "rt")
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, want.Graph.NodeIDs(), got.Graph.NodeIDs())
		assert.Equal(t, want.Clusters, got.Clusters)
		assert.True(t, want.LastModified.Equal(got.LastModified))

		n, ok := got.Graph.Node("a1")
		require.True(t, ok)
		assert.Equal(t, []string{"compute", "storage"}, n.Capabilities)
		assert.Equal(t, 2.0, n.Weight)

		e, ok := got.Graph.Edge("e2")
		require.True(t, ok)
		assert.Equal(t, topology.EdgeDegraded, e.Status)
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		pt := Sample(t, "replace")
		require.NoError(t, s.SaveTopology(ctx, pt))

		require.NoError(t, pt.RemoveNode("a2"))
		require.NoError(t, s.SaveTopology(ctx, pt))

		nodes, err := s.ListNodes(ctx, "replace")
		require.NoError(t, err)
		assert.Len(t, nodes, 2)
		edges, err := s.ListEdges(ctx, "replace")
		require.NoError(t, err)
		assert.Len(t, edges, 1)
		clusters, err := s.ListClusters(ctx, "replace")
		require.NoError(t, err)
		require.Len(t, clusters, 1)
		assert.Equal(t, []string{"a1"}, clusters[0].Members)
	})

	t.Run("MissingTopology", func(t *testing.T) {
		got, err := s.LoadTopology(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)

		_, err = s.AddNode(ctx, "nope", &topology.GraphNode{NodeType: topology.TypeTask})
		assert.ErrorIs(t, err, topology.ErrTopologyNotFound)
		assert.ErrorIs(t, s.SaveClusters(ctx, "nope", nil), topology.ErrTopologyNotFound)
	})

	t.Run("NodeCRUD", func(t *testing.T) {
		require.NoError(t, s.SaveTopology(ctx, topology.NewProjectTopology("nodes")))

		node := &topology.GraphNode{NodeType: topology.TypeResource, Weight: 3}
		id, err := s.AddNode(ctx, "nodes", node)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, topology.NodeActive, node.Status)

		got, err := s.GetNode(ctx, "nodes", id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 3.0, got.Weight)
		assert.Empty(t, got.Capabilities)

		got.Status = topology.NodeFailed
		got.Capabilities = []string{"gpu"}
		require.NoError(t, s.UpdateNode(ctx, "nodes", got))
		again, err := s.GetNode(ctx, "nodes", id)
		require.NoError(t, err)
		assert.Equal(t, topology.NodeFailed, again.Status)
		assert.Equal(t, []string{"gpu"}, again.Capabilities)

		err = s.UpdateNode(ctx, "nodes", &topology.GraphNode{ID: "ghost", NodeType: topology.TypeTask})
		assert.ErrorIs(t, err, topology.ErrNodeNotFound)

		require.NoError(t, s.DeleteNode(ctx, "nodes", id))
		require.NoError(t, s.DeleteNode(ctx, "nodes", id))
		missing, err := s.GetNode(ctx, "nodes", id)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("EdgeCRUDAndCascade", func(t *testing.T) {
		pt := Sample(t, "edges")
		require.NoError(t, s.SaveTopology(ctx, pt))

		edge := &topology.GraphEdge{FromNodeID: "a2", ToNodeID: "a1", EdgeType: topology.EdgeDependsOn, Weight: 1}
		id, err := s.AddEdge(ctx, "edges", edge)
		require.NoError(t, err)

		got, err := s.GetEdge(ctx, "edges", id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, topology.EdgeActive, got.Status)

		got.Status = topology.EdgeInactive
		got.Weight = 4
		require.NoError(t, s.UpdateEdge(ctx, "edges", got))
		again, err := s.GetEdge(ctx, "edges", id)
		require.NoError(t, err)
		assert.Equal(t, topology.EdgeInactive, again.Status)
		assert.Equal(t, 4.0, again.Weight)

		assert.ErrorIs(t, s.UpdateEdge(ctx, "edges", &topology.GraphEdge{ID: "ghost", FromNodeID: "a1", ToNodeID: "t1"}), topology.ErrEdgeNotFound)

		_, err = s.AddEdge(ctx, "edges", &topology.GraphEdge{FromNodeID: "a1", ToNodeID: "ghost", EdgeType: topology.EdgeDependsOn})
		assert.Error(t, err, "dangling edges are rejected")

		require.NoError(t, s.DeleteNode(ctx, "edges", "a1"))
		edges, err := s.ListEdges(ctx, "edges")
		require.NoError(t, err)
		require.Len(t, edges, 1, "edges touching a1 are gone")
		assert.Equal(t, "e2", edges[0].ID)

		require.NoError(t, s.DeleteEdge(ctx, "edges", "e2"))
		edges, err = s.ListEdges(ctx, "edges")
		require.NoError(t, err)
		assert.Empty(t, edges)
	})

	t.Run("ScopedIDs", func(t *testing.T) {
		require.NoError(t, s.SaveTopology(ctx, Sample(t, "left")))
		require.NoError(t, s.SaveTopology(ctx, Sample(t, "right")))
		require.NoError(t, s.DeleteNode(ctx, "left", "a1"))

		n, err := s.GetNode(ctx, "right", "a1")
		require.NoError(t, err)
		assert.NotNil(t, n, "same id in another topology is untouched")
	})

	t.Run("ClustersAndDelete", func(t *testing.T) {
		pt := Sample(t, "clusters")
		require.NoError(t, s.SaveTopology(ctx, pt))

		next := []topology.ClusterInfo{
			{ID: "x", Name: "x", Members: []string{"t1"}, Leader: "t1", IsActive: true},
			{ID: "y", Name: "y", Members: []string{}, IsActive: false},
		}
		require.NoError(t, s.SaveClusters(ctx, "clusters", next))
		got, err := s.ListClusters(ctx, "clusters")
		require.NoError(t, err)
		assert.Equal(t, next, got)

		ids, err := s.ListTopologies(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "clusters")

		require.NoError(t, s.DeleteTopology(ctx, "clusters"))
		loaded, err := s.LoadTopology(ctx, "clusters")
		require.NoError(t, err)
		assert.Nil(t, loaded)
		got, err = s.ListClusters(ctx, "clusters")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
