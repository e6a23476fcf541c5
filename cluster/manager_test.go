package cluster

import (
	"errors"
	"fmt"
	"testing"

	"github.com/meikuraledutech/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}
}

func newManager() *Manager {
	return &Manager{NewID: seqIDs()}
}

func addAgent(t *testing.T, pt *topology.ProjectTopology, id string, weight float64, caps ...string) {
	t.Helper()
	n := topology.NewNode(id, topology.TypeAgent, id, caps...)
	n.Weight = weight
	_, err := pt.AddNode(n)
	require.NoError(t, err)
}

func TestForm_PicksHighestScores(t *testing.T) {
	pt := topology.NewProjectTopology("p")
	addAgent(t, pt, "a1", 1.0, "compute")
	addAgent(t, pt, "a2", 0.5, "compute")
	addAgent(t, pt, "a3", 0.8, "compute")

	res, err := newManager().Form(pt, Requirements{
		Capabilities: []string{"compute"},
		MinNodes:     2,
		MaxNodes:     2,
		Purpose:      "build",
	}, "builders")
	require.NoError(t, err)

	assert.Equal(t, []string{"a1", "a3"}, res.Cluster.Members)
	assert.Equal(t, "a1", res.Cluster.Leader)
	assert.Equal(t, "build", res.Cluster.Purpose)
	assert.True(t, res.Cluster.IsActive)
	assert.Equal(t, 1.0, res.Coverage)
	assert.Empty(t, res.MissingCapabilities)
	assert.Empty(t, res.Warnings)
	require.Len(t, pt.Clusters, 1)
	assert.Equal(t, "c1", pt.Clusters[0].ID)
}

func TestForm_PartialCoverageWarns(t *testing.T) {
	pt := topology.NewProjectTopology("p")
	addAgent(t, pt, "a1", 1.0, "compute")
	addAgent(t, pt, "a2", 1.0, "storage")

	res, err := newManager().Form(pt, Requirements{
		Capabilities: []string{"compute", "storage", "gpu"},
		MinNodes:     1,
		MaxNodes:     5,
	}, "mixed")
	require.NoError(t, err)

	assert.Len(t, res.Cluster.Members, 2)
	assert.InDelta(t, 2.0/3.0, res.Coverage, 1e-9)
	assert.Equal(t, []string{"gpu"}, res.MissingCapabilities)
	assert.Len(t, res.Warnings, 2)
}

func TestForm_FiltersTypeAndStatus(t *testing.T) {
	pt := topology.NewProjectTopology("p")
	addAgent(t, pt, "a1", 1.0)
	addAgent(t, pt, "a2", 1.0)
	require.NoError(t, pt.SetNodeStatus("a2", topology.NodeFailed))
	_, err := pt.AddNode(topology.NewNode("t1", topology.TypeTask, "t1"))
	require.NoError(t, err)

	_, err = newManager().Form(pt, Requirements{
		MinNodes:  2,
		NodeTypes: []string{topology.TypeAgent},
	}, "too-few")
	require.Error(t, err)
	var ce *topology.ClusterError
	assert.True(t, errors.As(err, &ce))
	assert.Empty(t, pt.Clusters)
}

func TestForm_InvalidRequirements(t *testing.T) {
	pt := topology.NewProjectTopology("p")
	_, err := newManager().Form(pt, Requirements{MinNodes: 0}, "x")
	assert.ErrorIs(t, err, topology.ErrCluster)
}

func formed(t *testing.T, pt *topology.ProjectTopology, m *Manager, ids ...string) string {
	t.Helper()
	for _, id := range ids {
		if !pt.Graph.HasNode(id) {
			addAgent(t, pt, id, 1.0)
		}
	}
	res, err := m.Form(pt, Requirements{MinNodes: len(ids), NodeTypes: []string{topology.TypeAgent}}, "team")
	require.NoError(t, err)
	// Form picks by score; pin membership for the test.
	c, err := pt.Cluster(res.Cluster.ID)
	require.NoError(t, err)
	c.Members = append([]string(nil), ids...)
	c.Leader = ids[0]
	return c.ID
}

func TestDissolve(t *testing.T) {
	pt := topology.NewProjectTopology("p")
	m := newManager()
	id := formed(t, pt, m, "a1", "a2")

	require.NoError(t, m.Dissolve(pt, id))
	assert.Empty(t, pt.Clusters)
	assert.ErrorIs(t, m.Dissolve(pt, id), topology.ErrCluster)
}

func TestMembership(t *testing.T) {
	pt := topology.NewProjectTopology("p")
	m := newManager()
	id := formed(t, pt, m, "a1", "a2")
	addAgent(t, pt, "a3", 1.0)

	require.NoError(t, m.AddMember(pt, id, "a3"))
	assert.ErrorIs(t, m.AddMember(pt, id, "a3"), topology.ErrCluster)
	assert.ErrorIs(t, m.AddMember(pt, id, "ghost"), topology.ErrNodeNotFound)

	require.NoError(t, m.RemoveMember(pt, id, "a1"))
	c, _ := pt.Cluster(id)
	assert.Equal(t, "a2", c.Leader)

	require.NoError(t, m.RemoveMember(pt, id, "a2"))
	require.NoError(t, m.RemoveMember(pt, id, "a3"))
	c, _ = pt.Cluster(id)
	assert.False(t, c.IsActive)
	assert.Empty(t, pt.ActiveClusters())
	assert.Len(t, pt.Clusters, 1, "an emptied cluster is kept")

	assert.ErrorIs(t, m.RemoveMember(pt, id, "a2"), topology.ErrCluster)
}
