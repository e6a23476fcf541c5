package topology

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

func TestProjectTopology_TouchOnMutation(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	p := NewProjectTopology("p1")
	p.SetClock(fixedClock(t0, t1))

	p.Touch()
	assert.Equal(t, t0, p.LastModified)

	_, err := p.AddNode(NewNode("a", TypeAgent, ""))
	require.NoError(t, err)
	assert.Equal(t, t1, p.LastModified)
}

func TestProjectTopology_FailedMutationDoesNotTouch(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewProjectTopology("p1")
	p.SetClock(fixedClock(t0))
	p.Touch()
	p.SetClock(fixedClock(t0.Add(time.Hour)))

	_, err := p.AddEdge(NewEdge("", "x", "y", EdgeDependsOn))
	require.Error(t, err)
	assert.Equal(t, t0, p.LastModified)
}

func TestClusterInfo_RemoveMemberReassignsLeader(t *testing.T) {
	c := ClusterInfo{ID: "c", Members: []string{"a", "b", "c"}, Leader: "a", IsActive: true}

	require.True(t, c.RemoveMember("a"))
	assert.Equal(t, "b", c.Leader)
	assert.True(t, c.IsActive)

	assert.False(t, c.RemoveMember("a"))
}

func TestClusterInfo_EmptyClusterDeactivates(t *testing.T) {
	p := NewProjectTopology("p1")
	_, _ = p.AddNode(NewNode("a", TypeAgent, ""))
	p.Clusters = append(p.Clusters, ClusterInfo{ID: "c1", Members: []string{"a"}, Leader: "a", IsActive: true})
	require.Len(t, p.ActiveClusters(), 1)

	c, err := p.Cluster("c1")
	require.NoError(t, err)
	c.RemoveMember("a")

	assert.False(t, p.Clusters[0].IsActive)
	assert.Empty(t, p.Clusters[0].Leader)
	assert.Empty(t, p.ActiveClusters())
	assert.Len(t, p.Clusters, 1, "record is kept")
}

func TestProjectTopology_RemoveNodePrunesClusters(t *testing.T) {
	p := NewProjectTopology("p1")
	_, _ = p.AddNode(NewNode("a", TypeAgent, ""))
	_, _ = p.AddNode(NewNode("b", TypeAgent, ""))
	p.Clusters = append(p.Clusters, ClusterInfo{ID: "c1", Members: []string{"a", "b"}, Leader: "a", IsActive: true})

	require.NoError(t, p.RemoveNode("a"))
	assert.Equal(t, []string{"b"}, p.Clusters[0].Members)
	assert.Equal(t, "b", p.Clusters[0].Leader)
	require.NoError(t, p.Validate())
}

func TestProjectTopology_UnknownCluster(t *testing.T) {
	p := NewProjectTopology("p1")
	_, err := p.Cluster("nope")
	assert.ErrorIs(t, err, ErrCluster)
}

func TestProjectTopology_ValidateRejectsForeignMember(t *testing.T) {
	p := NewProjectTopology("p1")
	p.Clusters = []ClusterInfo{{ID: "c1", Members: []string{"ghost"}, IsActive: true}}
	assert.ErrorIs(t, p.Validate(), ErrNodeNotFound)
}
