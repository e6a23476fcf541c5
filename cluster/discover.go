package cluster

import (
	"slices"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/engine"
)

// Suggested purposes for discovered clusters.
const (
	PurposeAgentPool     = "agent_pool"
	PurposeTaskBatch     = "task_batch"
	PurposeExecutionTeam = "execution_team"
	PurposeResourceGroup = "resource_group"
)

// Suggestion is a connected group of nodes that could become a cluster.
type Suggestion struct {
	Members          []string `json:"members"`
	SuggestedPurpose string   `json:"suggested_purpose"`
	Cohesion         float64  `json:"cohesion_score"`
	NodeTypes        []string `json:"node_types"`
}

// Discover proposes one cluster per connected component with two or more
// nodes, ranked by cohesion.
func (m *Manager) Discover(g *topology.Graph) []Suggestion {
	out := []Suggestion{}
	for _, comp := range engine.ConnectedComponents(g) {
		if len(comp) < 2 {
			continue
		}
		types := nodeTypes(g, comp)
		out = append(out, Suggestion{
			Members:          comp,
			SuggestedPurpose: purposeFor(types),
			Cohesion:         Cohesion(g, comp),
			NodeTypes:        types,
		})
	}
	slices.SortStableFunc(out, func(a, b Suggestion) int {
		switch {
		case a.Cohesion > b.Cohesion:
			return -1
		case a.Cohesion < b.Cohesion:
			return 1
		}
		return 0
	})
	m.logger().Debug("clusters discovered", "suggestions", len(out))
	return out
}

// Cohesion is the directed edge density of members: internal edges divided
// by n·(n−1). Sets smaller than two have no density and score 0.
func Cohesion(g *topology.Graph, members []string) float64 {
	n := len(members)
	if n < 2 {
		return 0
	}
	in := make(map[string]bool, n)
	for _, id := range members {
		in[id] = true
	}
	internal := 0
	for _, e := range g.Edges() {
		if in[e.FromNodeID] && in[e.ToNodeID] {
			internal++
		}
	}
	return float64(internal) / float64(n*(n-1))
}

func nodeTypes(g *topology.Graph, members []string) []string {
	var types []string
	for _, id := range members {
		n, ok := g.Node(id)
		if !ok || slices.Contains(types, n.NodeType) {
			continue
		}
		types = append(types, n.NodeType)
	}
	return types
}

func purposeFor(types []string) string {
	hasAgent := slices.Contains(types, topology.TypeAgent)
	hasTask := slices.Contains(types, topology.TypeTask)
	switch {
	case hasAgent && hasTask:
		return PurposeExecutionTeam
	case hasAgent && len(types) == 1:
		return PurposeAgentPool
	case hasTask && len(types) == 1:
		return PurposeTaskBatch
	}
	return PurposeResourceGroup
}

// Merge replaces clusters a and b with a single new cluster holding the
// union of their members. A's leader is kept when it has one.
func (m *Manager) Merge(t *topology.ProjectTopology, a, b, name string) (*topology.ClusterInfo, error) {
	if a == b {
		return nil, topology.Clusterf("cannot merge cluster %s with itself", a)
	}
	ca, err := t.Cluster(a)
	if err != nil {
		return nil, err
	}
	cb, err := t.Cluster(b)
	if err != nil {
		return nil, err
	}

	members := slices.Clone(ca.Members)
	for _, id := range cb.Members {
		if !slices.Contains(members, id) {
			members = append(members, id)
		}
	}
	leader := ca.Leader
	if leader == "" {
		leader = cb.Leader
	}
	if leader == "" && len(members) > 0 {
		leader = members[0]
	}
	purpose := ca.Purpose
	if purpose == "" {
		purpose = cb.Purpose
	}
	merged := topology.ClusterInfo{
		ID:       m.newID(),
		Name:     name,
		Members:  members,
		Leader:   leader,
		Purpose:  purpose,
		IsActive: len(members) > 0,
	}

	next := make([]topology.ClusterInfo, 0, len(t.Clusters)-1)
	for _, c := range t.Clusters {
		if c.ID != a && c.ID != b {
			next = append(next, c)
		}
	}
	next = append(next, merged)
	t.ReplaceClusters(next)

	m.logger().Info("clusters merged", "from", []string{a, b}, "cluster", merged.ID, "members", len(members))
	return &merged, nil
}

// Split moves subset out of cluster id into a new cluster. The source keeps
// its id and the remaining members.
func (m *Manager) Split(t *topology.ProjectTopology, id string, subset []string, name string) (*topology.ClusterInfo, *topology.ClusterInfo, error) {
	src, err := t.Cluster(id)
	if err != nil {
		return nil, nil, err
	}
	if len(subset) == 0 {
		return nil, nil, topology.Clusterf("split of cluster %s needs at least one member", id)
	}
	for _, member := range subset {
		if !src.HasMember(member) {
			return nil, nil, topology.Clusterf("node %s is not in cluster %s", member, id)
		}
	}
	remainder := slices.DeleteFunc(slices.Clone(src.Members), func(member string) bool {
		return slices.Contains(subset, member)
	})
	if len(remainder) == 0 {
		return nil, nil, topology.Clusterf("split would leave cluster %s empty", id)
	}

	moved := []string{}
	for _, member := range subset {
		if !slices.Contains(moved, member) {
			moved = append(moved, member)
		}
	}
	split := topology.ClusterInfo{
		ID:       m.newID(),
		Name:     name,
		Members:  moved,
		Leader:   moved[0],
		Purpose:  src.Purpose,
		IsActive: true,
	}
	if slices.Contains(moved, src.Leader) {
		split.Leader = src.Leader
	}

	src.Members = remainder
	if !slices.Contains(remainder, src.Leader) {
		src.Leader = remainder[0]
	}
	src.IsActive = true
	kept := *src

	t.ReplaceClusters(append(t.Clusters, split))

	m.logger().Info("cluster split", "cluster", id, "new_cluster", split.ID, "moved", len(moved))
	return &kept, &split, nil
}
