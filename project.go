package topology

import (
	"fmt"
	"slices"
	"time"
)

// ClusterInfo is a named team of nodes inside a topology.
type ClusterInfo struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Members  []string `json:"members" yaml:"members"`
	Leader   string   `json:"leader,omitempty" yaml:"leader,omitempty"`
	Purpose  string   `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	IsActive bool     `json:"is_active" yaml:"is_active"`
}

// HasMember reports whether id is in the cluster.
func (c *ClusterInfo) HasMember(id string) bool {
	return slices.Contains(c.Members, id)
}

// AddMember appends id if absent and reactivates an empty cluster.
func (c *ClusterInfo) AddMember(id string) bool {
	if c.HasMember(id) {
		return false
	}
	c.Members = append(c.Members, id)
	if c.Leader == "" {
		c.Leader = id
	}
	c.IsActive = true
	return true
}

// RemoveMember drops id. If id was the leader, leadership passes to the first
// remaining member; an emptied cluster is deactivated, not deleted.
func (c *ClusterInfo) RemoveMember(id string) bool {
	if !c.HasMember(id) {
		return false
	}
	c.Members = slices.DeleteFunc(c.Members, func(m string) bool { return m == id })
	if c.Leader == id {
		c.Leader = ""
		if len(c.Members) > 0 {
			c.Leader = c.Members[0]
		}
	}
	if len(c.Members) == 0 {
		c.IsActive = false
	}
	return true
}

// ProjectTopology is one graph plus its clusters. LastModified is touched by
// every mutating method.
type ProjectTopology struct {
	ID           string        `json:"id"`
	Graph        *Graph        `json:"graph"`
	Clusters     []ClusterInfo `json:"clusters"`
	LastModified time.Time     `json:"last_modified"`

	now func() time.Time
}

// NewProjectTopology returns an empty topology.
func NewProjectTopology(id string) *ProjectTopology {
	t := &ProjectTopology{ID: id, Graph: NewGraph(), Clusters: []ClusterInfo{}}
	t.Touch()
	return t
}

// SetClock overrides the time source used by Touch.
func (t *ProjectTopology) SetClock(now func() time.Time) {
	t.now = now
}

// Touch records a modification.
func (t *ProjectTopology) Touch() {
	if t.now != nil {
		t.LastModified = t.now().UTC()
		return
	}
	t.LastModified = time.Now().UTC()
}

func (t *ProjectTopology) AddNode(n GraphNode) (string, error) {
	id, err := t.Graph.AddNode(n)
	if err != nil {
		return "", err
	}
	t.Touch()
	return id, nil
}

func (t *ProjectTopology) AddEdge(e GraphEdge) (string, error) {
	id, err := t.Graph.AddEdge(e)
	if err != nil {
		return "", err
	}
	t.Touch()
	return id, nil
}

// RemoveNode deletes the node, its edges and its cluster memberships.
func (t *ProjectTopology) RemoveNode(id string) error {
	if err := t.Graph.RemoveNode(id); err != nil {
		return err
	}
	for i := range t.Clusters {
		t.Clusters[i].RemoveMember(id)
	}
	t.Touch()
	return nil
}

func (t *ProjectTopology) RemoveEdge(id string) error {
	if err := t.Graph.RemoveEdge(id); err != nil {
		return err
	}
	t.Touch()
	return nil
}

func (t *ProjectTopology) SetNodeStatus(id string, status NodeStatus) error {
	if err := t.Graph.SetNodeStatus(id, status); err != nil {
		return err
	}
	t.Touch()
	return nil
}

func (t *ProjectTopology) SetEdgeStatus(id string, status EdgeStatus) error {
	if err := t.Graph.SetEdgeStatus(id, status); err != nil {
		return err
	}
	t.Touch()
	return nil
}

// Cluster returns a pointer into t.Clusters for the given id.
func (t *ProjectTopology) Cluster(id string) (*ClusterInfo, error) {
	for i := range t.Clusters {
		if t.Clusters[i].ID == id {
			return &t.Clusters[i], nil
		}
	}
	return nil, Clusterf("cluster %s not found", id)
}

// ActiveClusters returns clusters that are active and non-empty.
func (t *ProjectTopology) ActiveClusters() []ClusterInfo {
	out := []ClusterInfo{}
	for _, c := range t.Clusters {
		if c.IsActive && len(c.Members) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// ReplaceClusters swaps the cluster list, used by merge and split.
func (t *ProjectTopology) ReplaceClusters(clusters []ClusterInfo) {
	t.Clusters = clusters
	t.Touch()
}

// Validate checks that every cluster member and leader is a node of the graph.
func (t *ProjectTopology) Validate() error {
	if t.Graph == nil {
		return fmt.Errorf("topology: %s has no graph", t.ID)
	}
	for _, c := range t.Clusters {
		for _, m := range c.Members {
			if !t.Graph.HasNode(m) {
				return fmt.Errorf("cluster %s: %w", c.ID, &NodeNotFoundError{ID: m})
			}
		}
		if c.Leader != "" && !c.HasMember(c.Leader) {
			return Clusterf("cluster %s leader %s is not a member", c.ID, c.Leader)
		}
	}
	return nil
}
