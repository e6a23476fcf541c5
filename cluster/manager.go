// Package cluster forms, reshapes and discovers teams of nodes in a topology.
package cluster

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/logger"
)

// validate is a singleton validator instance
var validate = validator.New()

// coverageWarnThreshold is the coverage below which formation warns.
const coverageWarnThreshold = 0.8

// Requirements describe the team a caller wants.
type Requirements struct {
	Capabilities []string `json:"required_capabilities"`
	MinNodes     int      `json:"min_nodes" validate:"gte=1"`
	MaxNodes     int      `json:"max_nodes" validate:"gte=0"`
	NodeTypes    []string `json:"node_types"`
	Purpose      string   `json:"purpose"`
}

// Validate checks the requirement bounds.
func (r Requirements) Validate() error {
	if err := validate.Struct(r); err != nil {
		return topology.Clusterf("invalid requirements: %v", err)
	}
	return nil
}

// FormationResult is the created cluster plus how well it covers the request.
type FormationResult struct {
	Cluster             topology.ClusterInfo `json:"cluster"`
	Coverage            float64              `json:"capability_coverage"`
	MissingCapabilities []string             `json:"missing_capabilities"`
	Warnings            []string             `json:"warnings"`
}

// Manager mutates the cluster list of a ProjectTopology.
type Manager struct {
	Logger *slog.Logger
	NewID  func() string
}

// New returns a Manager that assigns UUIDs to new clusters.
func New(logger *slog.Logger) *Manager {
	return &Manager{Logger: logger, NewID: uuid.NewString}
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return logger.Discard()
}

func (m *Manager) newID() string {
	if m.NewID != nil {
		return m.NewID()
	}
	return uuid.NewString()
}

type candidate struct {
	node  *topology.GraphNode
	score float64
}

// Form selects the best-scoring active nodes and records them as a new cluster.
func (m *Manager) Form(t *topology.ProjectTopology, req Requirements, name string) (*FormationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var candidates []candidate
	for _, n := range t.Graph.Nodes() {
		if !n.IsActive() {
			continue
		}
		if len(req.NodeTypes) > 0 && !slices.Contains(req.NodeTypes, n.NodeType) {
			continue
		}
		candidates = append(candidates, candidate{node: n, score: score(n, req.Capabilities)})
	}
	if len(candidates) < req.MinNodes {
		return nil, topology.Clusterf("need at least %d nodes, only %d candidates qualify", req.MinNodes, len(candidates))
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})
	take := min(max(req.MinNodes, req.MaxNodes), len(candidates))
	selected := candidates[:take]

	members := make([]string, 0, take)
	leader := selected[0].node
	for _, c := range selected {
		members = append(members, c.node.ID)
		if c.node.Weight > leader.Weight {
			leader = c.node
		}
	}

	info := topology.ClusterInfo{
		ID:       m.newID(),
		Name:     name,
		Members:  members,
		Leader:   leader.ID,
		Purpose:  req.Purpose,
		IsActive: true,
	}
	t.Clusters = append(t.Clusters, info)
	t.Touch()

	coverage, missing := coverageOf(selected, req.Capabilities)
	var warnings []string
	if coverage < coverageWarnThreshold {
		warnings = append(warnings, fmt.Sprintf("capability coverage %.0f%% is below %.0f%%", coverage*100, coverageWarnThreshold*100))
	}
	if len(missing) > 0 {
		warnings = append(warnings, "missing capabilities: "+strings.Join(missing, ", "))
	}

	m.logger().Info("cluster formed",
		"cluster", info.ID,
		"name", name,
		"members", len(members),
		"leader", info.Leader,
		"coverage", coverage,
	)
	return &FormationResult{
		Cluster:             info,
		Coverage:            coverage,
		MissingCapabilities: missing,
		Warnings:            warnings,
	}, nil
}

func score(n *topology.GraphNode, required []string) float64 {
	if len(required) == 0 {
		return n.Weight
	}
	matches := 0
	for _, c := range required {
		if n.HasCapability(c) {
			matches++
		}
	}
	return float64(matches) / float64(len(required)) * n.Weight
}

func coverageOf(selected []candidate, required []string) (float64, []string) {
	missing := []string{}
	if len(required) == 0 {
		return 1, missing
	}
	covered := 0
	for _, c := range required {
		found := slices.ContainsFunc(selected, func(s candidate) bool { return s.node.HasCapability(c) })
		if found {
			covered++
		} else {
			missing = append(missing, c)
		}
	}
	return float64(covered) / float64(len(required)), missing
}

// Dissolve deletes the cluster record.
func (m *Manager) Dissolve(t *topology.ProjectTopology, clusterID string) error {
	idx := slices.IndexFunc(t.Clusters, func(c topology.ClusterInfo) bool { return c.ID == clusterID })
	if idx < 0 {
		return topology.Clusterf("cluster %s not found", clusterID)
	}
	t.Clusters = slices.Delete(t.Clusters, idx, idx+1)
	t.Touch()
	m.logger().Info("cluster dissolved", "cluster", clusterID)
	return nil
}

// AddMember puts an existing node into a cluster.
func (m *Manager) AddMember(t *topology.ProjectTopology, clusterID, nodeID string) error {
	if !t.Graph.HasNode(nodeID) {
		return &topology.NodeNotFoundError{ID: nodeID}
	}
	c, err := t.Cluster(clusterID)
	if err != nil {
		return err
	}
	if !c.AddMember(nodeID) {
		return topology.Clusterf("node %s is already in cluster %s", nodeID, clusterID)
	}
	t.Touch()
	return nil
}

// RemoveMember takes a node out of a cluster. Removing the leader hands
// leadership to the first remaining member; removing the last member
// deactivates the cluster.
func (m *Manager) RemoveMember(t *topology.ProjectTopology, clusterID, nodeID string) error {
	c, err := t.Cluster(clusterID)
	if err != nil {
		return err
	}
	if !c.RemoveMember(nodeID) {
		return topology.Clusterf("node %s is not in cluster %s", nodeID, clusterID)
	}
	t.Touch()
	if !c.IsActive {
		m.logger().Info("cluster deactivated", "cluster", clusterID)
	}
	return nil
}
