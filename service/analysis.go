package service

import (
	"context"
	"time"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/engine"
	"github.com/meikuraledutech/topology/patterns"
	"github.com/meikuraledutech/topology/route"
)

// PathResult is the shortest path between two nodes plus alternatives.
type PathResult struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	Path         topology.Path   `json:"path"`
	Alternatives []topology.Path `json:"alternatives"`
}

// FindPath returns the cheapest active route and up to the configured number
// of alternatives.
func (s *Service) FindPath(ctx context.Context, topologyID, from, to string) (*PathResult, error) {
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	plan, err := s.planner.Plan(t.Graph, route.ConnectNodes{From: from, To: to})
	if err != nil {
		return nil, err
	}
	return &PathResult{From: from, To: to, Path: plan.Path, Alternatives: plan.Alternatives}, nil
}

// DetectIssues runs the full pattern analysis.
func (s *Service) DetectIssues(ctx context.Context, topologyID string, required []string) (*patterns.Report, error) {
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	return s.detector.Analyze(t.Graph, required), nil
}

// Summary is a compact overview of one topology.
type Summary struct {
	ID             string         `json:"id"`
	NodeCount      int            `json:"node_count"`
	EdgeCount      int            `json:"edge_count"`
	NodesByType    map[string]int `json:"nodes_by_type"`
	NodesByStatus  map[string]int `json:"nodes_by_status"`
	EdgesByStatus  map[string]int `json:"edges_by_status"`
	ActiveClusters int            `json:"active_clusters"`
	ComponentCount int            `json:"component_count"`
	Acyclic        bool           `json:"acyclic"`
	HealthScore    float64        `json:"health_score"`
	LastModified   time.Time      `json:"last_modified"`
}

// GetTopologySummary counts nodes and edges by kind and scores health with no
// required capabilities.
func (s *Service) GetTopologySummary(ctx context.Context, topologyID string) (*Summary, error) {
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		ID:             t.ID,
		NodeCount:      t.Graph.NodeCount(),
		EdgeCount:      t.Graph.EdgeCount(),
		NodesByType:    map[string]int{},
		NodesByStatus:  map[string]int{},
		EdgesByStatus:  map[string]int{},
		ActiveClusters: len(t.ActiveClusters()),
		LastModified:   t.LastModified,
	}
	for _, n := range t.Graph.Nodes() {
		sum.NodesByType[n.NodeType]++
		sum.NodesByStatus[string(n.Status)]++
	}
	for _, e := range t.Graph.Edges() {
		sum.EdgesByStatus[string(e.Status)]++
	}
	report := s.detector.Analyze(t.Graph, nil)
	sum.ComponentCount = report.ComponentCount
	sum.Acyclic = len(report.Cycles) == 0
	sum.HealthScore = report.HealthScore
	return sum, nil
}

// TopologicalOrder returns a dependency order, or ok=false when cycles exist.
func (s *Service) TopologicalOrder(ctx context.Context, topologyID string) ([]string, bool, error) {
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, false, err
	}
	order, ok := engine.TopologicalSort(t.Graph)
	return order, ok, nil
}

// PlanRoute resolves a goal.
func (s *Service) PlanRoute(ctx context.Context, topologyID string, goal route.Goal) (*route.ExecutionPlan, error) {
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	return s.planner.Plan(t.Graph, goal)
}

// Reroute recomputes plan as if failedNodeID had failed. The stored topology
// is not changed.
func (s *Service) Reroute(ctx context.Context, topologyID string, plan *route.ExecutionPlan, failedNodeID string) (*route.ExecutionPlan, error) {
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	return s.planner.Reroute(t.Graph, plan, failedNodeID)
}
