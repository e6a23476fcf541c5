package service

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/engine"
)

// NodeFilter narrows ListNodes. Empty fields match everything.
type NodeFilter struct {
	Type       string `json:"node_type,omitempty" query:"type"`
	Status     string `json:"status,omitempty" query:"status"`
	Capability string `json:"capability,omitempty" query:"capability"`
}

func (f NodeFilter) match(n *topology.GraphNode) bool {
	if f.Type != "" && n.NodeType != f.Type {
		return false
	}
	if f.Status != "" && string(n.Status) != f.Status {
		return false
	}
	return f.Capability == "" || n.HasCapability(f.Capability)
}

// EdgeFilter narrows ListEdges. NodeID matches either endpoint.
type EdgeFilter struct {
	Type   string `json:"edge_type,omitempty" query:"type"`
	Status string `json:"status,omitempty" query:"status"`
	NodeID string `json:"node_id,omitempty" query:"node"`
}

func (f EdgeFilter) match(e *topology.GraphEdge) bool {
	if f.Type != "" && e.EdgeType != f.Type {
		return false
	}
	if f.Status != "" && string(e.Status) != f.Status {
		return false
	}
	return f.NodeID == "" || e.FromNodeID == f.NodeID || e.ToNodeID == f.NodeID
}

// ListNodes returns the topology's nodes in insertion order.
func (s *Service) ListNodes(ctx context.Context, topologyID string, f NodeFilter) ([]topology.GraphNode, error) {
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	out := []topology.GraphNode{}
	for _, n := range t.Graph.Nodes() {
		if f.match(n) {
			out = append(out, *n)
		}
	}
	return out, nil
}

// ListEdges returns the topology's edges in insertion order.
func (s *Service) ListEdges(ctx context.Context, topologyID string, f EdgeFilter) ([]topology.GraphEdge, error) {
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	out := []topology.GraphEdge{}
	for _, e := range t.Graph.Edges() {
		if f.match(e) {
			out = append(out, *e)
		}
	}
	return out, nil
}

// AddNode registers a node.
func (s *Service) AddNode(ctx context.Context, topologyID string, n topology.GraphNode) (*topology.GraphNode, error) {
	defer s.lock(topologyID)()
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	id, err := t.AddNode(n)
	if err != nil {
		return nil, err
	}
	stored, _ := t.Graph.Node(id)
	node := *stored
	if _, err := s.store.AddNode(ctx, topologyID, &node); err != nil {
		return nil, err
	}
	s.log.Info("node added", "topology", topologyID, "node", id, "type", node.NodeType)
	return &node, nil
}

// RemoveNode drops a node, its edges and its cluster memberships.
func (s *Service) RemoveNode(ctx context.Context, topologyID, nodeID string) error {
	defer s.lock(topologyID)()
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return err
	}
	if err := t.RemoveNode(nodeID); err != nil {
		return err
	}
	if err := s.store.DeleteNode(ctx, topologyID, nodeID); err != nil {
		return err
	}
	if err := s.store.SaveClusters(ctx, topologyID, t.Clusters); err != nil {
		return err
	}
	s.log.Info("node removed", "topology", topologyID, "node", nodeID)
	return nil
}

// AddEdge links two existing nodes. A depends_on edge that would close a
// cycle is rejected when cycle rejection is enabled.
func (s *Service) AddEdge(ctx context.Context, topologyID string, e topology.GraphEdge) (*topology.GraphEdge, error) {
	defer s.lock(topologyID)()
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	for _, id := range []string{e.FromNodeID, e.ToNodeID} {
		if !t.Graph.HasNode(id) {
			return nil, &topology.NodeNotFoundError{ID: id}
		}
	}
	if s.rejectCycles && e.EdgeType == topology.EdgeDependsOn && engine.WouldCreateCycle(t.Graph, e.FromNodeID, e.ToNodeID) {
		return nil, fmt.Errorf("%w: %s -> %s", topology.ErrCycleDetected, e.FromNodeID, e.ToNodeID)
	}
	id, err := t.AddEdge(e)
	if err != nil {
		return nil, err
	}
	stored, _ := t.Graph.Edge(id)
	edge := *stored
	if _, err := s.store.AddEdge(ctx, topologyID, &edge); err != nil {
		return nil, err
	}
	s.log.Info("edge added", "topology", topologyID, "edge", id, "from", edge.FromNodeID, "to", edge.ToNodeID)
	return &edge, nil
}

// RemoveEdge drops an edge.
func (s *Service) RemoveEdge(ctx context.Context, topologyID, edgeID string) error {
	defer s.lock(topologyID)()
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return err
	}
	if err := t.RemoveEdge(edgeID); err != nil {
		return err
	}
	if err := s.store.DeleteEdge(ctx, topologyID, edgeID); err != nil {
		return err
	}
	s.log.Info("edge removed", "topology", topologyID, "edge", edgeID)
	return nil
}

// SetNodeStatus changes a node's status.
func (s *Service) SetNodeStatus(ctx context.Context, topologyID, nodeID string, status topology.NodeStatus) (*topology.GraphNode, error) {
	defer s.lock(topologyID)()
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	if err := t.SetNodeStatus(nodeID, status); err != nil {
		return nil, err
	}
	stored, _ := t.Graph.Node(nodeID)
	node := *stored
	if err := s.store.UpdateNode(ctx, topologyID, &node); err != nil {
		return nil, err
	}
	s.log.Info("node status changed", "topology", topologyID, "node", nodeID, "status", status)
	return &node, nil
}

// SetEdgeStatus changes an edge's status.
func (s *Service) SetEdgeStatus(ctx context.Context, topologyID, edgeID string, status topology.EdgeStatus) (*topology.GraphEdge, error) {
	defer s.lock(topologyID)()
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	if err := t.SetEdgeStatus(edgeID, status); err != nil {
		return nil, err
	}
	stored, _ := t.Graph.Edge(edgeID)
	edge := *stored
	if err := s.store.UpdateEdge(ctx, topologyID, &edge); err != nil {
		return nil, err
	}
	s.log.Info("edge status changed", "topology", topologyID, "edge", edgeID, "status", status)
	return &edge, nil
}
