package topology

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// NodeStatus is the operational state of a node.
type NodeStatus string

const (
	NodeActive   NodeStatus = "active"
	NodeIdle     NodeStatus = "idle"
	NodeBusy     NodeStatus = "busy"
	NodeDegraded NodeStatus = "degraded"
	NodeFailed   NodeStatus = "failed"
)

// IsActive reports whether algorithms may route through or select the node.
func (s NodeStatus) IsActive() bool {
	return s == NodeActive
}

// Valid reports whether s is one of the known node statuses.
func (s NodeStatus) Valid() bool {
	switch s {
	case NodeActive, NodeIdle, NodeBusy, NodeDegraded, NodeFailed:
		return true
	}
	return false
}

// EdgeStatus is the state of a relationship between two nodes.
type EdgeStatus string

const (
	EdgeActive   EdgeStatus = "active"
	EdgeInactive EdgeStatus = "inactive"
	EdgeDegraded EdgeStatus = "degraded"
)

// IsActive reports whether the edge may be traversed.
// Degraded edges stay traversable; they are surfaced by degraded-path analysis.
func (s EdgeStatus) IsActive() bool {
	return s == EdgeActive || s == EdgeDegraded
}

// Valid reports whether s is one of the known edge statuses.
func (s EdgeStatus) Valid() bool {
	switch s {
	case EdgeActive, EdgeInactive, EdgeDegraded:
		return true
	}
	return false
}

// Well-known node and edge types. Types are free-form strings; these are the
// ones the analysis and planning code gives meaning to.
const (
	TypeAgent    = "agent"
	TypeTask     = "task"
	TypeResource = "resource"
	TypeProject  = "project"
	TypeWorkflow = "workflow"

	EdgeCanExecute = "can_execute"
	EdgeDependsOn  = "depends_on"
	EdgeAssignedTo = "assigned_to"
)

// GraphNode is one entity participating in the topology.
// ReferenceID links back to the external entity (e.g. a task UUID).
type GraphNode struct {
	ID           string     `json:"id" yaml:"id"`
	NodeType     string     `json:"node_type" yaml:"node_type"`
	ReferenceID  string     `json:"reference_id" yaml:"reference_id"`
	Capabilities []string   `json:"capabilities" yaml:"capabilities"`
	Weight       float64    `json:"weight" yaml:"weight"`
	Status       NodeStatus `json:"status" yaml:"status"`
}

// NewNode returns an active node with weight 1.0.
func NewNode(id, nodeType, referenceID string, capabilities ...string) GraphNode {
	return GraphNode{
		ID:           id,
		NodeType:     nodeType,
		ReferenceID:  referenceID,
		Capabilities: capabilities,
		Weight:       1.0,
		Status:       NodeActive,
	}
}

// Normalize assigns a UUID to an empty ID, defaults an empty status to active
// and rejects negative, NaN or infinite weights and unknown statuses.
func (n *GraphNode) Normalize() error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if !validWeight(n.Weight) {
		return fmt.Errorf("%w: node %s", ErrInvalidWeight, n.ID)
	}
	if n.Status == "" {
		n.Status = NodeActive
	}
	if !n.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, n.Status)
	}
	return nil
}

func validWeight(w float64) bool {
	return w >= 0 && !math.IsInf(w, 1)
}

// IsActive is shorthand for n.Status.IsActive().
func (n *GraphNode) IsActive() bool {
	return n.Status.IsActive()
}

// HasCapability reports whether the node exposes capability c (exact match).
func (n *GraphNode) HasCapability(c string) bool {
	for _, have := range n.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// GraphEdge is a directed, typed relationship. Weight is the traversal cost.
type GraphEdge struct {
	ID         string     `json:"id" yaml:"id"`
	FromNodeID string     `json:"from_node_id" yaml:"from_node_id"`
	ToNodeID   string     `json:"to_node_id" yaml:"to_node_id"`
	EdgeType   string     `json:"edge_type" yaml:"edge_type"`
	Weight     float64    `json:"weight" yaml:"weight"`
	Status     EdgeStatus `json:"status" yaml:"status"`
}

// NewEdge returns an active edge with weight 1.0.
func NewEdge(id, from, to, edgeType string) GraphEdge {
	return GraphEdge{
		ID:         id,
		FromNodeID: from,
		ToNodeID:   to,
		EdgeType:   edgeType,
		Weight:     1.0,
		Status:     EdgeActive,
	}
}

// Normalize is the edge counterpart of GraphNode.Normalize.
func (e *GraphEdge) Normalize() error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if !validWeight(e.Weight) {
		return fmt.Errorf("%w: edge %s", ErrInvalidWeight, e.ID)
	}
	if e.Status == "" {
		e.Status = EdgeActive
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
	}
	return nil
}

// Path is an ordered walk through the graph. len(Edges) == len(Nodes)-1.
type Path struct {
	Nodes       []string `json:"nodes"`
	Edges       []string `json:"edges"`
	TotalWeight float64  `json:"total_weight"`
}

// Len returns the number of hops in the path.
func (p Path) Len() int {
	return len(p.Edges)
}

// Equal reports whether both paths visit the same nodes over the same edges.
func (p Path) Equal(o Path) bool {
	if len(p.Nodes) != len(o.Nodes) || len(p.Edges) != len(o.Edges) {
		return false
	}
	for i := range p.Nodes {
		if p.Nodes[i] != o.Nodes[i] {
			return false
		}
	}
	for i := range p.Edges {
		if p.Edges[i] != o.Edges[i] {
			return false
		}
	}
	return true
}
