// Package snapshot reads and writes topology documents as YAML. JSON input is
// accepted too since it parses as YAML.
package snapshot

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meikuraledutech/topology"
)

// Document is the on-disk shape of a topology.
type Document struct {
	ID       string                 `yaml:"id" json:"id"`
	Nodes    []Node                 `yaml:"nodes" json:"nodes"`
	Edges    []Edge                 `yaml:"edges" json:"edges"`
	Clusters []topology.ClusterInfo `yaml:"clusters,omitempty" json:"clusters,omitempty"`
}

// Node mirrors topology.GraphNode with an optional weight. A missing weight
// means 1.0.
type Node struct {
	ID           string              `yaml:"id" json:"id"`
	NodeType     string              `yaml:"node_type" json:"node_type"`
	ReferenceID  string              `yaml:"reference_id,omitempty" json:"reference_id,omitempty"`
	Capabilities []string            `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Weight       *float64            `yaml:"weight,omitempty" json:"weight,omitempty"`
	Status       topology.NodeStatus `yaml:"status,omitempty" json:"status,omitempty"`
}

// Edge mirrors topology.GraphEdge with an optional weight.
type Edge struct {
	ID         string              `yaml:"id,omitempty" json:"id,omitempty"`
	FromNodeID string              `yaml:"from" json:"from"`
	ToNodeID   string              `yaml:"to" json:"to"`
	EdgeType   string              `yaml:"edge_type" json:"edge_type"`
	Weight     *float64            `yaml:"weight,omitempty" json:"weight,omitempty"`
	Status     topology.EdgeStatus `yaml:"status,omitempty" json:"status,omitempty"`
}

func weightOr1(w *float64) float64 {
	if w == nil {
		return 1.0
	}
	return *w
}

// Topology builds a ProjectTopology from the document. Edges must reference
// declared nodes and cluster members must exist.
func (d *Document) Topology() (*topology.ProjectTopology, error) {
	t := topology.NewProjectTopology(d.ID)
	for _, n := range d.Nodes {
		_, err := t.Graph.AddNode(topology.GraphNode{
			ID:           n.ID,
			NodeType:     n.NodeType,
			ReferenceID:  n.ReferenceID,
			Capabilities: n.Capabilities,
			Weight:       weightOr1(n.Weight),
			Status:       n.Status,
		})
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	for _, e := range d.Edges {
		_, err := t.Graph.AddEdge(topology.GraphEdge{
			ID:         e.ID,
			FromNodeID: e.FromNodeID,
			ToNodeID:   e.ToNodeID,
			EdgeType:   e.EdgeType,
			Weight:     weightOr1(e.Weight),
			Status:     e.Status,
		})
		if err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", e.FromNodeID, e.ToNodeID, err)
		}
	}
	for _, c := range d.Clusters {
		if c.Members == nil {
			c.Members = []string{}
		}
		t.Clusters = append(t.Clusters, c)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// FromTopology converts a topology into its document form.
func FromTopology(t *topology.ProjectTopology) *Document {
	d := &Document{ID: t.ID, Nodes: []Node{}, Edges: []Edge{}, Clusters: t.Clusters}
	for _, n := range t.Graph.Nodes() {
		w := n.Weight
		d.Nodes = append(d.Nodes, Node{
			ID:           n.ID,
			NodeType:     n.NodeType,
			ReferenceID:  n.ReferenceID,
			Capabilities: n.Capabilities,
			Weight:       &w,
			Status:       n.Status,
		})
	}
	for _, e := range t.Graph.Edges() {
		w := e.Weight
		d.Edges = append(d.Edges, Edge{
			ID:         e.ID,
			FromNodeID: e.FromNodeID,
			ToNodeID:   e.ToNodeID,
			EdgeType:   e.EdgeType,
			Weight:     &w,
			Status:     e.Status,
		})
	}
	return d
}

// Decode parses a YAML or JSON document into a topology.
func Decode(data []byte) (*topology.ProjectTopology, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("invalid topology document: %w", err)
	}
	return d.Topology()
}

// Encode renders t as YAML.
func Encode(t *topology.ProjectTopology) ([]byte, error) {
	return yaml.Marshal(FromTopology(t))
}

// ReadFile decodes the document at path.
func ReadFile(path string) (*topology.ProjectTopology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology file: %w", err)
	}
	return Decode(data)
}
