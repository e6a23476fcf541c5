package topology

import "context"

// Store defines the contract for persisting and retrieving topologies.
// Node and edge ids are unique per topology, so every lookup is scoped by
// topologyID. The analysis packages never call a Store; callers load a
// snapshot, work on it in memory and write the changes back.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Topology (bulk operations)
	SaveTopology(ctx context.Context, t *ProjectTopology) error
	LoadTopology(ctx context.Context, topologyID string) (*ProjectTopology, error)
	DeleteTopology(ctx context.Context, topologyID string) error
	ListTopologies(ctx context.Context) ([]string, error)

	// Nodes
	AddNode(ctx context.Context, topologyID string, node *GraphNode) (string, error)
	GetNode(ctx context.Context, topologyID, nodeID string) (*GraphNode, error)
	UpdateNode(ctx context.Context, topologyID string, node *GraphNode) error
	DeleteNode(ctx context.Context, topologyID, nodeID string) error
	ListNodes(ctx context.Context, topologyID string) ([]GraphNode, error)

	// Edges
	AddEdge(ctx context.Context, topologyID string, edge *GraphEdge) (string, error)
	GetEdge(ctx context.Context, topologyID, edgeID string) (*GraphEdge, error)
	UpdateEdge(ctx context.Context, topologyID string, edge *GraphEdge) error
	DeleteEdge(ctx context.Context, topologyID, edgeID string) error
	ListEdges(ctx context.Context, topologyID string) ([]GraphEdge, error)

	// Clusters
	SaveClusters(ctx context.Context, topologyID string, clusters []ClusterInfo) error
	ListClusters(ctx context.Context, topologyID string) ([]ClusterInfo, error)
}
