package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/topology"
)

const nodeColumns = `id, node_type, reference_id, capabilities, weight, status`

func insertNode(ctx context.Context, db execer, topologyID string, n *topology.GraphNode) error {
	if _, err := db.Exec(ctx,
		`INSERT INTO topo_nodes (topology_id, id, node_type, reference_id, capabilities, weight, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		topologyID, n.ID, n.NodeType, n.ReferenceID, nonNil(n.Capabilities), n.Weight, string(n.Status),
	); err != nil {
		return fmt.Errorf("topology: insert node %s: %w", n.ID, err)
	}
	return nil
}

func scanNode(row pgx.Row) (topology.GraphNode, error) {
	var (
		n      topology.GraphNode
		status string
	)
	err := row.Scan(&n.ID, &n.NodeType, &n.ReferenceID, &n.Capabilities, &n.Weight, &status)
	n.Status = topology.NodeStatus(status)
	return n, err
}

// AddNode inserts a single node into a topology.
// If node.ID is empty, a UUID is auto-generated.
// Returns the node ID (generated or provided).
func (s *PGStore) AddNode(ctx context.Context, topologyID string, node *topology.GraphNode) (string, error) {
	if err := node.Normalize(); err != nil {
		return "", err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("topology: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := touch(ctx, tx, topologyID); err != nil {
		return "", err
	}
	if err := insertNode(ctx, tx, topologyID, node); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("topology: commit: %w", err)
	}
	return node.ID, nil
}

// GetNode fetches a single node by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetNode(ctx context.Context, topologyID, nodeID string) (*topology.GraphNode, error) {
	n, err := scanNode(s.db.QueryRow(ctx,
		`SELECT `+nodeColumns+` FROM topo_nodes WHERE topology_id = $1 AND id = $2`,
		topologyID, nodeID,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("topology: get node: %w", err)
	}
	return &n, nil
}

// UpdateNode replaces the attributes of an existing node.
// Returns ErrNodeNotFound if the node doesn't exist.
func (s *PGStore) UpdateNode(ctx context.Context, topologyID string, node *topology.GraphNode) error {
	if err := node.Normalize(); err != nil {
		return err
	}
	ct, err := s.db.Exec(ctx,
		`UPDATE topo_nodes SET node_type = $1, reference_id = $2, capabilities = $3, weight = $4, status = $5
		 WHERE topology_id = $6 AND id = $7`,
		node.NodeType, node.ReferenceID, nonNil(node.Capabilities), node.Weight, string(node.Status),
		topologyID, node.ID,
	)
	if err != nil {
		return fmt.Errorf("topology: update node: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return &topology.NodeNotFoundError{ID: node.ID}
	}
	return touch(ctx, s.db, topologyID)
}

// DeleteNode deletes a node by its ID.
// Associated edges are cascade-deleted by the DB.
// No error if the node doesn't exist.
func (s *PGStore) DeleteNode(ctx context.Context, topologyID, nodeID string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM topo_nodes WHERE topology_id = $1 AND id = $2`, topologyID, nodeID)
	if err != nil {
		return fmt.Errorf("topology: delete node: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return touch(ctx, s.db, topologyID)
	}
	return nil
}

// ListNodes returns all nodes for a topology in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListNodes(ctx context.Context, topologyID string) ([]topology.GraphNode, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+nodeColumns+` FROM topo_nodes WHERE topology_id = $1 ORDER BY seq`, topologyID)
	if err != nil {
		return nil, fmt.Errorf("topology: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []topology.GraphNode{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("topology: scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("topology: rows nodes: %w", err)
	}

	return nodes, nil
}
