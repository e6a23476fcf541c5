package sqlite

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/topology"
)

const nodeColumns = `id, node_type, reference_id, capabilities, weight, status`

type scanner interface {
	Scan(dest ...any) error
}

func insertNode(ctx context.Context, db execer, topologyID string, n *topology.GraphNode) error {
	caps, err := encodeList(n.Capabilities)
	if err != nil {
		return fmt.Errorf("topology: encode capabilities: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO topo_nodes (topology_id, id, node_type, reference_id, capabilities, weight, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		topologyID, n.ID, n.NodeType, n.ReferenceID, caps, n.Weight, string(n.Status),
	); err != nil {
		return fmt.Errorf("topology: insert node %s: %w", n.ID, err)
	}
	return nil
}

func scanNode(row scanner) (topology.GraphNode, error) {
	var (
		n            topology.GraphNode
		caps, status string
	)
	if err := row.Scan(&n.ID, &n.NodeType, &n.ReferenceID, &caps, &n.Weight, &status); err != nil {
		return n, err
	}
	n.Status = topology.NodeStatus(status)
	var err error
	n.Capabilities, err = decodeList(caps)
	return n, err
}

// AddNode inserts a node, generating a UUID for an empty ID.
func (s *Store) AddNode(ctx context.Context, topologyID string, node *topology.GraphNode) (string, error) {
	if err := node.Normalize(); err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("topology: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := touch(ctx, tx, topologyID); err != nil {
		return "", err
	}
	if err := insertNode(ctx, tx, topologyID, node); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("topology: commit: %w", err)
	}
	return node.ID, nil
}

// GetNode returns nil, nil if not found.
func (s *Store) GetNode(ctx context.Context, topologyID, nodeID string) (*topology.GraphNode, error) {
	n, err := scanNode(s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM topo_nodes WHERE topology_id = ? AND id = ?`, topologyID, nodeID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("topology: get node: %w", err)
	}
	return &n, nil
}

func (s *Store) UpdateNode(ctx context.Context, topologyID string, node *topology.GraphNode) error {
	if err := node.Normalize(); err != nil {
		return err
	}
	caps, err := encodeList(node.Capabilities)
	if err != nil {
		return fmt.Errorf("topology: encode capabilities: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE topo_nodes SET node_type = ?, reference_id = ?, capabilities = ?, weight = ?, status = ?
		 WHERE topology_id = ? AND id = ?`,
		node.NodeType, node.ReferenceID, caps, node.Weight, string(node.Status), topologyID, node.ID,
	)
	if err != nil {
		return fmt.Errorf("topology: update node: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &topology.NodeNotFoundError{ID: node.ID}
	}
	return touch(ctx, s.db, topologyID)
}

// DeleteNode removes a node; its edges cascade. Missing nodes are not an error.
func (s *Store) DeleteNode(ctx context.Context, topologyID, nodeID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM topo_nodes WHERE topology_id = ? AND id = ?`, topologyID, nodeID)
	if err != nil {
		return fmt.Errorf("topology: delete node: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return touch(ctx, s.db, topologyID)
	}
	return nil
}

// ListNodes returns nodes in insertion order.
func (s *Store) ListNodes(ctx context.Context, topologyID string) ([]topology.GraphNode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM topo_nodes WHERE topology_id = ? ORDER BY rowid`, topologyID)
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
