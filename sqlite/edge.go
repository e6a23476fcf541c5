package sqlite

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/topology"
)

const edgeColumns = `id, from_node_id, to_node_id, edge_type, weight, status`

func insertEdge(ctx context.Context, db execer, topologyID string, e *topology.GraphEdge) error {
	if _, err := db.ExecContext(ctx,
		`INSERT INTO topo_edges (topology_id, id, from_node_id, to_node_id, edge_type, weight, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		topologyID, e.ID, e.FromNodeID, e.ToNodeID, e.EdgeType, e.Weight, string(e.Status),
	); err != nil {
		return fmt.Errorf("topology: insert edge %s: %w", e.ID, err)
	}
	return nil
}

func scanEdge(row scanner) (topology.GraphEdge, error) {
	var (
		e      topology.GraphEdge
		status string
	)
	err := row.Scan(&e.ID, &e.FromNodeID, &e.ToNodeID, &e.EdgeType, &e.Weight, &status)
	e.Status = topology.EdgeStatus(status)
	return e, err
}

// AddEdge inserts an edge between two stored nodes.
func (s *Store) AddEdge(ctx context.Context, topologyID string, edge *topology.GraphEdge) (string, error) {
	if err := edge.Normalize(); err != nil {
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
	if err := insertEdge(ctx, tx, topologyID, edge); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("topology: commit: %w", err)
	}
	return edge.ID, nil
}

// GetEdge returns nil, nil if not found.
func (s *Store) GetEdge(ctx context.Context, topologyID, edgeID string) (*topology.GraphEdge, error) {
	e, err := scanEdge(s.db.QueryRowContext(ctx,
		`SELECT `+edgeColumns+` FROM topo_edges WHERE topology_id = ? AND id = ?`, topologyID, edgeID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("topology: get edge: %w", err)
	}
	return &e, nil
}

func (s *Store) UpdateEdge(ctx context.Context, topologyID string, edge *topology.GraphEdge) error {
	if err := edge.Normalize(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE topo_edges SET from_node_id = ?, to_node_id = ?, edge_type = ?, weight = ?, status = ?
		 WHERE topology_id = ? AND id = ?`,
		edge.FromNodeID, edge.ToNodeID, edge.EdgeType, edge.Weight, string(edge.Status), topologyID, edge.ID,
	)
	if err != nil {
		return fmt.Errorf("topology: update edge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return topology.ErrEdgeNotFound
	}
	return touch(ctx, s.db, topologyID)
}

func (s *Store) DeleteEdge(ctx context.Context, topologyID, edgeID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM topo_edges WHERE topology_id = ? AND id = ?`, topologyID, edgeID)
	if err != nil {
		return fmt.Errorf("topology: delete edge: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return touch(ctx, s.db, topologyID)
	}
	return nil
}

// ListEdges returns edges in insertion order.
func (s *Store) ListEdges(ctx context.Context, topologyID string) ([]topology.GraphEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+edgeColumns+` FROM topo_edges WHERE topology_id = ? ORDER BY rowid`, topologyID)
	if err != nil {
		return nil, fmt.Errorf("topology: list edges: %w", err)
	}
	defer rows.Close()

	edges := []topology.GraphEdge{}
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("topology: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("topology: rows edges: %w", err)
	}
	return edges, nil
}
