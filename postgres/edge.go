package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/topology"
)

const edgeColumns = `id, from_node_id, to_node_id, edge_type, weight, status`

func insertEdge(ctx context.Context, db execer, topologyID string, e *topology.GraphEdge) error {
	if _, err := db.Exec(ctx,
		`INSERT INTO topo_edges (topology_id, id, from_node_id, to_node_id, edge_type, weight, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		topologyID, e.ID, e.FromNodeID, e.ToNodeID, e.EdgeType, e.Weight, string(e.Status),
	); err != nil {
		return fmt.Errorf("topology: insert edge %s: %w", e.ID, err)
	}
	return nil
}

func scanEdge(row pgx.Row) (topology.GraphEdge, error) {
	var (
		e      topology.GraphEdge
		status string
	)
	err := row.Scan(&e.ID, &e.FromNodeID, &e.ToNodeID, &e.EdgeType, &e.Weight, &status)
	e.Status = topology.EdgeStatus(status)
	return e, err
}

// AddEdge inserts a single edge into a topology.
// If edge.ID is empty, a UUID is auto-generated.
// Both endpoints must already be stored; the FK rejects dangling edges.
// Returns the edge ID (generated or provided).
func (s *PGStore) AddEdge(ctx context.Context, topologyID string, edge *topology.GraphEdge) (string, error) {
	if err := edge.Normalize(); err != nil {
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
	if err := insertEdge(ctx, tx, topologyID, edge); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("topology: commit: %w", err)
	}
	return edge.ID, nil
}

// GetEdge fetches a single edge by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetEdge(ctx context.Context, topologyID, edgeID string) (*topology.GraphEdge, error) {
	e, err := scanEdge(s.db.QueryRow(ctx,
		`SELECT `+edgeColumns+` FROM topo_edges WHERE topology_id = $1 AND id = $2`,
		topologyID, edgeID,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("topology: get edge: %w", err)
	}
	return &e, nil
}

// UpdateEdge updates an existing edge's endpoints, type, weight and status.
// Returns ErrEdgeNotFound if the edge doesn't exist.
func (s *PGStore) UpdateEdge(ctx context.Context, topologyID string, edge *topology.GraphEdge) error {
	if err := edge.Normalize(); err != nil {
		return err
	}
	ct, err := s.db.Exec(ctx,
		`UPDATE topo_edges SET from_node_id = $1, to_node_id = $2, edge_type = $3, weight = $4, status = $5
		 WHERE topology_id = $6 AND id = $7`,
		edge.FromNodeID, edge.ToNodeID, edge.EdgeType, edge.Weight, string(edge.Status),
		topologyID, edge.ID,
	)
	if err != nil {
		return fmt.Errorf("topology: update edge: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return topology.ErrEdgeNotFound
	}
	return touch(ctx, s.db, topologyID)
}

// DeleteEdge deletes an edge by its ID.
// No error if the edge doesn't exist.
func (s *PGStore) DeleteEdge(ctx context.Context, topologyID, edgeID string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM topo_edges WHERE topology_id = $1 AND id = $2`, topologyID, edgeID)
	if err != nil {
		return fmt.Errorf("topology: delete edge: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return touch(ctx, s.db, topologyID)
	}
	return nil
}

// ListEdges returns all edges for a topology in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListEdges(ctx context.Context, topologyID string) ([]topology.GraphEdge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+edgeColumns+` FROM topo_edges WHERE topology_id = $1 ORDER BY seq`, topologyID)
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
