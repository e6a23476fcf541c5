package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meikuraledutech/topology"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// touch bumps last_modified and reports ErrTopologyNotFound for unknown ids.
func touch(ctx context.Context, db execer, topologyID string) error {
	ct, err := db.Exec(ctx, `UPDATE topologies SET last_modified = NOW() WHERE id = $1`, topologyID)
	if err != nil {
		return fmt.Errorf("topology: touch: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return topology.ErrTopologyNotFound
	}
	return nil
}

// SaveTopology writes a full topology (nodes, edges, clusters) in one
// transaction, replacing whatever was stored under the same id.
func (s *PGStore) SaveTopology(ctx context.Context, t *topology.ProjectTopology) error {
	if err := t.Validate(); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("topology: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO topologies (id, last_modified) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET last_modified = EXCLUDED.last_modified`,
		t.ID, t.LastModified,
	); err != nil {
		return fmt.Errorf("topology: upsert topology: %w", err)
	}

	// Replace semantics. Edges go with their nodes through the FK cascade.
	if _, err := tx.Exec(ctx, `DELETE FROM topo_nodes WHERE topology_id = $1`, t.ID); err != nil {
		return fmt.Errorf("topology: delete nodes: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM topo_clusters WHERE topology_id = $1`, t.ID); err != nil {
		return fmt.Errorf("topology: delete clusters: %w", err)
	}

	for _, n := range t.Graph.Nodes() {
		if err := insertNode(ctx, tx, t.ID, n); err != nil {
			return err
		}
	}
	for _, e := range t.Graph.Edges() {
		if err := insertEdge(ctx, tx, t.ID, e); err != nil {
			return err
		}
	}
	if err := insertClusters(ctx, tx, t.ID, t.Clusters); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("topology: commit: %w", err)
	}
	return nil
}

// LoadTopology retrieves a full topology by its ID.
// Returns nil, nil if the topology doesn't exist.
func (s *PGStore) LoadTopology(ctx context.Context, topologyID string) (*topology.ProjectTopology, error) {
	var modified time.Time
	err := s.db.QueryRow(ctx,
		`SELECT last_modified FROM topologies WHERE id = $1`, topologyID,
	).Scan(&modified)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("topology: get topology: %w", err)
	}

	nodes, err := s.ListNodes(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	edges, err := s.ListEdges(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	clusters, err := s.ListClusters(ctx, topologyID)
	if err != nil {
		return nil, err
	}

	g, err := topology.Build(nodes, edges)
	if err != nil {
		return nil, fmt.Errorf("topology: rebuild %s: %w", topologyID, err)
	}
	return &topology.ProjectTopology{
		ID:           topologyID,
		Graph:        g,
		Clusters:     clusters,
		LastModified: modified.UTC(),
	}, nil
}

// DeleteTopology removes a topology and everything in it.
// No error if the topologyID doesn't exist.
func (s *PGStore) DeleteTopology(ctx context.Context, topologyID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM topologies WHERE id = $1`, topologyID); err != nil {
		return fmt.Errorf("topology: delete topology: %w", err)
	}
	return nil
}

// ListTopologies returns every topology id, oldest first.
func (s *PGStore) ListTopologies(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM topologies ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("topology: list topologies: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("topology: scan topology: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("topology: rows topologies: %w", err)
	}
	return ids, nil
}
