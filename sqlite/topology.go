package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/meikuraledutech/topology"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// touch bumps last_modified and reports ErrTopologyNotFound for unknown ids.
func touch(ctx context.Context, db execer, topologyID string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE topologies SET last_modified = ? WHERE id = ?`, formatTime(time.Now()), topologyID)
	if err != nil {
		return fmt.Errorf("topology: touch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("topology: touch: %w", err)
	}
	if n == 0 {
		return topology.ErrTopologyNotFound
	}
	return nil
}

// SaveTopology writes a full topology in one transaction, replacing whatever
// was stored under the same id.
func (s *Store) SaveTopology(ctx context.Context, t *topology.ProjectTopology) error {
	if err := t.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("topology: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO topologies (id, last_modified) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET last_modified = excluded.last_modified`,
		t.ID, formatTime(t.LastModified),
	); err != nil {
		return fmt.Errorf("topology: upsert topology: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM topo_nodes WHERE topology_id = ?`, t.ID); err != nil {
		return fmt.Errorf("topology: delete nodes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM topo_clusters WHERE topology_id = ?`, t.ID); err != nil {
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

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("topology: commit: %w", err)
	}
	return nil
}

// LoadTopology returns nil, nil if the topology doesn't exist.
func (s *Store) LoadTopology(ctx context.Context, topologyID string) (*topology.ProjectTopology, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_modified FROM topologies WHERE id = ?`, topologyID,
	).Scan(&raw)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("topology: get topology: %w", err)
	}
	modified, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("topology: parse last_modified: %w", err)
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
		LastModified: modified,
	}, nil
}

// DeleteTopology removes a topology and everything in it.
func (s *Store) DeleteTopology(ctx context.Context, topologyID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM topologies WHERE id = ?`, topologyID); err != nil {
		return fmt.Errorf("topology: delete topology: %w", err)
	}
	return nil
}

// ListTopologies returns every topology id, oldest first.
func (s *Store) ListTopologies(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM topologies ORDER BY created_at, rowid`)
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
	return ids, rows.Err()
}
