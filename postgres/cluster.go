package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/topology"
)

func insertClusters(ctx context.Context, db execer, topologyID string, clusters []topology.ClusterInfo) error {
	for i, c := range clusters {
		if _, err := db.Exec(ctx,
			`INSERT INTO topo_clusters (topology_id, id, name, members, leader, purpose, is_active, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			topologyID, c.ID, c.Name, nonNil(c.Members), c.Leader, c.Purpose, c.IsActive, i,
		); err != nil {
			return fmt.Errorf("topology: insert cluster %s: %w", c.ID, err)
		}
	}
	return nil
}

// SaveClusters replaces the cluster list of a topology.
func (s *PGStore) SaveClusters(ctx context.Context, topologyID string, clusters []topology.ClusterInfo) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("topology: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := touch(ctx, tx, topologyID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM topo_clusters WHERE topology_id = $1`, topologyID); err != nil {
		return fmt.Errorf("topology: delete clusters: %w", err)
	}
	if err := insertClusters(ctx, tx, topologyID, clusters); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListClusters returns the clusters of a topology in their saved order.
func (s *PGStore) ListClusters(ctx context.Context, topologyID string) ([]topology.ClusterInfo, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, members, leader, purpose, is_active
		 FROM topo_clusters WHERE topology_id = $1 ORDER BY position`, topologyID)
	if err != nil {
		return nil, fmt.Errorf("topology: list clusters: %w", err)
	}
	defer rows.Close()

	clusters := []topology.ClusterInfo{}
	for rows.Next() {
		var c topology.ClusterInfo
		if err := rows.Scan(&c.ID, &c.Name, &c.Members, &c.Leader, &c.Purpose, &c.IsActive); err != nil {
			return nil, fmt.Errorf("topology: scan cluster: %w", err)
		}
		clusters = append(clusters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("topology: rows clusters: %w", err)
	}
	return clusters, nil
}
