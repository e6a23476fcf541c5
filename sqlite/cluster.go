package sqlite

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/topology"
)

func insertClusters(ctx context.Context, db execer, topologyID string, clusters []topology.ClusterInfo) error {
	for i, c := range clusters {
		members, err := encodeList(c.Members)
		if err != nil {
			return fmt.Errorf("topology: encode members: %w", err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO topo_clusters (topology_id, id, name, members, leader, purpose, is_active, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			topologyID, c.ID, c.Name, members, c.Leader, c.Purpose, c.IsActive, i,
		); err != nil {
			return fmt.Errorf("topology: insert cluster %s: %w", c.ID, err)
		}
	}
	return nil
}

// SaveClusters replaces the cluster list of a topology.
func (s *Store) SaveClusters(ctx context.Context, topologyID string, clusters []topology.ClusterInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("topology: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := touch(ctx, tx, topologyID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM topo_clusters WHERE topology_id = ?`, topologyID); err != nil {
		return fmt.Errorf("topology: delete clusters: %w", err)
	}
	if err := insertClusters(ctx, tx, topologyID, clusters); err != nil {
		return err
	}
	return tx.Commit()
}

// ListClusters returns clusters in their saved order.
func (s *Store) ListClusters(ctx context.Context, topologyID string) ([]topology.ClusterInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, members, leader, purpose, is_active
		 FROM topo_clusters WHERE topology_id = ? ORDER BY position`, topologyID)
	if err != nil {
		return nil, fmt.Errorf("topology: list clusters: %w", err)
	}
	defer rows.Close()

	clusters := []topology.ClusterInfo{}
	for rows.Next() {
		var (
			c       topology.ClusterInfo
			members string
		)
		if err := rows.Scan(&c.ID, &c.Name, &members, &c.Leader, &c.Purpose, &c.IsActive); err != nil {
			return nil, fmt.Errorf("topology: scan cluster: %w", err)
		}
		if c.Members, err = decodeList(members); err != nil {
			return nil, fmt.Errorf("topology: decode members: %w", err)
		}
		clusters = append(clusters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("topology: rows clusters: %w", err)
	}
	return clusters, nil
}
