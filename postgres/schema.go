package postgres

import "context"

// seq columns keep rows in insertion order; created_at is identical for
// every row written in one transaction.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS topologies (
    id            TEXT PRIMARY KEY,
    last_modified TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS topo_nodes (
    topology_id  TEXT NOT NULL REFERENCES topologies(id) ON DELETE CASCADE,
    id           TEXT NOT NULL,
    node_type    TEXT NOT NULL,
    reference_id TEXT NOT NULL DEFAULT '',
    capabilities TEXT[] NOT NULL DEFAULT '{}',
    weight       DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (weight >= 0),
    status       TEXT NOT NULL DEFAULT 'active',
    seq          BIGSERIAL,
    PRIMARY KEY (topology_id, id)
);

CREATE TABLE IF NOT EXISTS topo_edges (
    topology_id  TEXT NOT NULL,
    id           TEXT NOT NULL,
    from_node_id TEXT NOT NULL,
    to_node_id   TEXT NOT NULL,
    edge_type    TEXT NOT NULL,
    weight       DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (weight >= 0),
    status       TEXT NOT NULL DEFAULT 'active',
    seq          BIGSERIAL,
    PRIMARY KEY (topology_id, id),
    FOREIGN KEY (topology_id, from_node_id) REFERENCES topo_nodes(topology_id, id) ON DELETE CASCADE,
    FOREIGN KEY (topology_id, to_node_id)   REFERENCES topo_nodes(topology_id, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS topo_clusters (
    topology_id TEXT NOT NULL REFERENCES topologies(id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    members     TEXT[] NOT NULL DEFAULT '{}',
    leader      TEXT NOT NULL DEFAULT '',
    purpose     TEXT NOT NULL DEFAULT '',
    is_active   BOOLEAN NOT NULL DEFAULT TRUE,
    position    INTEGER NOT NULL,
    PRIMARY KEY (topology_id, id)
);

CREATE INDEX IF NOT EXISTS idx_topo_edges_from ON topo_edges(topology_id, from_node_id);
CREATE INDEX IF NOT EXISTS idx_topo_edges_to   ON topo_edges(topology_id, to_node_id);
`

// CreateSchema creates the topology tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops every topology table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS topo_clusters, topo_edges, topo_nodes, topologies CASCADE;`)
	return err
}
