// Package sqlite implements topology.Store on an embedded SQLite file, used
// for local workspaces and tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/meikuraledutech/topology"
)

var _ topology.Store = (*Store)(nil)

// Store implements topology.Store using database/sql and modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

// New wraps an already opened database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) the database file at path with foreign
// keys on.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("topology: create workspace: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("topology: open sqlite: %w", err)
	}
	// One writer at a time; SQLite serialises anyway.
	db.SetMaxOpenConns(1)
	return New(db), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS topologies (
    id            TEXT PRIMARY KEY,
    last_modified TEXT NOT NULL,
    created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE TABLE IF NOT EXISTS topo_nodes (
    topology_id  TEXT NOT NULL REFERENCES topologies(id) ON DELETE CASCADE,
    id           TEXT NOT NULL,
    node_type    TEXT NOT NULL,
    reference_id TEXT NOT NULL DEFAULT '',
    capabilities TEXT NOT NULL DEFAULT '[]',
    weight       REAL NOT NULL DEFAULT 1 CHECK (weight >= 0),
    status       TEXT NOT NULL DEFAULT 'active',
    PRIMARY KEY (topology_id, id)
);

CREATE TABLE IF NOT EXISTS topo_edges (
    topology_id  TEXT NOT NULL,
    id           TEXT NOT NULL,
    from_node_id TEXT NOT NULL,
    to_node_id   TEXT NOT NULL,
    edge_type    TEXT NOT NULL,
    weight       REAL NOT NULL DEFAULT 1 CHECK (weight >= 0),
    status       TEXT NOT NULL DEFAULT 'active',
    PRIMARY KEY (topology_id, id),
    FOREIGN KEY (topology_id, from_node_id) REFERENCES topo_nodes(topology_id, id) ON DELETE CASCADE,
    FOREIGN KEY (topology_id, to_node_id)   REFERENCES topo_nodes(topology_id, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS topo_clusters (
    topology_id TEXT NOT NULL REFERENCES topologies(id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    members     TEXT NOT NULL DEFAULT '[]',
    leader      TEXT NOT NULL DEFAULT '',
    purpose     TEXT NOT NULL DEFAULT '',
    is_active   INTEGER NOT NULL DEFAULT 1,
    position    INTEGER NOT NULL,
    PRIMARY KEY (topology_id, id)
);

CREATE INDEX IF NOT EXISTS idx_topo_edges_from ON topo_edges(topology_id, from_node_id);
CREATE INDEX IF NOT EXISTS idx_topo_edges_to   ON topo_edges(topology_id, to_node_id);
`

// CreateSchema creates the topology tables if they don't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropSchema drops every topology table.
func (s *Store) DropSchema(ctx context.Context) error {
	for _, table := range []string{"topo_clusters", "topo_edges", "topo_nodes", "topologies"} {
		if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
			return err
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

func decodeList(raw string) ([]string, error) {
	list := []string{}
	if raw == "" {
		return list, nil
	}
	err := json.Unmarshal([]byte(raw), &list)
	return list, err
}
