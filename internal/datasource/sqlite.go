// Package datasource persists the graph dataset cache in a local SQLite
// database so a process restart can skip the bulk fetch while the entry is
// still fresh.
package datasource

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/marketgraph/cascadeviz/pkg/cache"
	"github.com/marketgraph/cascadeviz/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS graph_cache (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	entities   TEXT NOT NULL,
	links      TEXT NOT NULL,
	fetched_at INTEGER NOT NULL
);`

// SQLiteStore implements cache.Store over a single-row SQLite table.
// The single-row constraint mirrors the cache contract: one dataset,
// whole-entry replacement.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (creating if needed) the cache database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load reads the persisted entry, or nil if none is stored.
func (s *SQLiteStore) Load() (*cache.Entry, error) {
	row := s.db.QueryRow(`SELECT entities, links, fetched_at FROM graph_cache WHERE id = 1`)

	var entitiesJSON, linksJSON string
	var fetchedUnix int64
	if err := row.Scan(&entitiesJSON, &linksJSON, &fetchedUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache row: %w", err)
	}

	var entities []model.Entity
	if err := json.Unmarshal([]byte(entitiesJSON), &entities); err != nil {
		return nil, fmt.Errorf("decoding cached entities: %w", err)
	}
	var links []model.Link
	if err := json.Unmarshal([]byte(linksJSON), &links); err != nil {
		return nil, fmt.Errorf("decoding cached links: %w", err)
	}

	return &cache.Entry{
		Entities:  entities,
		Links:     links,
		FetchedAt: time.Unix(fetchedUnix, 0),
	}, nil
}

// Save replaces the persisted entry.
func (s *SQLiteStore) Save(entry cache.Entry) error {
	entitiesJSON, err := json.Marshal(entry.Entities)
	if err != nil {
		return fmt.Errorf("encoding entities: %w", err)
	}
	linksJSON, err := json.Marshal(entry.Links)
	if err != nil {
		return fmt.Errorf("encoding links: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO graph_cache (id, entities, links, fetched_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET entities = excluded.entities,
		                               links = excluded.links,
		                               fetched_at = excluded.fetched_at`,
		string(entitiesJSON), string(linksJSON), entry.FetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing cache row: %w", err)
	}
	return nil
}

// Clear removes the persisted entry.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM graph_cache WHERE id = 1`); err != nil {
		return fmt.Errorf("clearing cache row: %w", err)
	}
	return nil
}
