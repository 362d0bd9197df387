package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists cache entries across sessions in a local SQLite file.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the cache database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS unmatched_cache (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			normalized_name TEXT NOT NULL,
			original_name TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			normalized_address TEXT,
			place_id TEXT,
			source TEXT NOT NULL,
			first_seen_at TEXT NOT NULL,
			last_seen_at TEXT NOT NULL,
			seen_count INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads all persisted entries.
func (s *Store) Load() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT normalized_name, original_name, latitude, longitude,
		       normalized_address, place_id, source,
		       first_seen_at, last_seen_at, seen_count
		FROM unmatched_cache
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var addr, placeID sql.NullString
		var first, last string
		if err := rows.Scan(&e.NormalizedName, &e.OriginalName, &e.Latitude, &e.Longitude,
			&addr, &placeID, &e.Source, &first, &last, &e.SeenCount); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		e.NormalizedAddress = addr.String
		e.PlaceID = placeID.String
		e.FirstSeenAt, _ = time.Parse(time.RFC3339, first)
		e.LastSeenAt, _ = time.Parse(time.RFC3339, last)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Replace rewrites the persisted set from the in-memory snapshot. The cache
// is small telemetry; a full rewrite inside one transaction keeps the
// append-or-increment rule authoritative in memory.
func (s *Store) Replace(entries []Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cache tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM unmatched_cache`); err != nil {
		return fmt.Errorf("failed to clear cache table: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO unmatched_cache (
			normalized_name, original_name, latitude, longitude,
			normalized_address, place_id, source,
			first_seen_at, last_seen_at, seen_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cache insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.Exec(
			e.NormalizedName, e.OriginalName, e.Latitude, e.Longitude,
			e.NormalizedAddress, e.PlaceID, e.Source,
			e.FirstSeenAt.Format(time.RFC3339), e.LastSeenAt.Format(time.RFC3339),
			e.SeenCount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cache entry: %w", err)
		}
	}

	return tx.Commit()
}
