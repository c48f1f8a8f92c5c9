// Package sqlite exports enriched records into a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	// Registers the "sqlite3" driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/JakeFAU/munro-enricher/internal/route"
)

const defaultTable = "munros"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RecordStore upserts records keyed by URL.
type RecordStore struct {
	db    *sql.DB
	table string
}

// Open opens (creating if needed) the database at path and ensures the
// export table exists.
func Open(ctx context.Context, path, table string) (*RecordStore, error) {
	if path == "" {
		return nil, fmt.Errorf("export.sqlite_path is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	s := &RecordStore{db: db, table: table}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *RecordStore) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	terrain TEXT NOT NULL DEFAULT '',
	public_transport TEXT NOT NULL DEFAULT '',
	start TEXT NOT NULL DEFAULT '',
	distance REAL,
	time REAL,
	grade INTEGER NOT NULL DEFAULT 0,
	bog INTEGER NOT NULL DEFAULT 0,
	gpx_file TEXT NOT NULL DEFAULT ''
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// SaveRecords upserts all records in one transaction.
func (s *RecordStore) SaveRecords(ctx context.Context, records []route.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
INSERT INTO %s (
	url, name, summary, description, terrain, public_transport,
	start, distance, time, grade, bog, gpx_file
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
	name = excluded.name,
	summary = excluded.summary,
	description = excluded.description,
	terrain = excluded.terrain,
	public_transport = excluded.public_transport,
	start = excluded.start,
	distance = excluded.distance,
	time = excluded.time,
	grade = excluded.grade,
	bog = excluded.bog,
	gpx_file = excluded.gpx_file`, s.table))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		if _, err = stmt.ExecContext(ctx,
			rec.URL,
			rec.Name,
			rec.Summary,
			rec.Description,
			rec.Terrain,
			rec.PublicTransport,
			rec.Start,
			rec.DistanceKm.Ptr(),
			rec.DurationHours.Ptr(),
			rec.Grade,
			rec.BogFactor,
			rec.AttachmentPath,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", rec.URL, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Count returns the number of exported rows.
func (s *RecordStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return n, nil
}

// Close closes the database.
func (s *RecordStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
