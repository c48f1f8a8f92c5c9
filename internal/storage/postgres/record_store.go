// Package postgres exports enriched records into Postgres.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/munro-enricher/internal/route"
)

const defaultTable = "munros"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RecordStoreConfig controls the Postgres connection pool used for exports.
type RecordStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RecordStore upserts records keyed by URL.
type RecordStore struct {
	pool  execCloser
	table string
}

// NewRecordStore connects a pool using cfg.
func NewRecordStore(ctx context.Context, cfg RecordStoreConfig) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("export.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewRecordStoreWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool.
func NewRecordStoreWithPool(pool execCloser, table string) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RecordStore{pool: pool, table: table}, nil
}

// EnsureSchema creates the export table when missing.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	url TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	terrain TEXT NOT NULL DEFAULT '',
	public_transport TEXT NOT NULL DEFAULT '',
	start TEXT NOT NULL DEFAULT '',
	distance DOUBLE PRECISION,
	time DOUBLE PRECISION,
	grade INTEGER NOT NULL DEFAULT 0,
	bog INTEGER NOT NULL DEFAULT 0,
	gpx_file TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// SaveRecords upserts each record. Measures that are absent or unparsed are
// stored as NULL.
func (s *RecordStore) SaveRecords(ctx context.Context, records []route.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	url, name, summary, description, terrain, public_transport,
	start, distance, time, grade, bog, gpx_file
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
ON CONFLICT (url) DO UPDATE SET
	name = EXCLUDED.name,
	summary = EXCLUDED.summary,
	description = EXCLUDED.description,
	terrain = EXCLUDED.terrain,
	public_transport = EXCLUDED.public_transport,
	start = EXCLUDED.start,
	distance = EXCLUDED.distance,
	time = EXCLUDED.time,
	grade = EXCLUDED.grade,
	bog = EXCLUDED.bog,
	gpx_file = EXCLUDED.gpx_file,
	updated_at = now()`, s.table)

	for _, rec := range records {
		if _, err := s.pool.Exec(ctx, query, recordArgs(rec)...); err != nil {
			return fmt.Errorf("upsert %s: %w", rec.URL, err)
		}
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func recordArgs(rec route.Record) []any {
	return []any{
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
	}
}
