// Package jsonfile reads the entity list and keeps the enriched output as
// pretty-printed JSON arrays on disk.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/JakeFAU/munro-enricher/internal/route"
)

// LoadEntities reads a JSON array of {"name", "url"} objects.
func LoadEntities(path string) ([]route.Entity, error) {
	var entities []route.Entity
	if err := readJSON(path, &entities); err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	return entities, nil
}

// WriteEntities atomically replaces path with entities.
func WriteEntities(path string, entities []route.Entity) error {
	if entities == nil {
		entities = []route.Entity{}
	}
	if err := writeJSON(path, entities); err != nil {
		return fmt.Errorf("write entities: %w", err)
	}
	return nil
}

// Store is the output dataset file.
type Store struct {
	path string
}

// NewStore returns a Store for path. The file need not exist yet.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	return &Store{path: path}, nil
}

// Path returns the output file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the previously saved records. A missing file is an empty dataset.
func (s *Store) Load(_ context.Context) ([]route.Record, error) {
	var records []route.Record
	err := readJSON(s.path, &records)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load output: %w", err)
	}
	return records, nil
}

// Save rewrites the whole dataset. A crash mid-write leaves the previous
// file intact.
func (s *Store) Save(_ context.Context, records []route.Record) error {
	if records == nil {
		records = []route.Record{}
	}
	if err := writeJSON(s.path, records); err != nil {
		return fmt.Errorf("save output: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
