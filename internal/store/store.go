// Package store provides read and write access to a snapshot store: a
// SQLite database with three tables (snapshots, processes, app_groups)
// written by the monitoring side and consumed by the training pipeline.
// The column set of each table is a fixed contract; readers tolerate
// missing optional columns, which is why tables are read dynamically
// rather than scanned into structs.
package store

import (
	"database/sql"
	"fmt"

	"taskrank/internal/frame"

	_ "modernc.org/sqlite"
)

// Table names of the snapshot store contract.
const (
	TableSnapshots = "snapshots"
	TableProcesses = "processes"
	TableAppGroups = "app_groups"
)

// Store wraps one SQLite connection to a snapshot database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens an existing snapshot store for reading. The caller is expected
// to have verified that the path exists; SQLite would otherwise silently
// create an empty database here.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Create opens (or creates) a snapshot store at path and ensures the three
// snapshot tables exist.
func Create(path string) (*Store, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the filesystem path the store was opened with.
func (s *Store) Path() string { return s.path }

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// ReadTable loads an entire table into a frame preserving the declared
// column order. BLOB/TEXT cells arrive as string, integers as int64, reals
// as float64, NULLs as nil.
func (s *Store) ReadTable(name string) (*frame.Table, error) {
	switch name {
	case TableSnapshots, TableProcesses, TableAppGroups:
	default:
		return nil, fmt.Errorf("unknown snapshot table %q", name)
	}

	rows, err := s.db.Query("SELECT * FROM " + name)
	if err != nil {
		return nil, fmt.Errorf("read table %q: %w", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %q: %w", name, err)
	}
	t, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}

	ptrs := make([]any, len(cols))
	for rows.Next() {
		cells := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %q: %w", name, err)
		}
		for i, v := range cells {
			if b, ok := v.([]byte); ok {
				cells[i] = string(b)
			}
		}
		if err := t.Append(cells); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %q: %w", name, err)
	}
	return t, nil
}

// Stats summarizes a store for pre-training size validation.
type Stats struct {
	Snapshots      int
	Processes      int
	AppGroups      int
	UniquePIDs     int
	UniqueGroups   int
	FirstTimestamp string
	LastTimestamp  string
}

// ReadStats counts rows and distinct entities across the three tables.
func (s *Store) ReadStats() (*Stats, error) {
	st := &Stats{}
	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM snapshots", &st.Snapshots},
		{"SELECT COUNT(*) FROM processes", &st.Processes},
		{"SELECT COUNT(*) FROM app_groups", &st.AppGroups},
		{"SELECT COUNT(DISTINCT pid) FROM processes", &st.UniquePIDs},
		{"SELECT COUNT(DISTINCT app_group_id) FROM app_groups", &st.UniqueGroups},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("store stats: %w", err)
		}
	}

	var first, last sql.NullString
	err := s.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM snapshots").Scan(&first, &last)
	if err != nil {
		return nil, fmt.Errorf("store stats: %w", err)
	}
	if first.Valid {
		st.FirstTimestamp = first.String
	}
	if last.Valid {
		st.LastTimestamp = last.String
	}
	return st, nil
}
