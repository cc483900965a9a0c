// Package sqlite provides a Supplier that reads entities from a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/bft-labs/snapship/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  age INTEGER NOT NULL,
  group_num INTEGER NOT NULL
);`

// SampleEntities are the rows written by Seed when no others are given.
var SampleEntities = []domain.Entity{
	{ID: "1", Name: "John Doe", Age: 20, Group: 2},
	{ID: "2", Name: "Jane Smith", Age: 23, Group: 3},
	{ID: "3", Name: "Mike Johnson", Age: 18, Group: 2},
	{ID: "4", Name: "Cristiano Messi", Age: 25, Group: 2},
}

// Supplier reads the students table on every call.
type Supplier struct {
	db   *sql.DB
	path string
}

// Open opens the database at path and makes sure the students table exists.
func Open(ctx context.Context, path string) (*Supplier, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: database path is required", domain.ErrConfig)
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %v", domain.ErrStorage, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite db %s: %v", domain.ErrStorage, cleanPath, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create students table: %v", domain.ErrStorage, err)
	}
	return &Supplier{db: db, path: cleanPath}, nil
}

// Path returns the database file path.
func (s *Supplier) Path() string {
	return s.path
}

// Close closes the database handle.
func (s *Supplier) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Entities returns every student ordered by id.
func (s *Supplier) Entities(ctx context.Context) ([]domain.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, age, group_num FROM students ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query students: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	entities := []domain.Entity{}
	for rows.Next() {
		var e domain.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Age, &e.Group); err != nil {
			return nil, fmt.Errorf("%w: scan student: %v", domain.ErrStorage, err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read students: %v", domain.ErrStorage, err)
	}
	return entities, nil
}

// Seed upserts entities into the students table in one transaction and
// returns the number of rows written.
func (s *Supplier) Seed(ctx context.Context, entities []domain.Entity) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin seed: %v", domain.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO students (id, name, age, group_num) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  name = excluded.name,
		  age = excluded.age,
		  group_num = excluded.group_num`)
	if err != nil {
		return 0, fmt.Errorf("%w: prepare seed: %v", domain.ErrStorage, err)
	}
	defer stmt.Close()

	for _, e := range entities {
		if strings.TrimSpace(e.ID) == "" {
			return 0, fmt.Errorf("%w: student id is required", domain.ErrConfig)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.Name, e.Age, e.Group); err != nil {
			return 0, fmt.Errorf("%w: insert student %s: %v", domain.ErrStorage, e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit seed: %v", domain.ErrStorage, err)
	}
	return len(entities), nil
}
