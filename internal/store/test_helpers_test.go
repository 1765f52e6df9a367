package store

import (
	"context"
	"path/filepath"
	"testing"
)

const testSchema = `
CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE articles (
	id INTEGER PRIMARY KEY,
	author_id INTEGER REFERENCES authors(id),
	title TEXT NOT NULL,
	rating REAL
);
INSERT INTO authors (id, name) VALUES (1, 'ada'), (2, 'grace');
INSERT INTO articles (id, author_id, title, rating) VALUES
	(1, 1, 'first', 4.5),
	(2, 2, 'second', NULL),
	(3, NULL, 'orphan', 1);
`

// createTestStore creates a seeded store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Exec(context.Background(), testSchema); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return s
}
