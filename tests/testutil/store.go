// Package testutil holds shared helpers for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nvkha/mailplane/internal/store"
)

// NewTestStore opens a SQLite history store backed by a file in a
// per-test temp directory, so migrations run against a fresh schema.
// The store is closed when the test finishes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "triage.db")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}
