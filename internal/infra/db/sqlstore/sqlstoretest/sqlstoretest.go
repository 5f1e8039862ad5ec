// Package sqlstoretest opens throwaway SQLite stores for tests.
package sqlstoretest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bryanwahyu/copyguard/internal/infra/db/sqlite"
	"github.com/bryanwahyu/copyguard/internal/infra/db/sqlstore"
)

// Open returns a migrated store backed by a file in t.TempDir().
func Open(t testing.TB) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()

	conn, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	s := sqlstore.New(conn, sqlstore.SQLite)
	if err := s.Migrate(ctx); err != nil {
		conn.Close()
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
