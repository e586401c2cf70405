package sqlite3

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/knos/ks"
	"github.com/knos/ks/testutil"
)

func newTestStore(ctx context.Context, t *testing.T) *Store {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "ks.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSqlite3Blocks(t *testing.T) {
	ctx := context.Background()
	testutil.Blocks(ctx, t, func() ks.Store { return newTestStore(ctx, t) })
}

func TestSqlite3Bindings(t *testing.T) {
	ctx := context.Background()
	testutil.Bindings(ctx, t, newTestStore(ctx, t))
}

func TestSqlite3ReadWrite(t *testing.T) {
	ctx := context.Background()
	testutil.ReadWrite(ctx, t, newTestStore(ctx, t))
}
