// Package sqlite3 implements a backend in a SQLite database.
package sqlite3

import (
	"bytes"
	"context"
	"database/sql"
	stderrs "errors"

	"github.com/bobg/sqlutil"
	"github.com/ipfs/go-cid"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/knos/ks"
	"github.com/knos/ks/store"
)

var _ ks.Backend = &Store{}

// Store is a SQLite-based backend.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `blobs` and `bindings` tables if they do not exist.
// (If they do exist, they must have the columns, constraints, and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS blobs (
  cid TEXT PRIMARY KEY NOT NULL,
  data BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS bindings (
  human_id TEXT NOT NULL,
  version INTEGER NOT NULL,
  cid TEXT NOT NULL,
  PRIMARY KEY (human_id, version)
);

CREATE INDEX IF NOT EXISTS binding_idx ON bindings (human_id, version);
`

// New produces a new Store using `db` for storage.
// It expects to create tables `blobs` and `bindings`,
// or for those tables already to exist with the correct schema.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, err
}

// Get gets the block with CID `ref`.
func (s *Store) Get(ctx context.Context, ref cid.Cid) (ks.Blob, error) {
	const q = `SELECT data FROM blobs WHERE cid = $1`

	var b ks.Blob
	err := s.db.QueryRowContext(ctx, q, ref.String()).Scan(&b)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, ks.ErrNotFound
	}
	return b, errors.Wrapf(err, "querying block %s", ref)
}

// Exists reports whether a block is stored for `ref`.
func (s *Store) Exists(ctx context.Context, ref cid.Cid) (bool, error) {
	const q = `SELECT 1 FROM blobs WHERE cid = $1`

	var one int
	err := s.db.QueryRowContext(ctx, q, ref.String()).Scan(&one)
	if stderrs.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, errors.Wrapf(err, "querying block %s", ref)
}

// Put adds a block to the store if it wasn't already present.
func (s *Store) Put(ctx context.Context, b ks.Blob) (cid.Cid, bool, error) {
	const q = `INSERT INTO blobs (cid, data) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	ref := b.CID()
	res, err := s.db.ExecContext(ctx, q, ref.String(), []byte(b))
	if err != nil {
		return cid.Undef, false, errors.Wrap(err, "inserting blob")
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return cid.Undef, false, errors.Wrap(err, "counting affected rows")
	}
	if aff > 0 {
		return ref, true, nil
	}

	// Insert was a no-op: a block already exists under this CID.
	// Its bytes must be identical.
	existing, err := s.Get(ctx, ref)
	if err != nil {
		return cid.Undef, false, errors.Wrap(err, "re-reading existing block")
	}
	if !bytes.Equal(existing, b) {
		return ref, false, errors.Wrapf(ks.ErrIntegrity, "existing block %s has different bytes", ref)
	}
	return ref, false, nil
}

// ListCIDs produces all block CIDs in the store,
// in lexicographic order of their string form.
func (s *Store) ListCIDs(ctx context.Context, start cid.Cid, f func(cid.Cid) error) error {
	const q = `SELECT cid FROM blobs WHERE cid > $1 ORDER BY cid`

	startKey := ""
	if start.Defined() {
		startKey = start.String()
	}
	return sqlutil.ForQueryRows(ctx, s.db, q, startKey, func(cidstr string) error {
		ref, err := ks.ParseCID(cidstr)
		if err != nil {
			return errors.Wrapf(err, "parsing stored CID %s", cidstr)
		}
		return f(ref)
	})
}

// Bind records a (human ID, version) -> CID binding.
func (s *Store) Bind(ctx context.Context, humanID string, version int, c cid.Cid) error {
	const q = `INSERT INTO bindings (human_id, version, cid) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`

	res, err := s.db.ExecContext(ctx, q, humanID, version, c.String())
	if err != nil {
		return errors.Wrap(err, "inserting binding")
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if aff > 0 {
		return nil
	}

	existing, err := s.ResolveVersion(ctx, humanID, version)
	if err != nil {
		return errors.Wrap(err, "re-reading existing binding")
	}
	if existing != c {
		return errors.Wrapf(ks.ErrConflict, "%s version %d is bound to %s", humanID, version, existing)
	}
	return nil
}

// Resolve returns the CID bound to the current version of `humanID`.
func (s *Store) Resolve(ctx context.Context, humanID string) (cid.Cid, error) {
	const q = `SELECT cid FROM bindings WHERE human_id = $1 ORDER BY version DESC LIMIT 1`

	var cidstr string
	err := s.db.QueryRowContext(ctx, q, humanID).Scan(&cidstr)
	if stderrs.Is(err, sql.ErrNoRows) {
		return cid.Undef, ks.ErrNotFound
	}
	if err != nil {
		return cid.Undef, errors.Wrapf(err, "querying binding for %s", humanID)
	}
	return ks.ParseCID(cidstr)
}

// ResolveVersion returns the CID bound to an exact (humanID, version) pair.
func (s *Store) ResolveVersion(ctx context.Context, humanID string, version int) (cid.Cid, error) {
	const q = `SELECT cid FROM bindings WHERE human_id = $1 AND version = $2`

	var cidstr string
	err := s.db.QueryRowContext(ctx, q, humanID, version).Scan(&cidstr)
	if stderrs.Is(err, sql.ErrNoRows) {
		return cid.Undef, ks.ErrNotFound
	}
	if err != nil {
		return cid.Undef, errors.Wrapf(err, "querying binding for %s version %d", humanID, version)
	}
	return ks.ParseCID(cidstr)
}

// ListIDs lists all human IDs in the store, in lexicographic order.
func (s *Store) ListIDs(ctx context.Context, start string, f func(string) error) error {
	const q = `SELECT DISTINCT human_id FROM bindings WHERE human_id > $1 ORDER BY human_id`
	return sqlutil.ForQueryRows(ctx, s.db, q, start, f)
}

func init() {
	store.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (ks.Backend, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
