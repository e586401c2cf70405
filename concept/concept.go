// Package concept composes the canonical codec, a block store,
// and a human-ID index into the write and read paths
// for knowledge records.
package concept

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/knos/ks"
	"github.com/knos/ks/codec"
)

// Store binds a block store and an index.
// There is no other state:
// the persistent layer is the single source of truth,
// and concurrent readers need no coordination.
type Store struct {
	blocks ks.Store
	index  ks.Index
}

// New produces a Store over separate block and index layers.
func New(blocks ks.Store, index ks.Index) *Store {
	return &Store{blocks: blocks, index: index}
}

// FromBackend produces a Store over a combined backend.
func FromBackend(b ks.Backend) *Store {
	return New(b, b)
}

// Write canonicalizes rec, stores the resulting block,
// and binds the record's human ID and version to the block's CID.
// It returns that CID.
//
// The block is durably stored before the index binding is committed,
// so a crash between the two steps can leave at worst
// an unindexed block, never a binding to a missing block.
// Re-running an identical Write is a no-op returning the same CID.
func (s *Store) Write(ctx context.Context, rec ks.Value) (cid.Cid, error) {
	humanID, err := ks.HumanID(rec)
	if err != nil {
		return cid.Undef, err
	}
	version, err := ks.RecordVersion(rec)
	if err != nil {
		return cid.Undef, err
	}
	if ks.IsCID(humanID) {
		return cid.Undef, errors.Errorf("human ID %q is CID-shaped", humanID)
	}

	b, err := codec.Encode(rec)
	if err != nil {
		return cid.Undef, errors.Wrap(err, "encoding record")
	}

	ref, _, err := s.blocks.Put(ctx, b)
	if err != nil {
		return cid.Undef, errors.Wrap(err, "storing block")
	}

	err = s.index.Bind(ctx, humanID, version, ref)
	if err != nil {
		return cid.Undef, errors.Wrapf(err, "binding %s version %d", humanID, version)
	}
	return ref, nil
}

// Read fetches the record for a lookup key,
// which may be a CID string or a human ID.
// A human ID resolves to the CID of its current version.
// The fetched bytes are re-verified against the CID before decoding.
func (s *Store) Read(ctx context.Context, key string) (ks.Value, error) {
	var ref cid.Cid

	if ks.IsCID(key) {
		var err error
		ref, err = ks.ParseCID(key)
		if err != nil {
			return ks.Value{}, errors.Wrapf(err, "parsing CID %s", key)
		}
	} else {
		var err error
		ref, err = s.index.Resolve(ctx, key)
		if err != nil {
			return ks.Value{}, errors.Wrapf(err, "resolving %q", key)
		}
	}

	return s.fetch(ctx, ref)
}

// ReadVersion fetches the record bound to an exact version of a human ID.
func (s *Store) ReadVersion(ctx context.Context, humanID string, version int) (ks.Value, error) {
	ref, err := s.index.ResolveVersion(ctx, humanID, version)
	if err != nil {
		return ks.Value{}, errors.Wrapf(err, "resolving %q version %d", humanID, version)
	}
	return s.fetch(ctx, ref)
}

// List calls f for each known human ID, in lexicographic order.
func (s *Store) List(ctx context.Context, f func(humanID string) error) error {
	return s.index.ListIDs(ctx, "", f)
}

// fetch gets the block for ref, verifies it, and decodes it.
//
// The hash re-check happens on every read, not only at write time:
// it is the only defense against storage corruption or tampering
// between write and read.
// Bytes that hash correctly but fail to decode are reported
// as ks.ErrDecode, distinct from ks.ErrIntegrity -
// in a correctly functioning store that is unreachable.
func (s *Store) fetch(ctx context.Context, ref cid.Cid) (ks.Value, error) {
	b, err := s.blocks.Get(ctx, ref)
	if err != nil {
		return ks.Value{}, errors.Wrapf(err, "getting block %s", ref)
	}
	if got := b.CID(); got != ref {
		return ks.Value{}, errors.Wrapf(ks.ErrIntegrity, "block %s hashes to %s", ref, got)
	}
	v, err := codec.Decode(b)
	if err != nil {
		return ks.Value{}, errors.Wrapf(err, "decoding block %s", ref)
	}
	return v, nil
}
