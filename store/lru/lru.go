// Package lru implements a backend that acts as a least-recently-used
// block cache for a nested backend.
package lru

import (
	"context"
	"encoding/json"

	"github.com/hashicorp/golang-lru"
	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/knos/ks"
	"github.com/knos/ks/store"
)

var _ ks.Backend = &Store{}

// Store implements a memory-based least-recently-used cache for a backend.
// Blocks are immutable, which makes them ideal cache entries:
// a cached blob can never be stale.
// It caches only blocks, not index bindings
// (bindings are mutable in aggregate - new versions appear).
// Writes pass through to the nested backend.
type Store struct {
	c *lru.Cache // cid.Cid -> ks.Blob
	b ks.Backend
}

// New produces a new Store backed by `b` and caching up to `size` blocks.
func New(b ks.Backend, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{b: b, c: c}, err
}

// Get gets the block with CID `ref`.
func (s *Store) Get(ctx context.Context, ref cid.Cid) (ks.Blob, error) {
	if got, ok := s.c.Get(ref); ok {
		return got.(ks.Blob), nil
	}
	blob, err := s.b.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.c.Add(ref, blob)
	return blob, nil
}

// Exists reports whether a block is stored for `ref`.
func (s *Store) Exists(ctx context.Context, ref cid.Cid) (bool, error) {
	if s.c.Contains(ref) {
		return true, nil
	}
	return s.b.Exists(ctx, ref)
}

// Put adds a block to the nested backend if it wasn't already present.
func (s *Store) Put(ctx context.Context, b ks.Blob) (cid.Cid, bool, error) {
	ref, added, err := s.b.Put(ctx, b)
	if err != nil {
		return ref, added, err
	}
	s.c.Add(ref, b)
	return ref, added, nil
}

// ListCIDs delegates to the nested backend.
func (s *Store) ListCIDs(ctx context.Context, start cid.Cid, f func(cid.Cid) error) error {
	return s.b.ListCIDs(ctx, start, f)
}

// Bind delegates to the nested backend.
func (s *Store) Bind(ctx context.Context, humanID string, version int, c cid.Cid) error {
	return s.b.Bind(ctx, humanID, version, c)
}

// Resolve delegates to the nested backend.
func (s *Store) Resolve(ctx context.Context, humanID string) (cid.Cid, error) {
	return s.b.Resolve(ctx, humanID)
}

// ResolveVersion delegates to the nested backend.
func (s *Store) ResolveVersion(ctx context.Context, humanID string, version int) (cid.Cid, error) {
	return s.b.ResolveVersion(ctx, humanID, version)
}

// ListIDs delegates to the nested backend.
func (s *Store) ListIDs(ctx context.Context, start string, f func(string) error) error {
	return s.b.ListIDs(ctx, start, f)
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (ks.Backend, error) {
		size := int64(100)
		if sizeNum, ok := conf["size"].(json.Number); ok {
			var err error
			size, err = sizeNum.Int64()
			if err != nil {
				return nil, errors.Wrapf(err, "parsing size %v", sizeNum)
			}
		}
		nested, ok := conf["nested"].(map[string]interface{})
		if !ok {
			return nil, errors.New(`missing "nested" parameter`)
		}
		nestedType, ok := nested["type"].(string)
		if !ok {
			return nil, errors.New(`"nested" parameter missing "type"`)
		}
		nestedStore, err := store.Create(ctx, nestedType, nested)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested store")
		}
		return New(nestedStore, int(size))
	})
}
