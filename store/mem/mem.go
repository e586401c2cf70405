// Package mem implements an in-memory backend.
package mem

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/knos/ks"
	"github.com/knos/ks/store"
)

var _ ks.Backend = &Store{}

// Store is a memory-based implementation of a backend.
type Store struct {
	mu       sync.Mutex
	blobs    map[cid.Cid]ks.Blob
	bindings map[string][]ks.VersionRef // sorted by version
}

// New produces a new Store.
func New() *Store {
	return &Store{
		blobs:    make(map[cid.Cid]ks.Blob),
		bindings: make(map[string][]ks.VersionRef),
	}
}

// Get gets the block with CID `ref`.
func (s *Store) Get(_ context.Context, ref cid.Cid) (ks.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.blobs[ref]; ok {
		return b, nil
	}
	return nil, ks.ErrNotFound
}

// Exists reports whether a block is stored for `ref`.
func (s *Store) Exists(_ context.Context, ref cid.Cid) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.blobs[ref]
	return ok, nil
}

// Put adds a block to the store if it wasn't already present.
func (s *Store) Put(_ context.Context, b ks.Blob) (cid.Cid, bool, error) {
	ref := b.CID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.blobs[ref]; ok {
		if !bytes.Equal(existing, b) {
			return ref, false, errors.Wrapf(ks.ErrIntegrity, "existing block %s has different bytes", ref)
		}
		return ref, false, nil
	}
	s.blobs[ref] = b
	return ref, true, nil
}

// ListCIDs produces all block CIDs in the store,
// in lexicographic order of their string form.
func (s *Store) ListCIDs(_ context.Context, start cid.Cid, f func(cid.Cid) error) error {
	s.mu.Lock()
	refs := make([]cid.Cid, 0, len(s.blobs))
	for ref := range s.blobs {
		refs = append(refs, ref)
	}
	s.mu.Unlock()

	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })

	startKey := ""
	if start.Defined() {
		startKey = start.String()
	}
	index := sort.Search(len(refs), func(n int) bool {
		return refs[n].String() > startKey
	})

	for i := index; i < len(refs); i++ {
		err := f(refs[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// Bind records a (human ID, version) -> CID binding.
func (s *Store) Bind(_ context.Context, humanID string, version int, c cid.Cid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs := s.bindings[humanID]
	if existing, err := ks.FindVersion(pairs, version); err == nil {
		if existing == c {
			return nil
		}
		return errors.Wrapf(ks.ErrConflict, "%s version %d is bound to %s", humanID, version, existing)
	}

	pairs = append(pairs, ks.VersionRef{V: version, C: c})
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].V < pairs[j].V })
	s.bindings[humanID] = pairs
	return nil
}

// Resolve returns the CID bound to the current version of `humanID`.
func (s *Store) Resolve(_ context.Context, humanID string) (cid.Cid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := ks.LatestVersion(s.bindings[humanID])
	if err != nil {
		return cid.Undef, err
	}
	return latest.C, nil
}

// ResolveVersion returns the CID bound to an exact (humanID, version) pair.
func (s *Store) ResolveVersion(_ context.Context, humanID string, version int) (cid.Cid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ks.FindVersion(s.bindings[humanID], version)
}

// ListIDs lists all human IDs in the store, in lexicographic order.
func (s *Store) ListIDs(_ context.Context, start string, f func(string) error) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.bindings))
	for id := range s.bindings {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	sort.Strings(ids)
	index := sort.Search(len(ids), func(n int) bool {
		return ids[n] > start
	})

	for i := index; i < len(ids); i++ {
		err := f(ids[i])
		if err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (ks.Backend, error) {
		return New(), nil
	})
}
