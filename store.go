package ks

import (
	"context"

	"github.com/ipfs/go-cid"
)

// Getter is a read-only Store (qv).
type Getter interface {
	// Get gets a block by its CID.
	// It returns ErrNotFound if no block is stored for the CID.
	Get(context.Context, cid.Cid) (Blob, error)

	// Exists reports whether a block is stored for the given CID.
	Exists(context.Context, cid.Cid) (bool, error)

	// ListCIDs calls a function for each block CID in the store,
	// in lexicographic order of the CIDs' base32 string form,
	// beginning with the first CID _after_ the specified one.
	// The zero value cid.Undef means to start from the beginning.
	//
	// The calls reflect at least the set of CIDs
	// known at the moment ListCIDs was called.
	// It is unspecified whether later changes,
	// that happen concurrently with ListCIDs,
	// are reflected.
	//
	// If the callback function returns an error,
	// ListCIDs exits with that error.
	ListCIDs(ctx context.Context, start cid.Cid, f func(cid.Cid) error) error
}

// Store is a block store.
// It stores immutable byte blocks,
// each retrievable by its CID.
type Store interface {
	Getter

	// Put adds b to the store if it was not already present.
	// It returns b's CID and a boolean that is true iff the block had to be added.
	// Putting the identical bytes again is a no-op.
	// If the store already holds different bytes under b's CID,
	// Put returns ErrIntegrity:
	// blocks are write-once and never silently overwritten.
	//
	// When Put returns without error the block is durably persisted.
	Put(ctx context.Context, b Blob) (ref cid.Cid, added bool, err error)
}

// Index maps human-readable record IDs to versioned CIDs.
type Index interface {
	// Bind records that the given version of the given human ID
	// is the record stored under c.
	// If the (humanID, version) pair is unseen, the binding is recorded,
	// and the "current" pointer for humanID moves to this version
	// if it is the highest seen.
	// Re-submitting an identical binding is a no-op.
	// Binding an existing (humanID, version) to a different CID
	// returns ErrConflict.
	Bind(ctx context.Context, humanID string, version int, c cid.Cid) error

	// Resolve returns the CID bound to the current version of humanID.
	// It returns ErrNotFound if humanID is unknown.
	Resolve(ctx context.Context, humanID string) (cid.Cid, error)

	// ResolveVersion returns the CID bound to the exact (humanID, version) pair.
	// It returns ErrNotFound if that version is unknown for that ID.
	ResolveVersion(ctx context.Context, humanID string, version int) (cid.Cid, error)

	// ListIDs calls a function for each known human ID,
	// in lexicographic order,
	// beginning with the first ID after `start`
	// (the empty string means to start from the beginning).
	// If the callback function returns an error,
	// ListIDs exits with that error.
	ListIDs(ctx context.Context, start string, f func(string) error) error
}

// Backend is a combined block store and human-ID index
// sharing one persistent location.
// The factories in the store package produce Backends.
type Backend interface {
	Store
	Index
}
