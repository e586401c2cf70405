package ks

import "errors"

var (
	// ErrNotFound is the error returned when a Getter or Index lookup
	// finds no block or binding for its key.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity is the error returned when stored bytes do not hash
	// to the CID under which they are keyed.
	// It signals corruption, tampering, or a hash collision,
	// never a normal conflict.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrConflict is the error returned when an existing
	// (human ID, version) binding would be rebound to a different CID.
	// Bindings are immutable once recorded.
	ErrConflict = errors.New("binding conflict")

	// ErrEncoding is the error returned when a value contains something
	// the canonical codec cannot represent deterministically,
	// such as a NaN or infinite float.
	ErrEncoding = errors.New("cannot encode canonically")

	// ErrDecode is the error returned for bytes that are not a valid
	// canonical encoding.
	// Bytes that pass the integrity check but fail to decode
	// indicate a defect, not a transient failure.
	ErrDecode = errors.New("not a canonical encoding")
)

var errWrongProfile = errors.New("CID does not match the pinned profile")
