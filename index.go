package ks

import (
	"sort"

	"github.com/ipfs/go-cid"
)

// VersionRef is a version / CID pair.
// Abstractly, a human ID maps to one or more VersionRefs.
type VersionRef struct {
	V int
	C cid.Cid
}

// FindVersion is a helper for finding the CID bound to an exact version
// in a list of VersionRefs sorted by version.
func FindVersion(pairs []VersionRef, version int) (cid.Cid, error) {
	index := sort.Search(len(pairs), func(n int) bool {
		return pairs[n].V >= version
	})
	if index == len(pairs) || pairs[index].V != version {
		return cid.Undef, ErrNotFound
	}
	return pairs[index].C, nil
}

// LatestVersion is a helper for finding the current binding
// in a list of VersionRefs sorted by version:
// the pair with the highest version.
func LatestVersion(pairs []VersionRef) (VersionRef, error) {
	if len(pairs) == 0 {
		return VersionRef{}, ErrNotFound
	}
	return pairs[len(pairs)-1], nil
}
