package ks

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Blob is the type of a block: the canonical bytes of one record.
type Blob []byte

// Prefix is the pinned CID profile:
// CIDv1, the dag-cbor codec, and a sha2-256 digest.
// Every CID in a store is derived under this profile,
// and the string form is always lowercase base32.
var Prefix = cid.Prefix{
	Version:  1,
	Codec:    cid.DagCBOR,
	MhType:   multihash.SHA2_256,
	MhLength: 32,
}

// CID computes the content identifier of a blob.
func (b Blob) CID() cid.Cid {
	c, err := Prefix.Sum(b)
	if err != nil {
		// Prefix is fixed and sha2-256 is always registered,
		// so Sum cannot fail.
		panic(err)
	}
	return c
}

// ParseCID parses the string form of a CID
// and checks it against the pinned profile.
// A CID derived under some other profile is rejected,
// so a store never mixes hash functions or codecs silently.
func ParseCID(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	if p := c.Prefix(); p != Prefix {
		return cid.Undef, errWrongProfile
	}
	return c, nil
}

// IsCID reports whether key has the shape of a CID string
// under the pinned profile.
// The concept reader uses this to classify a lookup key
// as a CID or a human ID.
// Realistic human IDs ("Physics:Law/ConservationOfEnergy")
// contain characters outside the base32 alphabet
// and can never be mistaken for CIDs;
// the write path refuses to index a human ID
// for which this function returns true.
func IsCID(key string) bool {
	if len(key) == 0 || key[0] != 'b' {
		return false
	}
	_, err := ParseCID(key)
	return err == nil
}
