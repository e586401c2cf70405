// Package ks is a content-addressed store for structured knowledge records.
//
// A knowledge record is converted to a canonical byte encoding
// that is the same on every machine, in every run,
// no matter how the record's source text was formatted.
// The record's content identifier, or CID,
// is computed from those canonical bytes:
// a CIDv1 with the dag-cbor codec and a sha2-256 digest,
// rendered as a lowercase base32 string.
// Identical records always yield identical CIDs,
// and a CID can be shared as plain text
// and later used to retrieve the record
// with a guarantee that it has not been altered.
//
// Blocks - the canonical bytes of one record - are immutable.
// A store never overwrites a block:
// putting the same bytes twice is a no-op,
// and putting different bytes under the same CID is an integrity failure,
// which with sha2-256 signals corruption rather than coincidence.
//
// CIDs make poor names for humans,
// and they change whenever the record does.
// So alongside the block store this module keeps an index
// from mnemonic human IDs
// (such as "Physics:Law/ConservationOfEnergy")
// to versioned CIDs.
// Each (human ID, version) pair is bound to exactly one CID, forever;
// publishing a revised record means binding a new version,
// never rebinding an old one.
//
// The concept subpackage composes the pieces into the write and read paths,
// re-verifying the digest of every block it reads.
// Storage backends live under store/
// and are selected through the registry in the store package.
package ks
