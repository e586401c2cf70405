package ks

import "github.com/pkg/errors"

// A concept record is a mapping Value conforming to an external schema.
// This package treats it as opaque except for the two fields
// the index needs: human_id, and version inside metadata.
// Schema validation happens upstream;
// these helpers only check the shapes they depend on.

// HumanID extracts the human_id field of a record.
func HumanID(rec Value) (string, error) {
	if rec.Kind != KindMap {
		return "", errors.New("record is not a mapping")
	}
	got, ok := rec.Get("human_id")
	if !ok {
		return "", errors.New("record has no human_id field")
	}
	if got.Kind != KindText {
		return "", errors.New("human_id is not text")
	}
	if got.Text == "" {
		return "", errors.New("human_id is empty")
	}
	return got.Text, nil
}

// RecordVersion extracts the metadata.version field of a record,
// a positive integer.
func RecordVersion(rec Value) (int, error) {
	if rec.Kind != KindMap {
		return 0, errors.New("record is not a mapping")
	}
	meta, ok := rec.Get("metadata")
	if !ok {
		return 0, errors.New("record has no metadata field")
	}
	got, ok := meta.Get("version")
	if !ok {
		return 0, errors.New("metadata has no version field")
	}
	if got.Kind != KindInt {
		return 0, errors.New("metadata.version is not an integer")
	}
	if got.Int < 1 {
		return 0, errors.Errorf("metadata.version %d is not positive", got.Int)
	}
	return int(got.Int), nil
}
