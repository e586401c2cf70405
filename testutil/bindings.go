package testutil

import (
	"context"
	"sort"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/knos/ks"
)

// Bindings runs an empty index through the binding contract:
// recording versions, moving the current pointer,
// idempotent re-binding, conflicting re-binding,
// exact-version and unknown-key resolution, and ID enumeration.
func Bindings(ctx context.Context, t *testing.T, index ks.Index) {
	var (
		ref1 = ks.Blob("a").CID()
		ref2 = ks.Blob("b").CID()
		ref3 = ks.Blob("c").CID()
	)

	if _, err := index.Resolve(ctx, "nonexistent"); !errors.Is(err, ks.ErrNotFound) {
		t.Errorf("got error %v resolving an unknown ID, want ks.ErrNotFound", err)
	}

	if err := index.Bind(ctx, "alpha", 1, ref1); err != nil {
		t.Fatal(err)
	}
	if err := index.Bind(ctx, "alpha", 2, ref2); err != nil {
		t.Fatal(err)
	}
	if err := index.Bind(ctx, "beta", 1, ref3); err != nil {
		t.Fatal(err)
	}

	// Re-submitting an identical binding is a no-op.
	if err := index.Bind(ctx, "alpha", 1, ref1); err != nil {
		t.Errorf("got error %v re-binding alpha version 1 identically, want no error", err)
	}

	// Binding a bound version to a different CID is refused.
	if err := index.Bind(ctx, "alpha", 1, ref2); !errors.Is(err, ks.ErrConflict) {
		t.Errorf("got error %v re-binding alpha version 1 to a new CID, want ks.ErrConflict", err)
	}

	cases := []struct {
		humanID string
		version int // 0 means current
		want    ks.Blob
		wantErr error
	}{{
		humanID: "alpha",
		want:    ks.Blob("b"),
	}, {
		humanID: "alpha",
		version: 1,
		want:    ks.Blob("a"),
	}, {
		humanID: "alpha",
		version: 2,
		want:    ks.Blob("b"),
	}, {
		humanID: "alpha",
		version: 3,
		wantErr: ks.ErrNotFound,
	}, {
		humanID: "beta",
		want:    ks.Blob("c"),
	}, {
		humanID: "gamma",
		wantErr: ks.ErrNotFound,
	}}

	for _, c := range cases {
		var (
			got cid.Cid
			err error
		)
		if c.version > 0 {
			got, err = index.ResolveVersion(ctx, c.humanID, c.version)
		} else {
			got, err = index.Resolve(ctx, c.humanID)
		}
		if c.wantErr != nil {
			if !errors.Is(err, c.wantErr) {
				t.Errorf("got error %v resolving %s version %d, want %v", err, c.humanID, c.version, c.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("resolving %s version %d: %v", c.humanID, c.version, err)
			continue
		}
		if want := c.want.CID(); got != want {
			t.Errorf("got %s resolving %s version %d, want %s", got, c.humanID, c.version, want)
		}
	}

	// The index may not be empty
	// (file- and service-backed indexes persist across runs),
	// so check order and membership rather than the exact set.
	var got []string
	err := index.ListIDs(ctx, "", func(humanID string) error {
		got = append(got, humanID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !sort.StringsAreSorted(got) {
		t.Errorf("ListIDs produced IDs out of order: %v", got)
	}
	for _, want := range []string{"alpha", "beta"} {
		if !contains(got, want) {
			t.Errorf("ListIDs omitted %q: %v", want, got)
		}
	}

	got = nil
	err = index.ListIDs(ctx, "alpha", func(humanID string) error {
		got = append(got, humanID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if contains(got, "alpha") {
		t.Errorf("ListIDs starting after alpha still produced alpha: %v", got)
	}
	if !contains(got, "beta") {
		t.Errorf("ListIDs starting after alpha omitted beta: %v", got)
	}
}

func contains(ids []string, want string) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
