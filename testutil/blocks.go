package testutil

import (
	"bytes"
	"context"
	"sort"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"
	"github.com/ipfs/go-cid"

	"github.com/knos/ks"
)

// Blocks writes a random set of random blobs to an empty store
// and makes sure that the right set of CIDs comes back
// from Get, Exists, and ListCIDs.
func Blocks(ctx context.Context, t *testing.T, storeFactory func() ks.Store) {
	if err := quick.Check(blocksHelper(ctx, t, storeFactory), nil); err != nil {
		t.Error(err)
	}
}

func blocksHelper(ctx context.Context, t *testing.T, storeFactory func() ks.Store) func([][]byte) bool {
	return func(blobs [][]byte) bool {
		var (
			store = storeFactory()
			want  []string
		)
		for _, blob := range blobs {
			ref, added, err := store.Put(ctx, blob)
			if err != nil {
				t.Fatal(err)
			}
			if added {
				want = append(want, ref.String())
			}

			got, err := store.Get(ctx, ref)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, blob) {
				t.Logf("got %x for block %s, want %x", got, ref, blob)
				return false
			}

			ok, err := store.Exists(ctx, ref)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Logf("stored blob %s does not exist", ref)
				return false
			}
		}

		var got []string
		err := store.ListCIDs(ctx, cid.Undef, func(ref cid.Cid) error {
			got = append(got, ref.String())
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}

		sort.Strings(want)

		if diff := cmp.Diff(want, got); diff != "" {
			t.Logf("CID set mismatch (-want +got):\n%s", diff)
			return false
		}
		return true
	}
}
