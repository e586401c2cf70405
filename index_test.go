package ks

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
)

func TestFindVersion(t *testing.T) {
	var (
		ref1 = Blob("1").CID()
		ref2 = Blob("2").CID()
		ref5 = Blob("5").CID()

		pairs = []VersionRef{
			{V: 1, C: ref1},
			{V: 2, C: ref2},
			{V: 5, C: ref5},
		}
	)

	cases := []struct {
		pairs   []VersionRef
		version int
		want    string
		wantErr bool
	}{{
		version: 1,
		wantErr: true, // empty list
	}, {
		pairs:   pairs,
		version: 1,
		want:    ref1.String(),
	}, {
		pairs:   pairs,
		version: 2,
		want:    ref2.String(),
	}, {
		pairs:   pairs,
		version: 5,
		want:    ref5.String(),
	}, {
		pairs:   pairs,
		version: 3, // in a gap
		wantErr: true,
	}, {
		pairs:   pairs,
		version: 6, // past the end
		wantErr: true,
	}, {
		pairs:   pairs,
		version: 0,
		wantErr: true,
	}}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			got, err := FindVersion(c.pairs, c.version)
			if c.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("got error %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}

func TestLatestVersion(t *testing.T) {
	if _, err := LatestVersion(nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("got error %v for an empty list, want ErrNotFound", err)
	}

	var (
		ref1 = Blob("1").CID()
		ref7 = Blob("7").CID()
	)
	got, err := LatestVersion([]VersionRef{
		{V: 1, C: ref1},
		{V: 7, C: ref7},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.V != 7 || got.C != ref7 {
		t.Errorf("got version %d (%s), want version 7 (%s)", got.V, got.C, ref7)
	}
}
