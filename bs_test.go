package ks

import (
	"fmt"
	"strings"
	"testing"
)

func TestCID(t *testing.T) {
	var (
		b1   = Blob("some canonical bytes")
		b2   = Blob("some other canonical bytes")
		ref1 = b1.CID()
		ref2 = b2.CID()
	)

	if ref1 != b1.CID() {
		t.Error("the same bytes produced different CIDs")
	}
	if ref1 == ref2 {
		t.Error("different bytes produced the same CID")
	}

	s := ref1.String()
	if !strings.HasPrefix(s, "b") {
		t.Errorf("CID string %s does not start with the base32 prefix", s)
	}
	if len(s) != 59 {
		t.Errorf("CID string %s has length %d, want 59", s, len(s))
	}
	if s != strings.ToLower(s) {
		t.Errorf("CID string %s is not lowercase", s)
	}

	if p := ref1.Prefix(); p != Prefix {
		t.Errorf("derived CID has profile %+v, want %+v", p, Prefix)
	}
}

func TestParseCID(t *testing.T) {
	ref := Blob("x").CID()

	got, err := ParseCID(ref.String())
	if err != nil {
		t.Fatal(err)
	}
	if got != ref {
		t.Errorf("got %s, want %s", got, ref)
	}

	bad := []string{
		"",
		"not a cid",
		"Physics:Law/ConservationOfEnergy",
		// CIDv0 (sha2-256, dag-pb, base58): wrong profile.
		"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		// CIDv1 with the raw codec instead of dag-cbor.
		"bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy",
	}
	for _, s := range bad {
		if _, err := ParseCID(s); err == nil {
			t.Errorf("got no error parsing %q, want one", s)
		}
	}
}

func TestIsCID(t *testing.T) {
	cases := []struct {
		key  string
		want bool
	}{{
		key:  Blob("x").CID().String(),
		want: true,
	}, {
		key: "",
	}, {
		key: "Physics:Law/ConservationOfEnergy",
	}, {
		key: "Biology:Process/Photosynthesis",
	}, {
		// Starts with 'b' but is not a CID.
		key: "beliefs/first-principles",
	}, {
		// A v0 CID is not under the pinned profile.
		key: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
	}}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			if got := IsCID(c.key); got != c.want {
				t.Errorf("got %v for %q, want %v", got, c.key, c.want)
			}
		})
	}
}
