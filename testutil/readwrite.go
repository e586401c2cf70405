package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"

	"github.com/knos/ks"
	"github.com/knos/ks/concept"
)

// SampleConcept returns a realistic knowledge record at the given version.
// Every call with the same version returns a semantically equal record.
func SampleConcept(version int) ks.Value {
	return ks.Map(map[string]ks.Value{
		"human_id": ks.Text("Physics:Law/ConservationOfEnergy"),
		"title":    ks.Text("Law of Conservation of Energy"),
		"content":  ks.Text("Energy can be neither created nor destroyed, only transformed."),
		"tags":     ks.Seq(ks.Text("physics"), ks.Text("thermodynamics")),
		"metadata": ks.Map(map[string]ks.Value{
			"created":         ks.Text("2026-01-05T09:00:00Z"),
			"creator":         ks.Text("curator"),
			"certainty_score": ks.Float(0.99),
			"version":         ks.Integer(int64(version)),
			"purpose":         ks.Text("reference"),
		}),
	})
}

// ReadWrite runs a concept store over an empty backend
// through the write/read contract:
// writing, idempotent rewriting, reading back by CID and by human ID,
// version history, and enumeration.
func ReadWrite(ctx context.Context, t *testing.T, b ks.Backend) {
	var (
		cs   = concept.FromBackend(b)
		rec1 = SampleConcept(1)
		rec2 = SampleConcept(2)
	)

	ref1, err := cs.Write(ctx, rec1)
	if err != nil {
		t.Fatal(err)
	}

	// Writing the identical record again produces the identical CID.
	again, err := cs.Write(ctx, rec1)
	if err != nil {
		t.Fatal(err)
	}
	if again != ref1 {
		t.Errorf("got %s rewriting a record, want %s", again, ref1)
	}

	ref2, err := cs.Write(ctx, rec2)
	if err != nil {
		t.Fatal(err)
	}
	if ref2 == ref1 {
		t.Error("distinct versions produced the same CID")
	}

	humanID, err := ks.HumanID(rec1)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		key     string
		version int // 0 means current
		want    ks.Value
	}{{
		key:  ref1.String(),
		want: rec1,
	}, {
		key:  ref2.String(),
		want: rec2,
	}, {
		key:  humanID,
		want: rec2,
	}, {
		key:     humanID,
		version: 1,
		want:    rec1,
	}, {
		key:     humanID,
		version: 2,
		want:    rec2,
	}}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			var (
				got ks.Value
				err error
			)
			if c.version > 0 {
				got, err = cs.ReadVersion(ctx, c.key, c.version)
			} else {
				got, err = cs.Read(ctx, c.key)
			}
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(c.want) {
				t.Errorf("record read back for %s version %d is not the one written", c.key, c.version)
			}
		})
	}

	if _, err = cs.Read(ctx, "Physics:Law/Nonexistent"); !errors.Is(err, ks.ErrNotFound) {
		t.Errorf("got error %v reading an unknown ID, want ks.ErrNotFound", err)
	}
	if _, err = cs.ReadVersion(ctx, humanID, 3); !errors.Is(err, ks.ErrNotFound) {
		t.Errorf("got error %v reading an unknown version, want ks.ErrNotFound", err)
	}

	// Membership only: persistent backends may hold other IDs.
	var found bool
	err = cs.List(ctx, func(id string) error {
		if id == humanID {
			found = true
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Errorf("enumeration omitted %q", humanID)
	}
}
