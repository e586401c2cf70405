package concept_test

import (
	"context"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/knos/ks"
	"github.com/knos/ks/concept"
	"github.com/knos/ks/store/mem"
	"github.com/knos/ks/testutil"
)

func TestReadWrite(t *testing.T) {
	ctx := context.Background()
	testutil.ReadWrite(ctx, t, mem.New())
}

func TestWriteRejectsMalformed(t *testing.T) {
	var (
		ctx = context.Background()
		cs  = concept.FromBackend(mem.New())
	)

	cases := []struct {
		name string
		rec  ks.Value
	}{{
		name: "not_a_mapping",
		rec:  ks.Text("free-floating text"),
	}, {
		name: "missing_human_id",
		rec: ks.Map(map[string]ks.Value{
			"metadata": ks.Map(map[string]ks.Value{"version": ks.Integer(1)}),
		}),
	}, {
		name: "missing_version",
		rec: ks.Map(map[string]ks.Value{
			"human_id": ks.Text("Physics:Law/ConservationOfEnergy"),
			"metadata": ks.Map(map[string]ks.Value{}),
		}),
	}, {
		name: "cid_shaped_human_id",
		rec: ks.Map(map[string]ks.Value{
			"human_id": ks.Text(ks.Blob("x").CID().String()),
			"metadata": ks.Map(map[string]ks.Value{"version": ks.Integer(1)}),
		}),
	}}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := cs.Write(ctx, c.rec); err == nil {
				t.Error("got no error, want one")
			}
		})
	}
}

func TestWriteVersionConflict(t *testing.T) {
	var (
		ctx = context.Background()
		cs  = concept.FromBackend(mem.New())
	)

	rec := testutil.SampleConcept(1)
	if _, err := cs.Write(ctx, rec); err != nil {
		t.Fatal(err)
	}

	// Different content claiming the same ID and version.
	changed := testutil.SampleConcept(1)
	changed.Fields["title"] = ks.Text("A different title")

	_, err := cs.Write(ctx, changed)
	if !errors.Is(err, ks.ErrConflict) {
		t.Errorf("got error %v, want ks.ErrConflict", err)
	}
}

func TestReadDanglingBinding(t *testing.T) {
	var (
		ctx = context.Background()
		b   = mem.New()
		cs  = concept.FromBackend(b)
	)

	ref, err := cs.Write(ctx, testutil.SampleConcept(1))
	if err != nil {
		t.Fatal(err)
	}

	// Bind an ID directly to a block that was never stored,
	// as a crash between a block write and its binding could not produce
	// but a buggy or truncated backend could.
	var (
		danglRef  = ks.Blob("never stored").CID()
		danglName = "Physics:Law/Dangling"
	)
	if err = b.Bind(ctx, danglName, 1, danglRef); err != nil {
		t.Fatal(err)
	}

	// The honestly written record still reads back fine.
	if _, err = cs.Read(ctx, ref.String()); err != nil {
		t.Fatal(err)
	}

	// A binding to a missing block is a not-found, not a panic.
	if _, err = cs.Read(ctx, danglName); !errors.Is(err, ks.ErrNotFound) {
		t.Errorf("got error %v reading a dangling binding, want ks.ErrNotFound", err)
	}
}

// corruptGetter returns altered bytes for one chosen CID,
// as a disk flipping bits would.
type corruptGetter struct {
	ks.Store
	victim cid.Cid
}

func (g corruptGetter) Get(ctx context.Context, ref cid.Cid) (ks.Blob, error) {
	b, err := g.Store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if ref == g.victim && len(b) > 0 {
		b = append(ks.Blob{}, b...)
		b[0] ^= 0xff
	}
	return b, nil
}

func TestReadIntegrity(t *testing.T) {
	var (
		ctx = context.Background()
		b   = mem.New()
	)

	ref, err := concept.New(b, b).Write(ctx, testutil.SampleConcept(1))
	if err != nil {
		t.Fatal(err)
	}

	cs := concept.New(corruptGetter{Store: b, victim: ref}, b)

	if _, err = cs.Read(ctx, ref.String()); !errors.Is(err, ks.ErrIntegrity) {
		t.Errorf("got error %v reading by CID, want ks.ErrIntegrity", err)
	}
	if _, err = cs.Read(ctx, "Physics:Law/ConservationOfEnergy"); !errors.Is(err, ks.ErrIntegrity) {
		t.Errorf("got error %v reading by human ID, want ks.ErrIntegrity", err)
	}
}

func TestReadNonCanonicalBlock(t *testing.T) {
	var (
		ctx = context.Background()
		b   = mem.New()
		cs  = concept.FromBackend(b)
	)

	// Bytes that hash correctly but were not produced by the canonical
	// encoder: well-formed CBOR with an oversized int width.
	blob := ks.Blob{0x18, 0x01}
	ref, _, err := b.Put(ctx, blob)
	if err != nil {
		t.Fatal(err)
	}

	if _, err = cs.Read(ctx, ref.String()); !errors.Is(err, ks.ErrDecode) {
		t.Errorf("got error %v, want ks.ErrDecode", err)
	}
}
