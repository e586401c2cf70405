package lru

import (
	"bytes"
	"context"
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/knos/ks"
	"github.com/knos/ks/store/mem"
	"github.com/knos/ks/testutil"
)

func TestLruBlocks(t *testing.T) {
	ctx := context.Background()
	testutil.Blocks(ctx, t, func() ks.Store {
		s, err := New(mem.New(), 100)
		if err != nil {
			t.Fatal(err)
		}
		return s
	})
}

func TestLruReadWrite(t *testing.T) {
	ctx := context.Background()
	s, err := New(mem.New(), 100)
	if err != nil {
		t.Fatal(err)
	}
	testutil.ReadWrite(ctx, t, s)
}

// countingBackend counts Gets that reach the nested backend.
type countingBackend struct {
	ks.Backend
	gets int
}

func (c *countingBackend) Get(ctx context.Context, ref cid.Cid) (ks.Blob, error) {
	c.gets++
	return c.Backend.Get(ctx, ref)
}

func TestLruCaches(t *testing.T) {
	var (
		ctx    = context.Background()
		nested = &countingBackend{Backend: mem.New()}
	)
	s, err := New(nested, 100)
	if err != nil {
		t.Fatal(err)
	}

	blob := ks.Blob("cache me")
	ref, _, err := s.Put(ctx, blob)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		got, err := s.Get(ctx, ref)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, blob) {
			t.Fatalf("got %q, want %q", got, blob)
		}
	}

	if nested.gets != 0 {
		t.Errorf("nested backend saw %d gets for a freshly put block, want 0", nested.gets)
	}

	// A block the cache has never seen hits the nested backend exactly once.
	other, _, err := nested.Put(ctx, ks.Blob("uncached"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err = s.Get(ctx, other); err != nil {
			t.Fatal(err)
		}
	}
	if nested.gets != 1 {
		t.Errorf("nested backend saw %d gets, want 1", nested.gets)
	}
}

func TestLruEvicts(t *testing.T) {
	var (
		ctx    = context.Background()
		nested = &countingBackend{Backend: mem.New()}
	)
	s, err := New(nested, 1)
	if err != nil {
		t.Fatal(err)
	}

	ref1, _, err := s.Put(ctx, ks.Blob("first"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err = s.Put(ctx, ks.Blob("second")); err != nil {
		t.Fatal(err)
	}

	// "first" was evicted by "second"; fetching it falls through.
	if _, err = s.Get(ctx, ref1); err != nil {
		t.Fatal(err)
	}
	if nested.gets != 1 {
		t.Errorf("nested backend saw %d gets, want 1", nested.gets)
	}
}
