package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/knos/ks"
	"github.com/knos/ks/concept"
	"github.com/knos/ks/testutil"
)

func TestFileBlocks(t *testing.T) {
	ctx := context.Background()
	testutil.Blocks(ctx, t, func() ks.Store {
		root, err := os.MkdirTemp("", "ksfiletest")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.RemoveAll(root) })
		return New(root)
	})
}

func TestFileBindings(t *testing.T) {
	ctx := context.Background()
	testutil.Bindings(ctx, t, New(t.TempDir()))
}

func TestFileReadWrite(t *testing.T) {
	ctx := context.Background()
	testutil.ReadWrite(ctx, t, New(t.TempDir()))
}

func TestFileReopen(t *testing.T) {
	var (
		ctx  = context.Background()
		root = t.TempDir()
	)

	ref, err := concept.FromBackend(New(root)).Write(ctx, testutil.SampleConcept(1))
	if err != nil {
		t.Fatal(err)
	}

	// A fresh Store over the same root sees everything.
	reopened := New(root)

	ok, err := reopened.Exists(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("block %s not present after reopening", ref)
	}

	got, err := reopened.Resolve(ctx, "Physics:Law/ConservationOfEnergy")
	if err != nil {
		t.Fatal(err)
	}
	if got != ref {
		t.Errorf("got %s after reopening, want %s", got, ref)
	}
}

func TestFileCorruption(t *testing.T) {
	var (
		ctx  = context.Background()
		root = t.TempDir()
		s    = New(root)
		cs   = concept.FromBackend(s)
	)

	ref, err := cs.Write(ctx, testutil.SampleConcept(1))
	if err != nil {
		t.Fatal(err)
	}

	// Flip a bit in the stored block file behind the store's back.
	path := s.blobpath(ref)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)/2] ^= 0x01
	if err = os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err = cs.Read(ctx, ref.String()); !errors.Is(err, ks.ErrIntegrity) {
		t.Errorf("got error %v reading a corrupted block, want ks.ErrIntegrity", err)
	}
}

func TestFileConcurrentReads(t *testing.T) {
	var (
		ctx  = context.Background()
		root = t.TempDir()
		s    = New(root)
	)

	ref, err := concept.FromBackend(s).Write(ctx, testutil.SampleConcept(1))
	if err != nil {
		t.Fatal(err)
	}

	// Reads work even while another process holds the index lock,
	// as a concurrent Bind would.
	if err = s.lockIndex(); err != nil {
		t.Fatal(err)
	}
	defer s.unlockIndex()

	got, err := s.Resolve(ctx, "Physics:Law/ConservationOfEnergy")
	if err != nil {
		t.Fatal(err)
	}
	if got != ref {
		t.Errorf("got %s, want %s", got, ref)
	}

	if _, err = s.ResolveVersion(ctx, "Physics:Law/ConservationOfEnergy", 1); err != nil {
		t.Fatal(err)
	}

	var ids []string
	err = s.ListIDs(ctx, "", func(id string) error {
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("got IDs %v, want one", ids)
	}

	// Many simultaneous readers, none failing on contention.
	var g sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		g.Add(1)
		go func() {
			defer g.Done()
			if _, err := s.Resolve(ctx, "Physics:Law/ConservationOfEnergy"); err != nil {
				errs <- err
			}
		}()
	}
	g.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestFileIndexLayout(t *testing.T) {
	var (
		ctx  = context.Background()
		root = t.TempDir()
		s    = New(root)
	)

	ref, _, err := s.Put(ctx, ks.Blob("some bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Bind(ctx, "alpha", 1, ref); err != nil {
		t.Fatal(err)
	}

	// The index is one ordinary JSON file at the root.
	if _, err = os.Stat(filepath.Join(root, "index.json")); err != nil {
		t.Error(err)
	}

	// No temp files left behind by atomic writes.
	leftovers, err := filepath.Glob(filepath.Join(root, ".tmp-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) > 0 {
		t.Errorf("leftover temp files: %v", leftovers)
	}
}
