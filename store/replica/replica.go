// Package replica implements a backend that delegates reads and writes
// to a set of nested backends.
// Writes go to every replica and must succeed on all of them
// before the call returns;
// reads are fanned out and served by the first replica to answer.
// Because every write is synchronous,
// replicas hold the same data in the absence of failures,
// and enumeration can be served by any one of them.
package replica

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/knos/ks"
	"github.com/knos/ks/store"
)

var _ ks.Backend = (*Store)(nil)

// Store is a replicating backend.
type Store struct {
	replicas []ks.Backend
}

// New produces a new Store.
// The set of replicas must be non-empty.
func New(replicas ...ks.Backend) *Store {
	if len(replicas) == 0 {
		panic("replica store needs at least one replica")
	}
	return &Store{replicas: replicas}
}

// Put stores the block in every replica.
// An error from any of them causes Put to fail.
// Some replicas may already have the block and others may not,
// in which case the value of `added` is indeterminate
// (it is determined by the first replica to finish).
func (s *Store) Put(ctx context.Context, b ks.Blob) (cid.Cid, bool, error) {
	type pairType struct {
		ref   cid.Cid
		added bool
	}

	g, ctx := errgroup.WithContext(ctx)
	ch := make(chan pairType, len(s.replicas))
	for _, r := range s.replicas {
		r := r
		g.Go(func() error {
			ref, added, err := r.Put(ctx, b)
			if err != nil {
				return err
			}
			ch <- pairType{ref: ref, added: added}
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		return cid.Undef, false, err
	}
	pair := <-ch
	return pair.ref, pair.added, nil
}

// Get fans the request out to all replicas,
// returning the result from the first to respond without error
// and canceling the request to the others.
// If all replicas respond with an error, one of those errors is returned.
func (s *Store) Get(ctx context.Context, ref cid.Cid) (ks.Blob, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group

	ch := make(chan ks.Blob, len(s.replicas))
	for _, r := range s.replicas {
		r := r
		g.Go(func() error {
			blob, err := r.Get(ctx, ref)
			if err != nil {
				return err
			}
			select {
			case ch <- blob:
				cancel()
			default:
			}
			return nil
		})
	}

	err := g.Wait()
	select {
	case blob := <-ch:
		return blob, nil
	default:
	}
	if err == nil {
		err = ks.ErrNotFound
	}
	return nil, err
}

// Exists reports whether any replica has a block for `ref`.
func (s *Store) Exists(ctx context.Context, ref cid.Cid) (bool, error) {
	var lastErr error
	for _, r := range s.replicas {
		ok, err := r.Exists(ctx, ref)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, lastErr
}

// ListCIDs delegates to the first replica.
func (s *Store) ListCIDs(ctx context.Context, start cid.Cid, f func(cid.Cid) error) error {
	return s.replicas[0].ListCIDs(ctx, start, f)
}

// Bind records the binding in every replica.
// A conflict in any replica causes Bind to fail.
func (s *Store) Bind(ctx context.Context, humanID string, version int, c cid.Cid) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range s.replicas {
		r := r
		g.Go(func() error {
			return r.Bind(ctx, humanID, version, c)
		})
	}
	return g.Wait()
}

// Resolve asks each replica in turn, returning the first success.
func (s *Store) Resolve(ctx context.Context, humanID string) (cid.Cid, error) {
	var lastErr error = ks.ErrNotFound
	for _, r := range s.replicas {
		c, err := r.Resolve(ctx, humanID)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	return cid.Undef, lastErr
}

// ResolveVersion asks each replica in turn, returning the first success.
func (s *Store) ResolveVersion(ctx context.Context, humanID string, version int) (cid.Cid, error) {
	var lastErr error = ks.ErrNotFound
	for _, r := range s.replicas {
		c, err := r.ResolveVersion(ctx, humanID, version)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	return cid.Undef, lastErr
}

// ListIDs delegates to the first replica.
func (s *Store) ListIDs(ctx context.Context, start string, f func(string) error) error {
	return s.replicas[0].ListIDs(ctx, start, f)
}

func init() {
	store.Register("replica", func(ctx context.Context, conf map[string]interface{}) (ks.Backend, error) {
		nested, ok := conf["replicas"].([]interface{})
		if !ok || len(nested) == 0 {
			return nil, errors.New(`missing "replicas" parameter`)
		}
		var replicas []ks.Backend
		for _, item := range nested {
			sub, ok := item.(map[string]interface{})
			if !ok {
				return nil, errors.New(`"replicas" item is not an object`)
			}
			subType, ok := sub["type"].(string)
			if !ok {
				return nil, errors.New(`"replicas" item missing "type"`)
			}
			r, err := store.Create(ctx, subType, sub)
			if err != nil {
				return nil, errors.Wrap(err, "creating nested store")
			}
			replicas = append(replicas, r)
		}
		return New(replicas...), nil
	})
}
