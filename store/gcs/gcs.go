// Package gcs implements a backend on Google Cloud Storage.
//
// Blocks are objects named "b:" + the CID string.
// Bindings are objects named "i:" + hex(human ID) + ":" + zero-padded version,
// whose content is the bound CID string.
// Object creation uses a DoesNotExist precondition,
// which makes both blocks and bindings write-once at the bucket level
// even with concurrent writers.
package gcs

import (
	"bytes"
	"context"
	"encoding/hex"
	stderrs "errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/knos/ks"
	"github.com/knos/ks/store"
)

var _ ks.Backend = &Store{}

// Store is a Google Cloud Storage-based backend.
type Store struct {
	bucket *storage.BucketHandle
}

// New produces a new Store.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

// Get gets the block with CID `ref`.
func (s *Store) Get(ctx context.Context, ref cid.Cid) (ks.Blob, error) {
	name := blobObjName(ref)
	r, err := s.bucket.Object(name).NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, ks.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading info of object %s", name)
	}
	defer r.Close()

	b := make([]byte, r.Attrs.Size)
	_, err = io.ReadFull(r, b)
	return b, errors.Wrapf(err, "reading contents of object %s", name)
}

// Exists reports whether a block is stored for `ref`.
func (s *Store) Exists(ctx context.Context, ref cid.Cid) (bool, error) {
	_, err := s.bucket.Object(blobObjName(ref)).Attrs(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return err == nil, errors.Wrapf(err, "getting object attrs for %s", blobObjName(ref))
}

// Put adds a block to the store if it wasn't already present.
func (s *Store) Put(ctx context.Context, b ks.Blob) (cid.Cid, bool, error) {
	ref := b.CID()
	name := blobObjName(ref)

	added, err := s.createObject(ctx, name, b)
	if err != nil {
		return ref, false, errors.Wrapf(err, "writing object %s", name)
	}
	if added {
		return ref, true, nil
	}

	// The object already exists. Its bytes must be identical.
	existing, err := s.Get(ctx, ref)
	if err != nil {
		return ref, false, errors.Wrap(err, "re-reading existing block")
	}
	if !bytes.Equal(existing, b) {
		return ref, false, errors.Wrapf(ks.ErrIntegrity, "existing block %s has different bytes", ref)
	}
	return ref, false, nil
}

// createObject writes data as a new object,
// reporting false (and no error) if the object already exists.
func (s *Store) createObject(ctx context.Context, name string, data []byte) (bool, error) {
	obj := s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)

	_, err := w.Write(data)
	if isPreconditionFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	err = w.Close()
	if isPreconditionFailed(err) {
		return false, nil
	}
	return err == nil, err
}

func isPreconditionFailed(err error) bool {
	var e *googleapi.Error
	return stderrs.As(err, &e) && e.Code == http.StatusPreconditionFailed
}

// blockQuery is the object query for enumerating blocks after `start`.
// StartOffset makes the bucket skip pre-start objects server-side;
// it is inclusive, so the start object itself still needs filtering out.
func blockQuery(start cid.Cid) *storage.Query {
	q := &storage.Query{Prefix: "b:"}
	if start.Defined() {
		q.StartOffset = blobObjName(start)
	}
	return q
}

// ListCIDs produces all block CIDs in the store,
// in lexicographic order of their string form.
func (s *Store) ListCIDs(ctx context.Context, start cid.Cid, f func(cid.Cid) error) error {
	startKey := ""
	if start.Defined() {
		startKey = start.String()
	}

	iter := s.bucket.Objects(ctx, blockQuery(start))
	for {
		obj, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "iterating over block objects")
		}
		cidstr := strings.TrimPrefix(obj.Name, "b:")
		if cidstr <= startKey {
			continue
		}
		ref, err := ks.ParseCID(cidstr)
		if err != nil {
			return errors.Wrapf(err, "decoding object name %s", obj.Name)
		}
		err = f(ref)
		if err != nil {
			return err
		}
	}
}

// Bind records a (human ID, version) -> CID binding.
func (s *Store) Bind(ctx context.Context, humanID string, version int, c cid.Cid) error {
	name := bindingObjName(humanID, version)

	added, err := s.createObject(ctx, name, []byte(c.String()))
	if err != nil {
		return errors.Wrapf(err, "writing object %s", name)
	}
	if added {
		return nil
	}

	existing, err := s.readBinding(ctx, name)
	if err != nil {
		return errors.Wrap(err, "re-reading existing binding")
	}
	if existing != c {
		return errors.Wrapf(ks.ErrConflict, "%s version %d is bound to %s", humanID, version, existing)
	}
	return nil
}

// Resolve returns the CID bound to the current version of `humanID`.
// Binding object names order by version,
// so the current version is the last object under the ID's prefix.
func (s *Store) Resolve(ctx context.Context, humanID string) (cid.Cid, error) {
	var (
		prefix = bindingPrefix(humanID)
		iter   = s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
		last   string
	)
	for {
		attrs, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return cid.Undef, errors.Wrap(err, "iterating over binding objects")
		}
		last = attrs.Name
	}
	if last == "" {
		return cid.Undef, ks.ErrNotFound
	}
	return s.readBinding(ctx, last)
}

// ResolveVersion returns the CID bound to an exact (humanID, version) pair.
func (s *Store) ResolveVersion(ctx context.Context, humanID string, version int) (cid.Cid, error) {
	return s.readBinding(ctx, bindingObjName(humanID, version))
}

// ListIDs lists all human IDs in the store, in lexicographic order.
// The hex encoding in binding object names preserves the byte order
// of the IDs, so bucket iteration order is ID order.
func (s *Store) ListIDs(ctx context.Context, start string, f func(string) error) error {
	var (
		iter = s.bucket.Objects(ctx, &storage.Query{Prefix: "i:"})
		prev string
	)
	for {
		attrs, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "iterating over binding objects")
		}
		humanID, _, err := bindingFromObjName(attrs.Name)
		if err != nil {
			return errors.Wrapf(err, "decoding object name %s", attrs.Name)
		}
		if humanID == prev || humanID <= start {
			continue
		}
		prev = humanID
		err = f(humanID)
		if err != nil {
			return err
		}
	}
}

func (s *Store) readBinding(ctx context.Context, objName string) (cid.Cid, error) {
	r, err := s.bucket.Object(objName).NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return cid.Undef, ks.ErrNotFound
	}
	if err != nil {
		return cid.Undef, errors.Wrapf(err, "reading info of object %s", objName)
	}
	defer r.Close()

	cidstr, err := io.ReadAll(r)
	if err != nil {
		return cid.Undef, errors.Wrapf(err, "reading contents of object %s", objName)
	}
	return ks.ParseCID(string(cidstr))
}

func blobObjName(ref cid.Cid) string {
	return "b:" + ref.String()
}

func bindingPrefix(humanID string) string {
	return "i:" + hex.EncodeToString([]byte(humanID)) + ":"
}

func bindingObjName(humanID string, version int) string {
	return fmt.Sprintf("%s%016d", bindingPrefix(humanID), version)
}

var bindingNameRegex = regexp.MustCompile(`^i:([0-9a-f]*):(\d{16})$`)

func bindingFromObjName(name string) (string, int, error) {
	m := bindingNameRegex.FindStringSubmatch(name)
	if len(m) < 3 {
		return "", 0, errors.New("malformed name")
	}
	humanID, err := hex.DecodeString(m[1])
	if err != nil {
		return "", 0, errors.Wrap(err, "hex-decoding human ID")
	}
	version, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, errors.Wrap(err, "parsing version")
	}
	return string(humanID), version, nil
}

func init() {
	store.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (ks.Backend, error) {
		creds, ok := conf["creds"].(string)
		if !ok {
			return nil, errors.New(`missing "creds" parameter`)
		}
		bucketName, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		c, err := storage.NewClient(ctx, option.WithCredentialsFile(creds))
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(c.Bucket(bucketName)), nil
	})
}
