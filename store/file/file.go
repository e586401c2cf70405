// Package file implements a backend as a file hierarchy.
//
// Blocks live under root/blobs, sharded by CID-string prefix.
// The index is a single JSON file, root/index.json,
// mapping each human ID to its current version
// and its CID-per-version table.
// Both are published atomically:
// new content is written to a temporary file,
// synced, and renamed into place,
// so a concurrent reader never observes a partial write.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/bobg/flock"
	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/knos/ks"
	"github.com/knos/ks/store"
)

var _ ks.Backend = &Store{}

// Store is a file-based implementation of a backend.
type Store struct {
	root    string
	flocker flock.Locker
}

// New produces a new Store storing data beneath `root`.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) blobroot() string {
	return filepath.Join(s.root, "blobs")
}

func (s *Store) blobpath(ref cid.Cid) string {
	name := ref.String()
	return filepath.Join(s.blobroot(), name[:4], name[:8], name)
}

// Get gets the block with CID `ref`.
func (s *Store) Get(_ context.Context, ref cid.Cid) (ks.Blob, error) {
	path := s.blobpath(ref)
	blob, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ks.ErrNotFound
	}
	return blob, errors.Wrapf(err, "opening %s", path)
}

// Exists reports whether a block is stored for `ref`.
func (s *Store) Exists(_ context.Context, ref cid.Cid) (bool, error) {
	_, err := os.Stat(s.blobpath(ref))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "statting %s", s.blobpath(ref))
	}
	return true, nil
}

// Put adds a block to the store if it wasn't already present.
// The block file is synced before Put returns,
// so the write path can commit an index binding
// knowing its block is durable.
func (s *Store) Put(_ context.Context, b ks.Blob) (cid.Cid, bool, error) {
	var (
		ref  = b.CID()
		path = s.blobpath(ref)
		dir  = filepath.Dir(path)
	)

	existing, err := os.ReadFile(path)
	if err == nil {
		if !bytes.Equal(existing, b) {
			return ref, false, errors.Wrapf(ks.ErrIntegrity, "existing block %s has different bytes", ref)
		}
		return ref, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return cid.Undef, false, errors.Wrapf(err, "reading %s", path)
	}

	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return cid.Undef, false, errors.Wrapf(err, "ensuring path %s exists", dir)
	}

	err = writeAtomic(path, b)
	if err != nil {
		return cid.Undef, false, err
	}
	return ref, true, nil
}

// writeAtomic publishes data at path via a temporary file in the same
// directory, syncing the file before the rename and the directory after,
// so a crash leaves either the old state or the new, never a torn file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "creating temp file in %s", dir)
	}
	tmpname := tmp.Name()
	defer os.Remove(tmpname)

	_, err = tmp.Write(data)
	if err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", tmpname)
	}
	err = tmp.Sync()
	if err != nil {
		tmp.Close()
		return errors.Wrapf(err, "syncing %s", tmpname)
	}
	err = tmp.Close()
	if err != nil {
		return errors.Wrapf(err, "closing %s", tmpname)
	}

	err = os.Rename(tmpname, path)
	if err != nil {
		return errors.Wrapf(err, "renaming %s to %s", tmpname, path)
	}

	d, err := os.Open(dir)
	if err != nil {
		return errors.Wrapf(err, "opening %s", dir)
	}
	defer d.Close()
	return errors.Wrapf(d.Sync(), "syncing %s", dir)
}

// ListCIDs produces all block CIDs in the store,
// in lexicographic order of their string form.
func (s *Store) ListCIDs(_ context.Context, start cid.Cid, f func(cid.Cid) error) error {
	err := os.MkdirAll(s.blobroot(), 0755)
	if err != nil {
		return errors.Wrapf(err, "ensuring %s exists", s.blobroot())
	}

	startKey := ""
	if start.Defined() {
		startKey = start.String()
	}

	topLevel, err := os.ReadDir(s.blobroot())
	if err != nil {
		return errors.Wrapf(err, "reading dir %s", s.blobroot())
	}
	for _, topInfo := range topLevel {
		if !topInfo.IsDir() || len(topInfo.Name()) != 4 {
			continue
		}
		topName := topInfo.Name()
		if len(startKey) >= 4 && topName < startKey[:4] {
			continue
		}

		midLevel, err := os.ReadDir(filepath.Join(s.blobroot(), topName))
		if err != nil {
			return errors.Wrapf(err, "reading dir %s/%s", s.blobroot(), topName)
		}
		for _, midInfo := range midLevel {
			if !midInfo.IsDir() || len(midInfo.Name()) != 8 {
				continue
			}
			midName := midInfo.Name()
			if len(startKey) >= 8 && midName < startKey[:8] {
				continue
			}

			blobInfos, err := os.ReadDir(filepath.Join(s.blobroot(), topName, midName))
			if err != nil {
				return errors.Wrapf(err, "reading dir %s/%s/%s", s.blobroot(), topName, midName)
			}

			index := sort.Search(len(blobInfos), func(n int) bool {
				return blobInfos[n].Name() > startKey
			})
			for k := index; k < len(blobInfos); k++ {
				if blobInfos[k].IsDir() {
					continue
				}
				ref, err := ks.ParseCID(blobInfos[k].Name())
				if err != nil {
					continue
				}
				err = f(ref)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// The on-disk index format:
// human ID -> current version and a version -> CID table.
// JSON with decimal-string version keys,
// decodable by ordinary tooling.
type indexEntry struct {
	Current  int               `json:"current_version"`
	Versions map[string]string `json:"cid_per_version"`
}

func (s *Store) indexPath() string {
	return filepath.Join(s.root, "index.json")
}

func (s *Store) lockIndex() error {
	return s.flocker.Lock(s.indexPath())
}

func (s *Store) unlockIndex() error {
	return s.flocker.Unlock(s.indexPath())
}

// Safe without the lock: the index file is replaced atomically.
func (s *Store) loadIndex() (map[string]*indexEntry, error) {
	data, err := os.ReadFile(s.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]*indexEntry), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", s.indexPath())
	}

	index := make(map[string]*indexEntry)
	err = json.Unmarshal(data, &index)
	return index, errors.Wrapf(err, "decoding %s", s.indexPath())
}

// File lock must be held, serializing writers against each other.
func (s *Store) saveIndex(index map[string]*indexEntry) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding index")
	}
	return writeAtomic(s.indexPath(), data)
}

// Bind records a (human ID, version) -> CID binding.
func (s *Store) Bind(_ context.Context, humanID string, version int, c cid.Cid) error {
	err := s.lockIndex()
	if err != nil {
		return errors.Wrap(err, "locking index")
	}
	defer s.unlockIndex()

	index, err := s.loadIndex()
	if err != nil {
		return err
	}

	entry := index[humanID]
	if entry == nil {
		entry = &indexEntry{Versions: make(map[string]string)}
		index[humanID] = entry
	}

	key := strconv.Itoa(version)
	if existing, ok := entry.Versions[key]; ok {
		if existing == c.String() {
			return nil
		}
		return errors.Wrapf(ks.ErrConflict, "%s version %d is bound to %s", humanID, version, existing)
	}

	entry.Versions[key] = c.String()
	if version > entry.Current {
		entry.Current = version
	}
	return s.saveIndex(index)
}

func (s *Store) resolve(humanID string, version int) (cid.Cid, error) {
	index, err := s.loadIndex()
	if err != nil {
		return cid.Undef, err
	}

	entry := index[humanID]
	if entry == nil {
		return cid.Undef, ks.ErrNotFound
	}
	if version == 0 {
		version = entry.Current
	}
	got, ok := entry.Versions[strconv.Itoa(version)]
	if !ok {
		return cid.Undef, ks.ErrNotFound
	}
	return ks.ParseCID(got)
}

// Resolve returns the CID bound to the current version of `humanID`.
// Readers take no lock:
// saveIndex publishes by atomic rename,
// so loadIndex always sees a complete index file.
func (s *Store) Resolve(_ context.Context, humanID string) (cid.Cid, error) {
	return s.resolve(humanID, 0)
}

// ResolveVersion returns the CID bound to an exact (humanID, version) pair.
func (s *Store) ResolveVersion(_ context.Context, humanID string, version int) (cid.Cid, error) {
	return s.resolve(humanID, version)
}

// ListIDs lists all human IDs in the store, in lexicographic order.
func (s *Store) ListIDs(_ context.Context, start string, f func(string) error) error {
	index, err := s.loadIndex()
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	pos := sort.Search(len(ids), func(n int) bool {
		return ids[n] > start
	})

	for i := pos; i < len(ids); i++ {
		err = f(ids[i])
		if err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (ks.Backend, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}
