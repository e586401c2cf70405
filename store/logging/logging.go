// Package logging implements a backend that delegates everything to a
// nested backend, logging operations as they happen.
package logging

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/knos/ks"
	"github.com/knos/ks/store"
)

var _ ks.Backend = &Store{}

// Store wraps a backend with structured operation logging.
type Store struct {
	b   ks.Backend
	log *logrus.Logger
}

// New produces a new Store wrapping `b`.
// A nil logger means the logrus standard logger.
func New(b ks.Backend, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{b: b, log: log}
}

// cidstr renders a CID for a log field, tolerating the undefined CID
// that failed operations return.
func cidstr(ref cid.Cid) string {
	if !ref.Defined() {
		return ""
	}
	return ref.String()
}

func (s *Store) Get(ctx context.Context, ref cid.Cid) (ks.Blob, error) {
	b, err := s.b.Get(ctx, ref)
	entry := s.log.WithField("cid", cidstr(ref))
	if err != nil {
		entry.WithError(err).Error("get")
	} else {
		entry.WithField("size", len(b)).Info("get")
	}
	return b, err
}

func (s *Store) Exists(ctx context.Context, ref cid.Cid) (bool, error) {
	ok, err := s.b.Exists(ctx, ref)
	entry := s.log.WithFields(logrus.Fields{"cid": cidstr(ref), "exists": ok})
	if err != nil {
		entry.WithError(err).Error("exists")
	} else {
		entry.Info("exists")
	}
	return ok, err
}

func (s *Store) Put(ctx context.Context, b ks.Blob) (cid.Cid, bool, error) {
	ref, added, err := s.b.Put(ctx, b)
	entry := s.log.WithFields(logrus.Fields{"cid": cidstr(ref), "added": added, "size": len(b)})
	if err != nil {
		entry.WithError(err).Error("put")
	} else {
		entry.Info("put")
	}
	return ref, added, err
}

func (s *Store) ListCIDs(ctx context.Context, start cid.Cid, f func(cid.Cid) error) error {
	s.log.Info("list cids")
	return s.b.ListCIDs(ctx, start, f)
}

func (s *Store) Bind(ctx context.Context, humanID string, version int, c cid.Cid) error {
	err := s.b.Bind(ctx, humanID, version, c)
	entry := s.log.WithFields(logrus.Fields{"human_id": humanID, "version": version, "cid": cidstr(c)})
	if err != nil {
		entry.WithError(err).Error("bind")
	} else {
		entry.Info("bind")
	}
	return err
}

func (s *Store) Resolve(ctx context.Context, humanID string) (cid.Cid, error) {
	c, err := s.b.Resolve(ctx, humanID)
	entry := s.log.WithField("human_id", humanID)
	if err != nil {
		entry.WithError(err).Error("resolve")
	} else {
		entry.WithField("cid", cidstr(c)).Info("resolve")
	}
	return c, err
}

func (s *Store) ResolveVersion(ctx context.Context, humanID string, version int) (cid.Cid, error) {
	c, err := s.b.ResolveVersion(ctx, humanID, version)
	entry := s.log.WithFields(logrus.Fields{"human_id": humanID, "version": version})
	if err != nil {
		entry.WithError(err).Error("resolve version")
	} else {
		entry.WithField("cid", cidstr(c)).Info("resolve version")
	}
	return c, err
}

func (s *Store) ListIDs(ctx context.Context, start string, f func(string) error) error {
	s.log.Info("list ids")
	return s.b.ListIDs(ctx, start, f)
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (ks.Backend, error) {
		nested, ok := conf["nested"].(map[string]interface{})
		if !ok {
			return nil, errors.New(`missing "nested" parameter`)
		}
		nestedType, ok := nested["type"].(string)
		if !ok {
			return nil, errors.New(`"nested" parameter missing "type"`)
		}
		nestedStore, err := store.Create(ctx, nestedType, nested)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested store")
		}
		return New(nestedStore, nil), nil
	})
}
