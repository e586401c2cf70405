package main

import (
	"context"
	"flag"
	"os"

	"github.com/pkg/errors"

	"github.com/knos/ks"
	"github.com/knos/ks/concept"
)

func (c maincmd) get(ctx context.Context, fs *flag.FlagSet, args []string) error {
	version := fs.Int("version", 0, "exact version to fetch (default: current)")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	args = fs.Args()
	if len(args) == 0 {
		return errors.New("missing key (a CID or a human ID)")
	}
	key := args[0]

	var (
		cs  = concept.FromBackend(c.b)
		rec ks.Value
	)
	if *version > 0 {
		rec, err = cs.ReadVersion(ctx, key, *version)
	} else {
		rec, err = cs.Read(ctx, key)
	}
	if err != nil {
		return errors.Wrapf(err, "reading %s", key)
	}

	out, err := ks.ToJSON(rec)
	if err != nil {
		return errors.Wrap(err, "rendering record")
	}
	out = append(out, '\n')
	_, err = os.Stdout.Write(out)
	return errors.Wrap(err, "writing record to stdout")
}
