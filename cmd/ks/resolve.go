package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"
)

func (c maincmd) resolve(ctx context.Context, fs *flag.FlagSet, args []string) error {
	version := fs.Int("version", 0, "exact version to resolve (default: current)")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	args = fs.Args()
	if len(args) == 0 {
		return errors.New("missing human ID")
	}
	humanID := args[0]

	var ref cid.Cid
	if *version > 0 {
		ref, err = c.b.ResolveVersion(ctx, humanID, *version)
	} else {
		ref, err = c.b.Resolve(ctx, humanID)
	}
	if err != nil {
		return errors.Wrapf(err, "resolving %s", humanID)
	}

	fmt.Printf("%s\n", ref)
	return nil
}
