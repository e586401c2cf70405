package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/knos/ks"
)

func (c maincmd) list(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		cids  = fs.Bool("cids", false, "list block CIDs instead of human IDs")
		start = fs.String("start", "", "start after this key")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	if *cids {
		var startCID cid.Cid
		if *start != "" {
			startCID, err = ks.ParseCID(*start)
			if err != nil {
				return errors.Wrap(err, "parsing start CID")
			}
		}
		return c.b.ListCIDs(ctx, startCID, func(ref cid.Cid) error {
			fmt.Printf("%s\n", ref)
			return nil
		})
	}

	return c.b.ListIDs(ctx, *start, func(humanID string) error {
		fmt.Printf("%s\n", humanID)
		return nil
	})
}
