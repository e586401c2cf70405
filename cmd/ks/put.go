package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/knos/ks"
	"github.com/knos/ks/concept"
)

func (c maincmd) put(ctx context.Context, fs *flag.FlagSet, args []string) error {
	infile := fs.String("file", "", "path to a JSON record file (default: stdin)")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	var data []byte
	if *infile != "" {
		data, err = os.ReadFile(*infile)
		if err != nil {
			return errors.Wrapf(err, "reading %s", *infile)
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return errors.Wrap(err, "reading stdin")
		}
	}

	rec, err := ks.FromJSON(data)
	if err != nil {
		return errors.Wrap(err, "converting record")
	}

	ref, err := concept.FromBackend(c.b).Write(ctx, rec)
	if err != nil {
		return errors.Wrap(err, "writing record")
	}

	fmt.Printf("%s\n", ref)
	return nil
}
