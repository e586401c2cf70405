// Command ks is a general purpose CLI interface to knowledge stores.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/bobg/subcmd"

	"github.com/knos/ks"
	"github.com/knos/ks/store"
	_ "github.com/knos/ks/store/file"
	_ "github.com/knos/ks/store/gcs"
	_ "github.com/knos/ks/store/logging"
	_ "github.com/knos/ks/store/lru"
	_ "github.com/knos/ks/store/mem"
	_ "github.com/knos/ks/store/pg"
	_ "github.com/knos/ks/store/replica"
	_ "github.com/knos/ks/store/sqlite3"
)

type maincmd struct {
	b ks.Backend
}

func main() {
	config := flag.String("config", "ksconf.json", "path to config file")
	flag.Parse()

	if *config == "" {
		log.Fatal("Config value not set")
	}

	f, err := os.Open(*config)
	if err != nil {
		log.Fatalf("Opening config file %s: %s", *config, err)
	}
	defer f.Close()

	var conf map[string]interface{}
	dec := json.NewDecoder(f)
	dec.UseNumber()
	err = dec.Decode(&conf)
	if err != nil {
		log.Fatalf("Decoding config file %s: %s", *config, err)
	}

	typ, ok := conf["type"].(string)
	if !ok {
		log.Fatalf("Config file %s missing `type` parameter", *config)
	}

	ctx := context.Background()

	b, err := store.Create(ctx, typ, conf)
	if err != nil {
		log.Fatalf("Creating %s-type store: %s", typ, err)
	}

	err = subcmd.Run(ctx, maincmd{b: b}, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"put":     c.put,
		"get":     c.get,
		"resolve": c.resolve,
		"list":    c.list,
	}
}
