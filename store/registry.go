// Package store provides a registry of storage backends,
// so that a backend can be chosen by name from a config file.
// Each backend package registers itself from an init function;
// importing it (possibly blank) makes it available to Create.
package store

import (
	"context"
	"fmt"

	"github.com/knos/ks"
)

// Factory produces a backend from configuration.
type Factory func(context.Context, map[string]interface{}) (ks.Backend, error)

var registry = make(map[string]Factory)

// Register associates a backend type name with its factory.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create produces a backend of the named type from conf.
func Create(ctx context.Context, key string, conf map[string]interface{}) (ks.Backend, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}
