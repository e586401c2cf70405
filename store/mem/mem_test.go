package mem

import (
	"context"
	"testing"

	"github.com/knos/ks"
	"github.com/knos/ks/testutil"
)

func TestMemBlocks(t *testing.T) {
	ctx := context.Background()
	testutil.Blocks(ctx, t, func() ks.Store { return New() })
}

func TestMemBindings(t *testing.T) {
	ctx := context.Background()
	testutil.Bindings(ctx, t, New())
}

func TestMemReadWrite(t *testing.T) {
	ctx := context.Background()
	testutil.ReadWrite(ctx, t, New())
}
