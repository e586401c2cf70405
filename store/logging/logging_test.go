package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/knos/ks"
	"github.com/knos/ks/store/mem"
	"github.com/knos/ks/testutil"
)

func TestLoggingReadWrite(t *testing.T) {
	var (
		ctx = context.Background()
		log = logrus.New()
		sb  strings.Builder
	)
	log.SetOutput(&sb)

	testutil.ReadWrite(ctx, t, New(mem.New(), log))

	for _, op := range []string{"put", "bind", "get", "resolve"} {
		if !strings.Contains(sb.String(), op) {
			t.Errorf("log output mentions no %q operation", op)
		}
	}
}

func TestLoggingBlocks(t *testing.T) {
	var (
		ctx = context.Background()
		log = logrus.New()
	)
	log.SetOutput(&strings.Builder{})

	testutil.Blocks(ctx, t, func() ks.Store { return New(mem.New(), log) })
}
