// Package optipng recompresses png frames in place through the optipng CLI.
package optipng

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Compressor struct {
	level  int
	logger *zap.Logger
}

func NewCompressor(level int, logger *zap.Logger) *Compressor {
	if level <= 0 {
		level = 2
	}
	return &Compressor{level: level, logger: logger}
}

// CompressAll recompresses every png in framePaths, fanning out across
// CPU-bounded workers. Each worker owns a disjoint file, so no coordination
// is needed beyond the group limit. Failures are logged and swallowed: a
// frame that stays large is still a valid frame.
func (c *Compressor) CompressAll(ctx context.Context, framePaths []string) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, path := range framePaths {
		if !strings.HasSuffix(path, ".png") {
			continue
		}
		path := path
		g.Go(func() error {
			c.compress(ctx, path)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Compressor) compress(ctx context.Context, path string) {
	cmd := exec.CommandContext(ctx, "optipng", "-quiet", fmt.Sprintf("-o%d", c.level), path)
	if output, err := cmd.CombinedOutput(); err != nil {
		c.logger.Warn("optipng failed, keeping original frame",
			zap.String("frame", path),
			zap.Error(err),
			zap.ByteString("output", output),
		)
	}
}
