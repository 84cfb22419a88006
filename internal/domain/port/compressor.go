package port

import "context"

// FrameCompressor losslessly recompresses frame files in place. Compression
// is best-effort: per-file failures are logged by the implementation and
// never surface to the caller.
type FrameCompressor interface {
	CompressAll(ctx context.Context, framePaths []string)
}
