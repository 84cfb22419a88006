package port

import "context"

// FilterSpec configures the extractor's filter graph. At most one of
// SceneThreshold / Unique may be set; FPS and ScaleWidth combine with either
// or stand alone.
type FilterSpec struct {
	// SceneThreshold enables scene-change selection when > 0. Higher is
	// stricter: fewer frames survive extraction.
	SceneThreshold float64

	// Unique enables the decoder-side near-duplicate drop filter.
	Unique bool

	// FPS caps the output frame rate when > 0.
	FPS float64

	// ScaleWidth downscales frames to this width (height preserved) when > 0.
	ScaleWidth int
}

// ExtractRequest describes one extractor invocation.
type ExtractRequest struct {
	VideoPath   string
	OutputDir   string
	Prefix      string
	Format      string  // "png" or "bmp"
	StartOffset float64 // seconds into the video, ignored when <= 0
	Duration    float64 // seconds to process, ignored when <= 0
	Filter      FilterSpec
}

// ExtractOutcome reports one invocation. FrameCount is the number of files
// matching {prefix}*.{format} in the output directory after the run, and it
// alone drives control flow: InvokeErr records an extractor process failure
// for logging, but a nonzero count is treated as success regardless.
type ExtractOutcome struct {
	FramePaths []string
	FrameCount int
	InvokeErr  error
}

type FrameExtractor interface {
	Extract(ctx context.Context, req ExtractRequest) ExtractOutcome
}

// VideoProber reports the duration of a video in seconds.
type VideoProber interface {
	Duration(ctx context.Context, videoPath string) (float64, error)
}
