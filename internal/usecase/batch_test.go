package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/edgarberlinck/video-to-image/internal/dedupe"
	"github.com/edgarberlinck/video-to-image/internal/domain/port"
	"github.com/edgarberlinck/video-to-image/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fileExtractor writes real frame files so the dedupe pass can delete them.
type fileExtractor struct {
	framesPerVideo int
}

func (f *fileExtractor) Extract(_ context.Context, req port.ExtractRequest) port.ExtractOutcome {
	paths := make([]string, 0, f.framesPerVideo)
	for i := 1; i <= f.framesPerVideo; i++ {
		path := filepath.Join(req.OutputDir, fmt.Sprintf("%s%04d.%s", req.Prefix, i, req.Format))
		if err := os.WriteFile(path, []byte(fmt.Sprintf("frame %d", i)), 0644); err != nil {
			return port.ExtractOutcome{InvokeErr: err}
		}
		paths = append(paths, path)
	}
	return port.ExtractOutcome{FramePaths: paths, FrameCount: len(paths)}
}

type emptyExtractor struct{}

func (e *emptyExtractor) Extract(context.Context, port.ExtractRequest) port.ExtractOutcome {
	return port.ExtractOutcome{}
}

type noopCompressor struct{ calls int }

func (n *noopCompressor) CompressAll(context.Context, []string) { n.calls++ }

// constantHash makes every frame a perceptual duplicate of the first.
func constantHash(string) (dedupe.Fingerprint, error) {
	return dedupe.Fingerprint{Bits: 0, Width: dedupe.FingerprintBits}, nil
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("fake video"), 0644))
	return path
}

func TestBatchRunnerSkipsMissingVideos(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "cat.mp4")
	missing := filepath.Join(dir, "nope.mp4")

	runner := NewBatchRunner(
		extract.NewSearcher(&fileExtractor{framesPerVideo: 3}, zap.NewNop()),
		dedupe.New(constantHash, zap.NewNop()),
		&noopCompressor{},
		zap.NewNop(),
		BatchConfig{
			OutputDir:   filepath.Join(dir, "out"),
			FrameFormat: "png",
			ExtractPlan: extract.Plan{Threshold: 0.3},
			Strategy:    dedupe.StrategySequential,
		},
	)

	sum, err := runner.Run(context.Background(), []string{missing, video})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.Failed)
	// All frames hash identically, so one survivor per video.
	assert.Equal(t, 1, sum.KeptTotal)
}

func TestBatchRunnerDeletesDuplicates(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "dog.mp4")
	outDir := filepath.Join(dir, "out")

	runner := NewBatchRunner(
		extract.NewSearcher(&fileExtractor{framesPerVideo: 4}, zap.NewNop()),
		dedupe.New(constantHash, zap.NewNop()),
		&noopCompressor{},
		zap.NewNop(),
		BatchConfig{
			OutputDir:   outDir,
			FrameFormat: "png",
			ExtractPlan: extract.Plan{Threshold: 0.3},
			Strategy:    dedupe.StrategySequential,
		},
	)

	_, err := runner.Run(context.Background(), []string{video})
	require.NoError(t, err)

	remaining, err := filepath.Glob(filepath.Join(outDir, "dog", "*.png"))
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestBatchRunnerFlatModeUsesVideoPrefix(t *testing.T) {
	dir := t.TempDir()
	a := writeVideo(t, dir, "a.mp4")
	b := writeVideo(t, dir, "b.mp4")
	outDir := filepath.Join(dir, "out")

	runner := NewBatchRunner(
		extract.NewSearcher(&fileExtractor{framesPerVideo: 2}, zap.NewNop()),
		dedupe.New(constantHash, zap.NewNop()),
		&noopCompressor{},
		zap.NewNop(),
		BatchConfig{
			OutputDir:   outDir,
			Flat:        true,
			FrameFormat: "png",
			ExtractPlan: extract.Plan{Threshold: 0.3},
			Strategy:    dedupe.StrategyNone,
		},
	)

	sum, err := runner.Run(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Succeeded)

	aFrames, _ := filepath.Glob(filepath.Join(outDir, "a_*.png"))
	bFrames, _ := filepath.Glob(filepath.Join(outDir, "b_*.png"))
	assert.Len(t, aFrames, 2)
	assert.Len(t, bFrames, 2)
}

func TestBatchRunnerFailsOnlyWhenNothingSucceeds(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "empty.mp4")

	runner := NewBatchRunner(
		extract.NewSearcher(&emptyExtractor{}, zap.NewNop()),
		dedupe.New(constantHash, zap.NewNop()),
		&noopCompressor{},
		zap.NewNop(),
		BatchConfig{
			OutputDir:   filepath.Join(dir, "out"),
			FrameFormat: "png",
			ExtractPlan: extract.Plan{Threshold: 0.3},
			Strategy:    dedupe.StrategySequential,
		},
	)

	sum, err := runner.Run(context.Background(), []string{video})
	assert.Error(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Zero(t, sum.Succeeded)
}

func TestBatchRunnerCompressPassRuns(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "c.mp4")
	comp := &noopCompressor{}

	runner := NewBatchRunner(
		extract.NewSearcher(&fileExtractor{framesPerVideo: 2}, zap.NewNop()),
		dedupe.New(constantHash, zap.NewNop()),
		comp,
		zap.NewNop(),
		BatchConfig{
			OutputDir:   filepath.Join(dir, "out"),
			FrameFormat: "png",
			ExtractPlan: extract.Plan{Threshold: 0.3},
			Strategy:    dedupe.StrategyNone,
			Compress:    true,
		},
	)

	_, err := runner.Run(context.Background(), []string{video})
	require.NoError(t, err)
	assert.Equal(t, 1, comp.calls)
}
