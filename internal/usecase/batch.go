package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edgarberlinck/video-to-image/internal/dedupe"
	"github.com/edgarberlinck/video-to-image/internal/domain/port"
	"github.com/edgarberlinck/video-to-image/internal/extract"
	"go.uber.org/zap"
)

// BatchRunner processes an ordered list of local video files sequentially:
// each video runs extraction, the optional compression pass, and one dedupe
// pass to completion before the next video starts.
type BatchRunner struct {
	searcher   *extract.Searcher
	deduper    *dedupe.Deduper
	compressor port.FrameCompressor
	logger     *zap.Logger
	cfg        BatchConfig
}

type BatchConfig struct {
	OutputDir   string
	Flat        bool
	FrameFormat string
	ExtractPlan extract.Plan
	Strategy    dedupe.Strategy
	DedupeOpts  dedupe.Options
	Compress    bool
}

// BatchSummary reports per-batch totals. A batch fails as a whole only when
// no video succeeded.
type BatchSummary struct {
	Succeeded int
	Failed    int
	Skipped   int
	KeptTotal int
}

func NewBatchRunner(
	searcher *extract.Searcher,
	deduper *dedupe.Deduper,
	compressor port.FrameCompressor,
	logger *zap.Logger,
	cfg BatchConfig,
) *BatchRunner {
	return &BatchRunner{
		searcher:   searcher,
		deduper:    deduper,
		compressor: compressor,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run processes videos in order. Nonexistent paths are skipped with a
// warning. Per-video failures are logged and the batch continues; the
// returned error is non-nil only when at least one video was attempted and
// none succeeded.
func (b *BatchRunner) Run(ctx context.Context, videos []string) (BatchSummary, error) {
	var sum BatchSummary

	for _, video := range videos {
		if _, err := os.Stat(video); err != nil {
			b.logger.Warn("video not found, skipping", zap.String("video", video), zap.Error(err))
			sum.Skipped++
			continue
		}

		kept, err := b.processOne(ctx, video)
		if err != nil {
			b.logger.Error("video failed", zap.String("video", video), zap.Error(err))
			sum.Failed++
			continue
		}
		sum.Succeeded++
		sum.KeptTotal += kept
	}

	if sum.Failed > 0 && sum.Succeeded == 0 {
		return sum, fmt.Errorf("no video succeeded (%d failed, %d skipped)", sum.Failed, sum.Skipped)
	}
	return sum, nil
}

func (b *BatchRunner) processOne(ctx context.Context, video string) (int, error) {
	name := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	log := b.logger.With(zap.String("video", video))

	// Flat mode shares one directory; the per-video prefix keeps dedupe
	// passes from crossing video boundaries.
	outDir := filepath.Join(b.cfg.OutputDir, name)
	prefix := "frame_"
	if b.cfg.Flat {
		outDir = b.cfg.OutputDir
		prefix = name + "_"
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	outcome, threshold, err := b.searcher.Run(ctx, port.ExtractRequest{
		VideoPath: video,
		OutputDir: outDir,
		Prefix:    prefix,
		Format:    b.cfg.FrameFormat,
	}, b.cfg.ExtractPlan)
	if err != nil {
		if errors.Is(err, extract.ErrExtractionEmpty) {
			return 0, err
		}
		return 0, fmt.Errorf("extract: %w", err)
	}

	log.Info("frames extracted",
		zap.Int("count", outcome.FrameCount),
		zap.Float64("scene_threshold", threshold),
	)

	if b.cfg.Compress {
		b.compressor.CompressAll(ctx, outcome.FramePaths)
	}

	result, err := b.deduper.Run(b.cfg.Strategy, outcome.FramePaths, b.cfg.DedupeOpts)
	if err != nil {
		return 0, fmt.Errorf("dedupe: %w", err)
	}
	if err := b.deduper.Apply(result); err != nil {
		return 0, fmt.Errorf("dedupe apply: %w", err)
	}

	log.Info("video done",
		zap.String("strategy", string(b.cfg.Strategy)),
		zap.Int("kept", len(result.Kept)),
		zap.Int("removed", len(result.Removed)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return len(result.Kept), nil
}
