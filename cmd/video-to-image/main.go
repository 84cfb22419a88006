package main

import (
	"fmt"
	"os"

	"github.com/edgarberlinck/video-to-image/internal/dedupe"
	"github.com/edgarberlinck/video-to-image/internal/extract"
	"github.com/edgarberlinck/video-to-image/internal/infra/ffmpeg"
	"github.com/edgarberlinck/video-to-image/internal/infra/optipng"
	"github.com/edgarberlinck/video-to-image/internal/usecase"
	"github.com/edgarberlinck/video-to-image/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagOutputDir   string
	flagFlat        bool
	flagFormat      string
	flagStrategy    string
	flagThreshold   int
	flagMinDistance int
	flagSceneHi     float64
	flagSceneLo     float64
	flagSceneStep   float64
	flagScene       float64
	flagUnique      bool
	flagFPS         float64
	flagScale       int
	flagCompress    bool
	flagLogLevel    string
)

func main() {
	root := &cobra.Command{
		Use:   "video-to-image [videos...]",
		Short: "Extract lossless frames from videos and remove redundant ones",
		Long: `video-to-image extracts still frames from one or more videos with ffmpeg
and removes redundant frames with one of four strategies: exact (byte-identical),
sequential (perceptual near-duplicate), aggressive (sequential with a high
threshold), or diversity (keep only frames far from everything kept so far).

When no fixed scene threshold is given, a descending search over
[scene-lo, scene-hi] finds the strictest threshold that still yields frames.`,
		Args: cobra.MinimumNArgs(1),
		RunE: run,
	}

	root.Flags().StringVarP(&flagOutputDir, "output", "o", "frames", "output directory")
	root.Flags().BoolVar(&flagFlat, "flat", false, "write all frames into one directory, prefixed per video")
	root.Flags().StringVar(&flagFormat, "format", "png", "frame format (png or bmp)")
	root.Flags().StringVarP(&flagStrategy, "strategy", "s", "sequential", "dedupe strategy: none, exact, sequential, aggressive, diversity")
	root.Flags().IntVarP(&flagThreshold, "threshold", "t", 0, "near-duplicate Hamming distance threshold; 0 uses the strategy default (3-5 safe, 6-8 aggressive, 9-10 very aggressive)")
	root.Flags().IntVarP(&flagMinDistance, "min-distance", "m", 0, "diversity minimum Hamming distance; 0 uses the default")
	root.Flags().Float64Var(&flagScene, "scene", 0, "fixed scene threshold; 0 enables the descending search")
	root.Flags().Float64Var(&flagSceneHi, "scene-hi", 0.4, "scene search upper bound")
	root.Flags().Float64Var(&flagSceneLo, "scene-lo", 0.1, "scene search lower bound")
	root.Flags().Float64Var(&flagSceneStep, "scene-step", 0.05, "scene search step")
	root.Flags().BoolVar(&flagUnique, "unique", false, "drop near-duplicates at extraction instead of scene selection")
	root.Flags().Float64Var(&flagFPS, "fps", 0, "cap extraction frame rate; 0 leaves it uncapped")
	root.Flags().IntVar(&flagScale, "scale", 0, "downscale frames to this width; 0 keeps original size")
	root.Flags().BoolVar(&flagCompress, "compress", false, "losslessly recompress png frames with optipng")
	root.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log, err := logger.New(flagLogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	strategy, err := dedupe.ParseStrategy(flagStrategy)
	if err != nil {
		return err
	}
	if flagFormat != "png" && flagFormat != "bmp" {
		return fmt.Errorf("unsupported frame format %q", flagFormat)
	}

	plan := extract.Plan{
		Threshold:  flagScene,
		Unique:     flagUnique,
		FPS:        flagFPS,
		ScaleWidth: flagScale,
	}
	if flagScene <= 0 && !flagUnique {
		plan.Hi = flagSceneHi
		plan.Lo = flagSceneLo
		plan.Step = flagSceneStep
	}

	runner := usecase.NewBatchRunner(
		extract.NewSearcher(ffmpeg.NewExtractor(log), log),
		dedupe.New(nil, log),
		optipng.NewCompressor(0, log),
		log,
		usecase.BatchConfig{
			OutputDir:   flagOutputDir,
			Flat:        flagFlat,
			FrameFormat: flagFormat,
			ExtractPlan: plan,
			Strategy:    strategy,
			DedupeOpts: dedupe.Options{
				Threshold:   flagThreshold,
				MinDistance: flagMinDistance,
			},
			Compress: flagCompress,
		},
	)

	sum, err := runner.Run(cmd.Context(), args)
	if err != nil {
		return err
	}

	log.Info("batch finished",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Int("frames_kept", sum.KeptTotal),
	)
	return nil
}
