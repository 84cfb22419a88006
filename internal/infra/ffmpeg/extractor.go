package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/edgarberlinck/video-to-image/internal/domain/port"
	"go.uber.org/zap"
)

// Extractor shells out to ffmpeg to produce sequentially numbered frame
// files. The outcome's frame count comes from globbing the output directory
// after the run, never from the process exit status.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

func (e *Extractor) Extract(ctx context.Context, req port.ExtractRequest) port.ExtractOutcome {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if req.StartOffset > 0 {
		args = append(args, "-ss", formatSeconds(req.StartOffset))
	}
	args = append(args, "-i", req.VideoPath)
	if req.Duration > 0 {
		args = append(args, "-t", formatSeconds(req.Duration))
	}
	if vf := buildFilterGraph(req.Filter); vf != "" {
		args = append(args, "-vf", vf)
	}
	framePattern := filepath.Join(req.OutputDir, fmt.Sprintf("%s%%04d.%s", req.Prefix, req.Format))
	args = append(args, "-vsync", "vfr", "-y", framePattern)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	output, err := cmd.CombinedOutput()

	var invokeErr error
	if err != nil {
		invokeErr = fmt.Errorf("ffmpeg error: %w, output: %s", err, string(output))
	}

	paths, globErr := filepath.Glob(filepath.Join(req.OutputDir, fmt.Sprintf("%s*.%s", req.Prefix, req.Format)))
	if globErr != nil && invokeErr == nil {
		invokeErr = fmt.Errorf("glob frames: %w", globErr)
	}
	sort.Strings(paths)

	e.logger.Debug("ffmpeg extraction run",
		zap.String("video", req.VideoPath),
		zap.Strings("args", args),
		zap.Int("frames", len(paths)),
	)

	return port.ExtractOutcome{
		FramePaths: paths,
		FrameCount: len(paths),
		InvokeErr:  invokeErr,
	}
}

// buildFilterGraph assembles the -vf expression. Scene selection and the
// unique-frame drop filter are mutually exclusive; scene wins when both are
// set.
func buildFilterGraph(f port.FilterSpec) string {
	var parts []string
	switch {
	case f.SceneThreshold > 0:
		parts = append(parts, fmt.Sprintf(`select=gt(scene\,%s)`, formatThreshold(f.SceneThreshold)))
	case f.Unique:
		parts = append(parts, "mpdecimate")
	}
	if f.FPS > 0 {
		parts = append(parts, fmt.Sprintf("fps=%s", formatSeconds(f.FPS)))
	}
	if f.ScaleWidth > 0 {
		parts = append(parts, fmt.Sprintf("scale=%d:-1", f.ScaleWidth))
	}
	return strings.Join(parts, ",")
}

func formatThreshold(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
